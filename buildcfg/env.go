package buildcfg

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("pylink.buildcfg")

// lookupEnv is swapped out by tests to run against a synthetic environment.
var lookupEnv = os.LookupEnv

// RerunWriter receives one "pylink:rerun-if-env-changed=<var>" line for every
// environment variable that can affect the resolved configuration. The build
// orchestrator (via cmd/pylink-config) forwards these to decide when a
// rebuild is required. Defaults to discard; the CLI points it at stdout.
var RerunWriter io.Writer = io.Discard

// envVar reads an environment variable and registers the rerun signal.
// Every variable that affects build output must be read through this,
// not os.LookupEnv directly.
func envVar(name string) (string, bool) {
	fmt.Fprintf(RerunWriter, "pylink:rerun-if-env-changed=%s\n", name)
	return lookupEnv(name)
}

// envVarSet reports whether the variable is present, registering the rerun
// signal as a side effect.
func envVarSet(name string) bool {
	_, ok := envVar(name)
	return ok
}
