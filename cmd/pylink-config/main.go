// pylink-config resolves the host interpreter configuration at build time.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/pylink/buildcfg"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	out := flag.String("out", "pylink-config.txt", "Path the resolved config file is written to")
	symbols := flag.Bool("symbols", false, "Print the conditional-compilation symbols to stdout")
	noCache := flag.Bool("no-cache", false, "Skip the interpreter probe cache")
	verbosity := flag.Int("verbosity", 0, "Log verbosity (0-2)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pylink-config [options]\n\n")
		fmt.Fprintf(os.Stderr, "Locates a host Python installation (or cross-compile metadata) and writes\n")
		fmt.Fprintf(os.Stderr, "the resolved interpreter configuration for downstream build steps.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pylink-config -out build/pylink-config.txt\n")
		fmt.Fprintf(os.Stderr, "  PYLINK_ABI3_PY38=1 PYLINK_NO_PYTHON=1 pylink-config -symbols\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	buildcfg.DisableProbeCache = *noCache
	// Rerun signals go to stdout for the outer build orchestrator.
	buildcfg.RerunWriter = os.Stdout

	cfg, err := buildcfg.Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pylink-config: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pylink-config: failed to create %s: %v\n", *out, err)
		os.Exit(1)
	}
	if err := cfg.WriteTo(f); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "pylink-config: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "pylink-config: failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}

	if *symbols {
		for _, symbol := range cfg.BuildSymbols() {
			fmt.Println(symbol)
		}
	}
}
