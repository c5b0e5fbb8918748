package buildcfg

import "testing"

func TestParseTriple(t *testing.T) {
	got, err := ParseTriple("aarch64-unknown-linux-gnu")
	if err != nil {
		t.Fatal(err)
	}
	want := Triple{Arch: "aarch64", Vendor: "unknown", OS: "linux", Env: "gnu"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if _, err := ParseTriple("x86_64-linux"); err == nil {
		t.Error("two-part triple should be rejected")
	}
}

func TestTripleOverrides(t *testing.T) {
	withEnv(t, map[string]string{
		"PYLINK_TARGET": "aarch64-unknown-linux-gnu",
		"PYLINK_HOST":   "x86_64-unknown-linux-gnu",
	})

	target, err := TargetTriple()
	if err != nil {
		t.Fatal(err)
	}
	if target.Arch != "aarch64" {
		t.Errorf("target arch = %q, want aarch64", target.Arch)
	}

	host, err := BuildTriple()
	if err != nil {
		t.Fatal(err)
	}
	if host.Arch != "x86_64" {
		t.Errorf("host arch = %q, want x86_64", host.Arch)
	}
}

func TestBuildTripleDefaultsToHost(t *testing.T) {
	withEnv(t, nil)

	host, err := BuildTriple()
	if err != nil {
		t.Fatal(err)
	}
	if host != HostTriple() {
		t.Errorf("got %+v, want the runtime host triple %+v", host, HostTriple())
	}
}
