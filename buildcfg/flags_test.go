package buildcfg

import "testing"

func TestBuildFlagsFixupDebugImplications(t *testing.T) {
	// At 3.6 a debug build implies both ref-debug and trace-refs.
	got := NewBuildFlags(PyDebug).Fixup(Version{3, 6}, CPython)
	if !got.Has(PyRefDebug) {
		t.Errorf("3.6 debug fixup missing Py_REF_DEBUG: %v", got)
	}
	if !got.Has(PyTraceRefs) {
		t.Errorf("3.6 debug fixup missing Py_TRACE_REFS: %v", got)
	}

	// At the 3.7 threshold ref-debug is still implied; trace-refs follows
	// the documented version gate (implied up to and including 3.7).
	got = NewBuildFlags(PyDebug).Fixup(Version{3, 7}, CPython)
	if !got.Has(PyRefDebug) {
		t.Errorf("3.7 debug fixup missing Py_REF_DEBUG: %v", got)
	}
	if !got.Has(PyTraceRefs) {
		t.Errorf("3.7 debug fixup missing Py_TRACE_REFS: %v", got)
	}
	got = NewBuildFlags(PyDebug).Fixup(Version{3, 8}, CPython)
	if got.Has(PyTraceRefs) {
		t.Errorf("3.8 debug fixup should not imply Py_TRACE_REFS: %v", got)
	}
}

func TestBuildFlagsFixupThreadSupport(t *testing.T) {
	for _, v := range []Version{{3, 7}, {3, 9}, {3, 13}} {
		if got := NewBuildFlags().Fixup(v, CPython); !got.Has(WithThread) {
			t.Errorf("CPython %s fixup missing WITH_THREAD: %v", v, got)
		}
	}
	// PyPy forces thread support regardless of version.
	if got := NewBuildFlags().Fixup(Version{3, 6}, PyPy); !got.Has(WithThread) {
		t.Errorf("PyPy 3.6 fixup missing WITH_THREAD: %v", got)
	}
	if got := NewBuildFlags().Fixup(Version{3, 6}, CPython); got.Has(WithThread) {
		t.Errorf("CPython 3.6 fixup should not add WITH_THREAD: %v", got)
	}
}

func TestBuildFlagsFixupIdempotent(t *testing.T) {
	inputs := []BuildFlags{
		NewBuildFlags(),
		NewBuildFlags(PyDebug),
		NewBuildFlags(PyDebug, CountAllocs),
		NewBuildFlags(BuildFlag("Py_SOME_FLAG")),
	}
	versions := []Version{{3, 6}, {3, 7}, {3, 12}}
	impls := []Implementation{CPython, PyPy}
	for _, in := range inputs {
		for _, v := range versions {
			for _, impl := range impls {
				once := in.Fixup(v, impl)
				twice := once.Fixup(v, impl)
				if !once.Equal(twice) {
					t.Errorf("Fixup(%v, %s, %s) not idempotent: %v vs %v", in, v, impl, once, twice)
				}
			}
		}
	}
}

func TestBuildFlagsRoundTrip(t *testing.T) {
	in := NewBuildFlags(PyDebug, WithThread, BuildFlag("Py_SOME_FLAG"))
	out := ParseBuildFlags(in.String())
	if !in.Equal(out) {
		t.Errorf("parse(render(%v)) = %v", in, out)
	}
	if got := ParseBuildFlags(""); len(got) != 0 {
		t.Errorf("ParseBuildFlags(\"\") = %v, want empty set", got)
	}
}

func TestBuildFlagsUnknownTokenPassthrough(t *testing.T) {
	got := ParseBuildFlags("Py_DEBUG,SOME_VENDOR_FLAG")
	if !got.Has(PyDebug) || !got.Has(BuildFlag("SOME_VENDOR_FLAG")) {
		t.Errorf("unknown flag token should be kept verbatim: %v", got)
	}
}

func TestBuildFlagsFromProbeLines(t *testing.T) {
	flags, err := buildFlagsFromProbeLines([]string{"1", "0", "0", "0", "1"})
	if err != nil {
		t.Fatalf("buildFlagsFromProbeLines failed: %v", err)
	}
	want := NewBuildFlags(PyDebug, WithThread)
	if !flags.Equal(want) {
		t.Errorf("flags = %v, want %v", flags, want)
	}

	if _, err := buildFlagsFromProbeLines([]string{"1", "0"}); err == nil {
		t.Errorf("short probe output should fail")
	}
}
