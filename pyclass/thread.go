package pyclass

import "fmt"

// ---------------------------------------------------------------------------
// Thread checker: Per-instance OS thread affinity
// ---------------------------------------------------------------------------

// ensureThread binds an unbound affine layer to the current thread and
// panics on access from any other thread. Sendable layers pass silently.
// A cross-thread access is a bug in the embedding application, which the
// host runtime cannot catch on its own for native-interop objects, so it is
// surfaced at the call site rather than deferred.
func (ct *Contents) ensureThread() {
	if ct.class.threadPolicy == Sendable {
		return
	}
	tid := currentThreadID()
	if ct.thread.CompareAndSwap(0, tid) {
		return
	}
	if bound := ct.thread.Load(); bound != tid {
		panic(fmt.Sprintf("pyclass: %s is unsendable, but sent to another thread (bound to thread %d, accessed from %d)",
			ct.class.name, bound, tid))
	}
}

// checkThread is the non-mutating variant used during deallocation: it
// never binds and never panics, it only reports whether touching the layer
// from the current thread is safe.
func (ct *Contents) checkThread() bool {
	if ct.class.threadPolicy == Sendable {
		return true
	}
	bound := ct.thread.Load()
	return bound == 0 || bound == currentThreadID()
}
