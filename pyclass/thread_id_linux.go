//go:build linux

package pyclass

import "golang.org/x/sys/unix"

// currentThreadID returns the kernel thread id. Callers that rely on
// affinity checking must pin their goroutine with runtime.LockOSThread so
// the id stays stable across calls.
func currentThreadID() uint64 {
	return uint64(unix.Gettid())
}
