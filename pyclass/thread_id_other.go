//go:build !linux

package pyclass

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentThreadID falls back to the goroutine id on platforms without a
// cheap thread-id syscall. With runtime.LockOSThread the goroutine-to-thread
// mapping is fixed, which is the same pinning affinity checking already
// requires on every platform.
func currentThreadID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	// First line is "goroutine <id> [running]:".
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i > 0 {
		if id, err := strconv.ParseUint(string(buf[:i]), 10, 64); err == nil {
			return id
		}
	}
	return 1
}
