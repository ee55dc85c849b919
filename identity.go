package flock

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the runtime-assigned goroutine id of the calling
// goroutine by parsing the header line of its own stack trace. The Go
// runtime has no public goroutine-identity API; this is the standard
// workaround, and it is only ever used here to answer "is the calling
// goroutine one of our own workers, or the pool's owner" — never for
// scheduling decisions.
func goroutineID() uint64 {
	buf := make([]byte, 128)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	// Expected form: "goroutine 123 [running]:\n..."
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}
	buf = buf[len(prefix):]

	idx := bytes.IndexByte(buf, ' ')
	if idx < 0 {
		return 0
	}

	id, err := strconv.ParseUint(string(buf[:idx]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
