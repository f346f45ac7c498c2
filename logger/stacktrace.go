package logger

import (
	"runtime"
	"strconv"
	"strings"
)

const defaultStackDepth = 32

// CaptureStacktrace renders up to depth frames of the calling goroutine,
// skipping the first skip frames as runtime.Callers does. depth <= 0 means 32.
func CaptureStacktrace(skip, depth int) string {
	if depth <= 0 {
		depth = defaultStackDepth
	}
	pcs := make([]uintptr, depth)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(frame.Function)
		b.WriteString("\n\t")
		b.WriteString(frame.File)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(frame.Line))
		if !more {
			return b.String()
		}
	}
}

func shouldCaptureStacktrace(level string, config ManagerConfig) bool {
	return config.EnableStacktrace && ParseLevel(level) >= ParseLevel(config.StacktraceLevel)
}
