// Package monitoring holds the process-wide diagnostic logger used by the
// capture pipeline.
package monitoring

import (
	"fmt"
	"log"
	"sync/atomic"
)

type logFunc func(format string, v ...interface{})

var current atomic.Pointer[logFunc]

func init() {
	f := logFunc(log.Printf)
	current.Store(&f)
}

// Logf writes a diagnostic line through the installed logger. It defaults
// to log.Printf.
func Logf(format string, v ...interface{}) {
	(*current.Load())(format, v...)
}

// SetLogger replaces the package logger and returns the previous one so
// tests can restore it. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) (previous func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	next := logFunc(f)
	return *current.Swap(&next)
}

// Prefixed returns a printf-style function that logs through Logf with a
// fixed "[prefix] " tag.
func Prefixed(prefix string) func(format string, v ...interface{}) {
	tag := fmt.Sprintf("[%s] ", prefix)
	return func(format string, v ...interface{}) {
		Logf(tag+format, v...)
	}
}
