// Package monitoring holds the diagnostic logger shared by the library
// packages. Commands log through the standard library directly; packages that
// may be embedded elsewhere log through Logf so the host can redirect or mute
// them.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs through Logf with a warning marker. Used for conditions the
// protocol tolerates but an operator may want to see, such as a command echo
// that does not match what was written.
func Warnf(format string, v ...interface{}) {
	Logf("warning: "+format, v...)
}
