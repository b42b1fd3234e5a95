package core

// Logger is the app-wide logging & error reporting service.
// args are extra values to report alongside msg: errors, maps of extra data...
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
