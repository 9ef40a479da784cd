package pipeline

// loadError signals that the underlying pipeline resource could not be
// initialized (engine unreachable, model file missing, device incompatible).
type loadError struct{ msg string }

func (e loadError) Error() string { return "load failed: " + e.msg }

// ErrLoad constructs a loadError.
func ErrLoad(msg string) error { return loadError{msg: msg} }

// IsLoadError reports whether err came from a failed load.
func IsLoadError(err error) bool {
	_, ok := err.(loadError)
	return ok
}

// runError signals an inference failure for any reason.
type runError struct{ msg string }

func (e runError) Error() string { return "run failed: " + e.msg }

// ErrRun constructs a runError.
func ErrRun(msg string) error { return runError{msg: msg} }

// IsRunError reports whether err came from a failed inference call.
func IsRunError(err error) bool {
	_, ok := err.(runError)
	return ok
}
