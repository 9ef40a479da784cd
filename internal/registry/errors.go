package registry

// unknownModelError signals a lookup for a name that was never registered.
type unknownModelError struct{ name string }

func (e unknownModelError) Error() string { return "unknown model: " + e.name }

// ErrUnknownModel constructs an unknownModelError.
func ErrUnknownModel(name string) error { return unknownModelError{name: name} }

// IsUnknownModel reports whether the error indicates a registry lookup miss.
func IsUnknownModel(err error) bool {
	_, ok := err.(unknownModelError)
	return ok
}

// pairError signals that an operation defined only for exactly two
// registered models was called on a registry of a different size.
type pairError struct{ size int }

func (e pairError) Error() string {
	return "operation requires exactly two registered models"
}

// IsPairError reports whether the error indicates a registry of the wrong size.
func IsPairError(err error) bool {
	_, ok := err.(pairError)
	return ok
}
