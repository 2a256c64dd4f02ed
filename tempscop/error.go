package tempscop

import "fmt"

// UnsupportedError reports a construct in a region that the polyhedral model
// cannot express. It is raised as a panic inside the analyses and returned as
// an error at their boundary.
type UnsupportedError struct {
	Msg string
}

func (e *UnsupportedError) Error() string {
	return "unsupported: " + e.Msg
}

// Unsupportedf panics with an UnsupportedError.
func Unsupportedf(format string, args ...interface{}) {
	panic(&UnsupportedError{Msg: fmt.Sprintf(format, args...)})
}

// RecoverUnsupported stores a recovered UnsupportedError in *err. Other
// panics are propagated. It must be deferred directly.
func RecoverUnsupported(err *error) {
	if r := recover(); r != nil {
		if u, ok := r.(*UnsupportedError); ok {
			*err = u
			return
		}
		panic(r)
	}
}
