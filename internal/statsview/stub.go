//go:build !statsview
// +build !statsview

package statsview

// Launch always fails in this build.
func Launch(addr string) (string, error) {
	return "", ErrUnavailable
}

// Stop does nothing in this build.
func Stop() {}
