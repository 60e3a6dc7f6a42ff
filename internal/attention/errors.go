package attention

import (
	"errors"
	"fmt"
)

var ErrMalformedTensor = errors.New("malformed attention tensor")

// MalformedTensorError reports a stack whose layer, head or position
// dimensions are not rectangular, or whose data does not match its shape.
type MalformedTensorError struct {
	Path   string
	Reason string
}

func (e *MalformedTensorError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed attention tensor: %s", e.Reason)
	}
	return fmt.Sprintf("malformed attention tensor at %s: %s", e.Path, e.Reason)
}

func (e *MalformedTensorError) Is(target error) bool {
	return target == ErrMalformedTensor
}

func malformed(path, format string, args ...any) error {
	return &MalformedTensorError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
