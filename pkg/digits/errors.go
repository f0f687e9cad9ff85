package digits

import (
	"errors"
	"fmt"
)

var (
	ErrMultipleFactory   = errors.New("digit factory already registered")
	ErrDigitEventMissing = errors.New("no event to cache digits in")
	ErrDigitNotFound     = errors.New("digit not found")
	// The errors below also match ErrDigitNotFound.
	ErrDigitNotAvailable = fmt.Errorf("%w: digits not available", ErrDigitNotFound)
	ErrDigitMismatch     = fmt.Errorf("%w: proxy does not match container", ErrDigitNotFound)
	ErrDigitTypeInvalid  = fmt.Errorf("%w: invalid proxy type", ErrDigitNotFound)
)

// ErrFactory reports a digit factory that could not build its digits.
type ErrFactory struct {
	Name string
	Err  error
}

func (e *ErrFactory) Error() string {
	return fmt.Sprintf("digit factory %q failed: %v", e.Name, e.Err)
}

func (e *ErrFactory) Unwrap() error {
	return e.Err
}
