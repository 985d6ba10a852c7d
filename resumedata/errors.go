package resumedata

import (
	"errors"
	"fmt"
)

var (
	ErrNotDict           = errors.New("resume data is not a dictionary")
	ErrMissingField      = errors.New("missing field")
	ErrWrongType         = errors.New("wrong type")
	ErrOutOfRange        = errors.New("value out of range")
	ErrUnsupportedFormat = errors.New("unsupported resume data format")
	ErrBothPriorityKinds = errors.New("resume data has both file and piece priorities")
)

// An error with a particular dictionary key.
type FieldError struct {
	Key string
	// The bencode shape the key should have.
	Want string
	Err  error
}

func (me *FieldError) Error() string {
	if me.Want == "" {
		return fmt.Sprintf("resume data field %q: %v", me.Key, me.Err)
	}
	return fmt.Sprintf("resume data field %q: %v (want %s)", me.Key, me.Err, me.Want)
}

func (me *FieldError) Unwrap() error {
	return me.Err
}
