package sheets

import "fmt"

type ErrSinkWrite struct {
	error
}

func NewErrSinkWrite(destination string, err error) *ErrSinkWrite {
	return &ErrSinkWrite{fmt.Errorf("writing to %q: %w", destination, err)}
}
