package sbis

import (
	"fmt"
)

type ErrAuth struct {
	error
}

func NewErrAuth(message string) *ErrAuth {
	return &ErrAuth{fmt.Errorf("sbis authentication failed: %s", message)}
}

type ErrNotFound struct {
	error
}

func NewErrNotFound(identifier string) *ErrNotFound {
	return &ErrNotFound{fmt.Errorf("tender %s not found", identifier)}
}

type ErrTransport struct {
	error
}

func NewErrTransport(err error) *ErrTransport {
	return &ErrTransport{fmt.Errorf("sbis request failed: %w", err)}
}

func NewErrTransportStatus(status int) *ErrTransport {
	return &ErrTransport{fmt.Errorf("sbis request failed: unexpected status %d", status)}
}

type ErrMalformedRecord struct {
	error
}

func NewErrMalformedRecord(message string) *ErrMalformedRecord {
	return &ErrMalformedRecord{fmt.Errorf("malformed tender record: %s", message)}
}
