package email

import (
	"errors"
	"strings"
)

var (
	ErrNoContent    = errors.New("at least one of text or html must be provided")
	ErrNoRecipients = errors.New("at least one recipient is required")
)

// InvalidAddressesError reports every address of a message that failed
// validation.
type InvalidAddressesError struct {
	Addresses []string
}

func (e *InvalidAddressesError) Error() string {
	return "invalid email address(es): " + strings.Join(e.Addresses, ", ")
}
