package operations

import (
	"fmt"
	"strings"
	"time"
)

// DeliveryRejected means the mail server accepted none of the recipients.
// No token is registered in that case.
type DeliveryRejected struct {
	Recipients []string
}

func (e *DeliveryRejected) Error() string {
	return fmt.Sprintf("DeliveryRejected: %s", strings.Join(e.Recipients, ", "))
}

type InvalidTTL struct {
	TTL time.Duration
}

func (e *InvalidTTL) Error() string {
	return fmt.Sprintf("InvalidTTL: %v", e.TTL)
}

type TokenNotGenerated struct{}

func (e *TokenNotGenerated) Error() string {
	return "TokenNotGenerated"
}

type NoTransport struct{}

func (e *NoTransport) Error() string {
	return "NoTransport"
}

type CredentialMismatch struct{}

func (e *CredentialMismatch) Error() string {
	return "CredentialMismatch"
}
