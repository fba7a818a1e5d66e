package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable means the provider could not be reached or the client is not
// configured with credentials. Callers should treat it as retryable.
var ErrUnavailable = errors.New("payment gateway unavailable")

// RejectedError carries the provider's own message when it declines a
// request. The message is surfaced to the caller verbatim.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request: %s", e.Message)
}

// InitializeParams describes a checkout to be created with the provider.
// Amount is in minor units (cents).
type InitializeParams struct {
	Email       string
	AmountMinor int64
	Currency    string
	Reference   string
	CallbackURL string
	Channels    []string
	Metadata    map[string]any
}

// InitializeResult is the provider's checkout handle.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult is the provider's view of a transaction. Status is normalized
// to "success" or "failed"; anything the provider reports that is not success
// collapses to failed.
type VerifyResult struct {
	Status          string
	GatewayResponse string
	Channel         string
	AmountMinor     int64
	Currency        string
	PaidAt          *time.Time
}

// Gateway is the external payment provider.
type Gateway interface {
	Initialize(ctx context.Context, params InitializeParams) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	// SendPayout pushes money out to an external destination and returns the
	// provider's transfer reference. Amount is in minor units (cents).
	SendPayout(ctx context.Context, destination string, amountMinor int64, currency string) (string, error)
}
