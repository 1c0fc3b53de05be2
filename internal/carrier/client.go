package carrier

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Sentinel errors for carrier outcomes the pipeline branches on.
var (
	// ErrNoInventory means the numbering-plan search returned nothing.
	ErrNoInventory = errors.New("no phone numbers available")
	// ErrPurchaseRejected means the carrier declined the purchase,
	// e.g. a regulatory bundle is missing for the country. Not retryable.
	ErrPurchaseRejected = errors.New("carrier rejected the purchase")
)

// TransientError wraps carrier failures worth retrying on a later run
// (network errors, rate limits, 5xx).
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient carrier error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable carrier failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// AvailableNumber is one candidate from the carrier's inventory,
// best match first.
type AvailableNumber struct {
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
	Locality     string `json:"locality"`
}

// PurchasedNumber is the carrier-side resource created by a purchase.
type PurchasedNumber struct {
	SID         string `json:"sid"`
	PhoneNumber string `json:"phone_number"`
}

// CallbackConfig carries the webhook URLs wired to a purchased number.
type CallbackConfig struct {
	VoiceURL          string
	StatusCallbackURL string
}

// Client is the number inventory client: a thin wrapper over the
// carrier's number search/purchase/release API plus authenticated
// recording download.
type Client interface {
	// SearchAvailable queries the carrier inventory for a country.
	// areaCodeHint may be empty. Returns ErrNoInventory when the
	// search comes back empty.
	SearchAvailable(ctx context.Context, countryCode, areaCodeHint string) ([]AvailableNumber, error)

	// Purchase acquires a number and wires it to the given callbacks.
	Purchase(ctx context.Context, number string, callbacks CallbackConfig) (*PurchasedNumber, error)

	// Release relinquishes a previously purchased number. A number the
	// carrier no longer knows counts as released, which keeps retries
	// idempotent.
	Release(ctx context.Context, sid string) error

	// FetchRecording downloads recording media with authenticated
	// access; the carrier does not serve recordings publicly. Returns
	// the body and its content type.
	FetchRecording(ctx context.Context, mediaURL string) (io.ReadCloser, string, error)
}
