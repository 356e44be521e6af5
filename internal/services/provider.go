package services

import (
	"encoding/json"

	"mall/internal/portone"
)

// PaymentProvider is the slice of the provider API the payment lifecycle
// needs. Satisfied by *portone.Client; mocked in tests.
type PaymentProvider interface {
	Lookup(merchantUID string) (*portone.LookupResult, error)
	Cancel(merchantUID, reason string) (json.RawMessage, error)
}
