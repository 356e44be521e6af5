// Package portone is the HTTP client for the PortOne payment API: payment
// lookup and cancellation. Provider error responses are decoded here, once,
// into the typed errors of internal/apperrors.
package portone

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mall/internal/apperrors"
)

const defaultBaseURL = "https://api.portone.io"

// Config holds the provider credentials and the network timeout applied to
// every call. A timeout surfaces as apperrors.ErrProviderUnavailable.
type Config struct {
	BaseURL   string
	APISecret string
	Timeout   time.Duration
}

// Client talks to the PortOne payments API.
type Client struct {
	baseURL   string
	apiSecret string
	http      *http.Client
}

// NewClient creates a new provider client from the given configuration.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiSecret: cfg.APISecret,
		http:      &http.Client{Timeout: timeout},
	}
}

// LookupResult is the provider's view of a payment: its status, the
// authoritative settled amount, and the raw response body for auditing.
type LookupResult struct {
	Status string
	Amount int64
	Raw    json.RawMessage
}

// Lookup queries the provider for the payment identified by the
// merchant-generated uid. A missing record maps to ErrProviderNotFound,
// a network failure or timeout to ErrProviderUnavailable.
func (c *Client) Lookup(merchantUID string) (*LookupResult, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/payments/%s", c.baseURL, merchantUID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Authorization", "PortOne "+c.apiSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup of payment %s: %w", merchantUID, apperrors.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lookup of payment %s: %w", merchantUID, apperrors.ErrProviderUnavailable)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("payment %s: %w", merchantUID, apperrors.ErrProviderNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup of payment %s returned status %d: %s", merchantUID, resp.StatusCode, body)
	}

	var payload struct {
		Status string `json:"status"`
		Amount struct {
			Total int64 `json:"total"`
		} `json:"amount"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response for payment %s: %w", merchantUID, err)
	}

	return &LookupResult{
		Status: payload.Status,
		Amount: payload.Amount.Total,
		Raw:    json.RawMessage(body),
	}, nil
}

// Cancel asks the provider to cancel a settled payment. On success the raw
// response body is returned; provider business errors come back as
// *apperrors.CancelError, network failures as ErrProviderUnavailable.
func (c *Client) Cancel(merchantUID, reason string) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cancel payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/payments/%s/cancel", c.baseURL, merchantUID), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build cancel request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "PortOne "+c.apiSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cancel of payment %s: %w", merchantUID, apperrors.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cancel of payment %s: %w", merchantUID, apperrors.ErrProviderUnavailable)
	}

	if resp.StatusCode == http.StatusOK {
		return json.RawMessage(body), nil
	}

	return nil, decodeCancelError(resp.StatusCode, body)
}

// decodeCancelError maps the provider's documented cancel failures onto the
// closed CancelError variants. 409 responses carry the business-rule code in
// the error type/message fields.
func decodeCancelError(statusCode int, body []byte) *apperrors.CancelError {
	var payload struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)
	message := payload.Message
	if message == "" {
		message = string(body)
	}
	detail := payload.Type + " " + payload.Message

	switch statusCode {
	case http.StatusBadRequest:
		return &apperrors.CancelError{Code: apperrors.CancelBadRequest, Message: message}
	case http.StatusUnauthorized:
		return &apperrors.CancelError{Code: apperrors.CancelUnauthorized, Message: message}
	case http.StatusForbidden:
		return &apperrors.CancelError{Code: apperrors.CancelForbidden, Message: message}
	case http.StatusNotFound:
		return &apperrors.CancelError{Code: apperrors.CancelNotFound, Message: message}
	case http.StatusConflict:
		for _, rule := range cancelConflictRules {
			if strings.Contains(detail, rule.marker) {
				return &apperrors.CancelError{Code: rule.code, Message: message}
			}
		}
	}
	return &apperrors.CancelError{Code: apperrors.CancelUnknown, Message: message}
}

// cancelConflictRules maps the provider's 409 error identifiers to local
// cancel codes. More specific markers must come before shorter prefixes.
var cancelConflictRules = []struct {
	marker string
	code   apperrors.CancelCode
}{
	{"PaymentNotPaidError", apperrors.CancelNotPaid},
	{"PaymentAlreadyCancelledError", apperrors.CancelAlreadyCancelled},
	{"CancellableAmountConsistencyBrokenError", apperrors.CancelAmountConsistencyBroken},
	{"CancelAmountExceedsCancellableAmountError", apperrors.CancelAmountExceedsCancellable},
	{"SumOfPartsExceedsCancelAmountError", apperrors.CancelSumOfPartsExceedsAmount},
	{"CancelTaxFreeAmountExceedsCancellableTaxFreeAmountError", apperrors.CancelTaxFreeAmountExceeds},
	{"CancelTaxAmountExceedsCancellableTaxAmountError", apperrors.CancelTaxAmountExceeds},
	{"RemainedAmountLessThanPromotionMinPaymentAmountError", apperrors.CancelBelowPromotionMinimumAmount},
}
