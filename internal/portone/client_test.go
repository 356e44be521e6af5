package portone_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mall/internal/apperrors"
	"mall/internal/portone"

	"github.com/stretchr/testify/assert"
)

func newTestClient(serverURL string) *portone.Client {
	return portone.NewClient(portone.Config{
		BaseURL:   serverURL,
		APISecret: "test-secret",
		Timeout:   2 * time.Second,
	})
}

func TestClient_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments/pay-123", r.URL.Path)
		assert.Equal(t, "PortOne test-secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"PAID","amount":{"total":15000},"currency":"KRW"}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.Lookup("pay-123")
	assert.NoError(t, err)
	assert.Equal(t, "PAID", result.Status)
	assert.Equal(t, int64(15000), result.Amount)
	// The raw body is kept verbatim for auditing.
	assert.JSONEq(t, `{"status":"PAID","amount":{"total":15000},"currency":"KRW"}`, string(result.Raw))
}

func TestClient_Lookup_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no such payment"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Lookup("pay-unknown")
	assert.ErrorIs(t, err, apperrors.ErrProviderNotFound)
}

func TestClient_Lookup_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Closed immediately: every request fails at the network level.

	client := newTestClient(server.URL)

	_, err := client.Lookup("pay-123")
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
}

func TestClient_Cancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments/pay-123/cancel", r.URL.Path)

		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "customer request", payload["reason"])

		fmt.Fprint(w, `{"cancellation":{"status":"SUCCEEDED"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	raw, err := client.Cancel("pay-123", "customer request")
	assert.NoError(t, err)
	assert.JSONEq(t, `{"cancellation":{"status":"SUCCEEDED"}}`, string(raw))
}

func TestClient_Cancel_DecodesBusinessErrors(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		body       string
		wantCode   apperrors.CancelCode
	}{
		{"not paid", http.StatusConflict, `{"type":"PaymentNotPaidError","message":"payment not paid"}`, apperrors.CancelNotPaid},
		{"already cancelled", http.StatusConflict, `{"type":"PaymentAlreadyCancelledError","message":"already cancelled"}`, apperrors.CancelAlreadyCancelled},
		{"consistency broken", http.StatusConflict, `{"type":"CancellableAmountConsistencyBrokenError","message":"consistency broken"}`, apperrors.CancelAmountConsistencyBroken},
		{"exceeds cancellable", http.StatusConflict, `{"type":"CancelAmountExceedsCancellableAmountError","message":"too much"}`, apperrors.CancelAmountExceedsCancellable},
		{"sum of parts", http.StatusConflict, `{"type":"SumOfPartsExceedsCancelAmountError","message":"parts exceed total"}`, apperrors.CancelSumOfPartsExceedsAmount},
		{"tax free exceeds", http.StatusConflict, `{"type":"CancelTaxFreeAmountExceedsCancellableTaxFreeAmountError","message":"tax free"}`, apperrors.CancelTaxFreeAmountExceeds},
		{"tax exceeds", http.StatusConflict, `{"type":"CancelTaxAmountExceedsCancellableTaxAmountError","message":"tax"}`, apperrors.CancelTaxAmountExceeds},
		{"promotion minimum", http.StatusConflict, `{"type":"RemainedAmountLessThanPromotionMinPaymentAmountError","message":"promotion"}`, apperrors.CancelBelowPromotionMinimumAmount},
		{"unknown conflict", http.StatusConflict, `{"type":"SomethingNewError","message":"unexpected"}`, apperrors.CancelUnknown},
		{"bad request", http.StatusBadRequest, `{"message":"malformed"}`, apperrors.CancelBadRequest},
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad credentials"}`, apperrors.CancelUnauthorized},
		{"forbidden", http.StatusForbidden, `{"message":"rejected"}`, apperrors.CancelForbidden},
		{"not found", http.StatusNotFound, `{"message":"no such payment"}`, apperrors.CancelNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.statusCode)
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			client := newTestClient(server.URL)

			_, err := client.Cancel("pay-123", "reason")
			assert.Error(t, err)

			ce, ok := apperrors.AsCancelError(err)
			assert.True(t, ok, "expected a CancelError, got %v", err)
			assert.Equal(t, tc.wantCode, ce.Code)
		})
	}
}

func TestClient_Cancel_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)

	_, err := client.Cancel("pay-123", "reason")
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
}
