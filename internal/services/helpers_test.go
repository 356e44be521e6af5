package services_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"mall/internal/models"
	"mall/internal/portone"

	"github.com/stretchr/testify/mock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a fresh in-memory SQLite database migrated with every
// model. The shared-cache name is derived from the test name so parallel
// tests cannot bleed into each other.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.ProductOption{},
		&models.CartLine{},
		&models.Order{},
		&models.OrderedProduct{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func jsonRaw(s string) json.RawMessage {
	return json.RawMessage(s)
}

// MockPaymentProvider is a mock implementation of services.PaymentProvider.
type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) Lookup(merchantUID string) (*portone.LookupResult, error) {
	args := m.Called(merchantUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portone.LookupResult), args.Error(1)
}

func (m *MockPaymentProvider) Cancel(merchantUID, reason string) (json.RawMessage, error) {
	args := m.Called(merchantUID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// MockEventPublisher is a mock implementation of services.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(exchange, routingKey string, body []byte) error {
	args := m.Called(exchange, routingKey, body)
	return args.Error(0)
}
