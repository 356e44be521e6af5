package services_test

import (
	"encoding/json"
	"testing"

	"mall/internal/apperrors"
	"mall/internal/models"
	"mall/internal/portone"
	"mall/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func seedOrder(t *testing.T, db *gorm.DB, status models.OrderStatus, totalAmount int64) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:          uuid.New().String(),
		UID:         uuid.New().String(),
		UserID:      "user-1",
		TotalAmount: totalAmount,
		Status:      status,
		Items: []models.OrderedProduct{
			{ID: uuid.New().String(), ProductID: "prod-1", Name: "Keyboard", Price: totalAmount, Quantity: 1},
		},
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return order
}

func seedPayment(t *testing.T, db *gorm.DB, order *models.Order, status models.PayStatus) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		ID:            uuid.New().String(),
		UID:           uuid.New().String(),
		OrderID:       order.ID,
		Name:          "Keyboard",
		DesiredAmount: order.TotalAmount,
		BuyerName:     "Test Buyer",
		BuyerEmail:    "buyer@example.com",
		PayMethod:     models.PayMethodCard,
		PayStatus:     status,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("failed to seed payment: %v", err)
	}
	return payment
}

func lookupResult(status string, amount int64) *portone.LookupResult {
	raw, _ := json.Marshal(map[string]interface{}{
		"status": status,
		"amount": map[string]int64{"total": amount},
	})
	return &portone.LookupResult{Status: status, Amount: amount, Raw: raw}
}

func TestPaymentService_CreateByOrder(t *testing.T) {
	db := newTestDB(t)
	service := services.NewPaymentService(db, new(MockPaymentProvider), nil)

	order := seedOrder(t, db, models.OrderStatusRequested, 15000)
	user := &models.User{ID: "user-1", Username: "buyer", FullName: "Test Buyer", Email: "buyer@example.com"}

	payment, err := service.CreateByOrder(order, user)
	assert.NoError(t, err)
	assert.NotEmpty(t, payment.UID)
	assert.Equal(t, int64(15000), payment.DesiredAmount)
	assert.Equal(t, "Test Buyer", payment.BuyerName)
	assert.Equal(t, "buyer@example.com", payment.BuyerEmail)
	assert.Equal(t, models.PayStatusReady, payment.PayStatus)
	assert.False(t, payment.IsPaidOK)

	// A failed previous attempt still allows a retry.
	order.Status = models.OrderStatusFailedPayment
	_, err = service.CreateByOrder(order, user)
	assert.NoError(t, err)

	// A settled order does not.
	order.Status = models.OrderStatusPaid
	_, err = service.CreateByOrder(order, user)
	assert.Error(t, err)
	assert.True(t, apperrors.IsStateConflict(err))
}

func TestPaymentService_Reconcile_Success(t *testing.T) {
	db := newTestDB(t)
	provider := new(MockPaymentProvider)
	publisher := new(MockEventPublisher)
	service := services.NewPaymentService(db, provider, publisher)

	order := seedOrder(t, db, models.OrderStatusRequested, 15000)
	stale := seedPayment(t, db, order, models.PayStatusReady)
	payment := seedPayment(t, db, order, models.PayStatusReady)

	result := lookupResult("PAID", 15000)
	provider.On("Lookup", payment.UID).Return(result, nil).Once()
	publisher.On("Publish", "order", "order.paid", mock.Anything).Return(nil).Once()

	reconciled, err := service.Reconcile(payment.UID)
	assert.NoError(t, err)
	assert.True(t, reconciled.IsPaidOK)
	assert.Equal(t, models.PayStatusPaid, reconciled.PayStatus)
	assert.JSONEq(t, string(result.Raw), string(reconciled.Meta))

	var reloadedOrder models.Order
	assert.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusPaid, reloadedOrder.Status)

	// The stale sibling attempt must be gone.
	var count int64
	assert.NoError(t, db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var missing models.Payment
	err = db.First(&missing, "uid = ?", stale.UID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	provider.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestPaymentService_Reconcile_Idempotent(t *testing.T) {
	db := newTestDB(t)
	provider := new(MockPaymentProvider)
	publisher := new(MockEventPublisher)
	service := services.NewPaymentService(db, provider, publisher)

	order := seedOrder(t, db, models.OrderStatusRequested, 15000)
	seedPayment(t, db, order, models.PayStatusReady)
	payment := seedPayment(t, db, order, models.PayStatusReady)

	provider.On("Lookup", payment.UID).Return(lookupResult("PAID", 15000), nil).Twice()
	publisher.On("Publish", "order", "order.paid", mock.Anything).Return(nil).Twice()

	first, err := service.Reconcile(payment.UID)
	assert.NoError(t, err)

	// A duplicate webhook delivery replays the same reconciliation. It must
	// reproduce the same terminal state, including the already-empty
	// sibling delete.
	second, err := service.Reconcile(payment.UID)
	assert.NoError(t, err)

	assert.Equal(t, first.PayStatus, second.PayStatus)
	assert.Equal(t, first.IsPaidOK, second.IsPaidOK)

	var reloadedOrder models.Order
	assert.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusPaid, reloadedOrder.Status)

	var count int64
	assert.NoError(t, db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	provider.AssertExpectations(t)
}

func TestPaymentService_Reconcile_AmountMismatch(t *testing.T) {
	db := newTestDB(t)
	provider := new(MockPaymentProvider)
	publisher := new(MockEventPublisher)
	service := services.NewPaymentService(db, provider, publisher)

	order := seedOrder(t, db, models.OrderStatusRequested, 9000)
	payment := seedPayment(t, db, order, models.PayStatusReady)

	// Provider settled 10000 but 9000 was requested: the payment must not
	// be accepted and the order must not move to PAID.
	provider.On("Lookup", payment.UID).Return(lookupResult("PAID", 10000), nil).Once()

	reconciled, err := service.Reconcile(payment.UID)
	assert.NoError(t, err)
	assert.False(t, reconciled.IsPaidOK)
	assert.Equal(t, models.PayStatusPaid, reconciled.PayStatus)

	var reloadedOrder models.Order
	assert.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusRequested, reloadedOrder.Status)

	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	provider.AssertExpectations(t)
}

func TestPaymentService_Reconcile_Failed(t *testing.T) {
	db := newTestDB(t)
	provider := new(MockPaymentProvider)
	publisher := new(MockEventPublisher)
	service := services.NewPaymentService(db, provider, publisher)

	order := seedOrder(t, db, models.OrderStatusRequested, 15000)
	payment := seedPayment(t, db, order, models.PayStatusReady)

	provider.On("Lookup", payment.UID).Return(lookupResult("FAILED", 0), nil).Once()
	publisher.On("Publish", "order", "order.failed_payment", mock.Anything).Return(nil).Once()

	reconciled, err := service.Reconcile(payment.UID)
	assert.NoError(t, err)
	assert.False(t, reconciled.IsPaidOK)
	assert.Equal(t, models.PayStatusFailed, reconciled.PayStatus)

	var reloadedOrder models.Order
	assert.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusFailedPayment, reloadedOrder.Status)
}

func TestPaymentService_Reconcile_PendingLeavesOrderUnchanged(t *testing.T) {
	db := newTestDB(t)
	provider := new(MockPaymentProvider)
	service := services.NewPaymentService(db, provider, nil)

	order := seedOrder(t, db, models.OrderStatusRequested, 15000)
	payment := seedPayment(t, db, order, models.PayStatusReady)

	provider.On("Lookup", payment.UID).Return(lookupResult("VIRTUAL_ACCOUNT_ISSUED", 0), nil).Once()

	reconciled, err := service.Reconcile(payment.UID)
	assert.NoError(t, err)
	assert.Equal(t, models.PayStatusVirtualAccountIssued, reconciled.PayStatus)

	var reloadedOrder models.Order
	assert.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusRequested, reloadedOrder.Status)
}

func TestPaymentService_Reconcile_ProviderErrors(t *testing.T) {
	db := newTestDB(t)
	provider := new(MockPaymentProvider)
	service := services.NewPaymentService(db, provider, nil)

	order := seedOrder(t, db, models.OrderStatusRequested, 15000)
	payment := seedPayment(t, db, order, models.PayStatusReady)

	provider.On("Lookup", payment.UID).Return(nil, apperrors.ErrProviderNotFound).Once()
	_, err := service.Reconcile(payment.UID)
	assert.ErrorIs(t, err, apperrors.ErrProviderNotFound)

	// Nothing was persisted for the failed attempt.
	var reloaded models.Payment
	assert.NoError(t, db.First(&reloaded, "uid = ?", payment.UID).Error)
	assert.Equal(t, models.PayStatusReady, reloaded.PayStatus)

	_, err = service.Reconcile("no-such-payment")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPaymentService_CancelPayment_RequiresPaid(t *testing.T) {
	db := newTestDB(t)
	provider := new(MockPaymentProvider)
	service := services.NewPaymentService(db, provider, nil)

	order := seedOrder(t, db, models.OrderStatusRequested, 15000)
	payment := seedPayment(t, db, order, models.PayStatusReady)

	err := service.CancelPayment(payment.UID, "customer request")
	assert.Error(t, err)
	assert.True(t, apperrors.IsStateConflict(err))

	// No network call may be made for a payment that never settled.
	provider.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestPaymentService_CancelPayment_Success(t *testing.T) {
	db := newTestDB(t)
	provider := new(MockPaymentProvider)
	publisher := new(MockEventPublisher)
	service := services.NewPaymentService(db, provider, publisher)

	order := seedOrder(t, db, models.OrderStatusPaid, 15000)
	payment := seedPayment(t, db, order, models.PayStatusPaid)

	provider.On("Cancel", payment.UID, "customer request").Return(json.RawMessage(`{"status":"CANCELLED"}`), nil).Once()
	publisher.On("Publish", "order", "order.cancelled", mock.Anything).Return(nil).Once()

	err := service.CancelPayment(payment.UID, "customer request")
	assert.NoError(t, err)

	var reloadedPayment models.Payment
	assert.NoError(t, db.First(&reloadedPayment, "uid = ?", payment.UID).Error)
	assert.Equal(t, models.PayStatusCancelled, reloadedPayment.PayStatus)
	assert.False(t, reloadedPayment.IsPaidOK)

	var reloadedOrder models.Order
	assert.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusCancelled, reloadedOrder.Status)

	provider.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestPaymentService_CancelPayment_ProviderRejection(t *testing.T) {
	db := newTestDB(t)
	provider := new(MockPaymentProvider)
	service := services.NewPaymentService(db, provider, nil)

	order := seedOrder(t, db, models.OrderStatusPaid, 15000)
	payment := seedPayment(t, db, order, models.PayStatusPaid)

	rejection := &apperrors.CancelError{Code: apperrors.CancelAlreadyCancelled, Message: "already cancelled"}
	provider.On("Cancel", payment.UID, "late cancel").Return(nil, rejection).Once()

	err := service.CancelPayment(payment.UID, "late cancel")
	assert.Error(t, err)

	ce, ok := apperrors.AsCancelError(err)
	assert.True(t, ok)
	assert.Equal(t, apperrors.CancelAlreadyCancelled, ce.Code)

	// Local state must be untouched on a provider rejection.
	var reloadedPayment models.Payment
	assert.NoError(t, db.First(&reloadedPayment, "uid = ?", payment.UID).Error)
	assert.Equal(t, models.PayStatusPaid, reloadedPayment.PayStatus)

	var reloadedOrder models.Order
	assert.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusPaid, reloadedOrder.Status)
}
