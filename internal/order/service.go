package order

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"ms-canteen/internal/cart"
	"ms-canteen/internal/logger"
	"ms-canteen/internal/models"
	"ms-canteen/internal/qr"
	"ms-canteen/internal/slots"

	"github.com/google/uuid"
)

type DBLayer interface {
	CreateOrderWithItems(ctx context.Context, order models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order models.Order) error
	CountOrdersForSlot(ctx context.Context, vendorID, slot string, day time.Time) (int, error)
	GetItemsByOrder(ctx context.Context, orderID string) ([]models.OrderItem, error)
	GetOrdersByStudent(ctx context.Context, studentID string) ([]models.Order, error)
	GetOrdersByVendorForDay(ctx context.Context, vendorID string, day time.Time) ([]models.Order, error)
	GetVendor(ctx context.Context, id string) (*models.Vendor, error)
	GetMenuItems(ctx context.Context, ids []string) ([]models.MenuItem, error)
}

type SlotLocker interface {
	Acquire(ctx context.Context, vendorID, slot string, day time.Time, token string) (bool, error)
	Release(ctx context.Context, vendorID, slot string, day time.Time, token string) error
}

type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amountMinorUnits int64, currency string) (string, error)
}

type ArtifactGenerator interface {
	Generate(orderNumber, orderID string) (string, error)
}

type Notifier interface {
	OrderAdmitted(ctx context.Context, order models.Order)
	OrderStatusChanged(ctx context.Context, order models.Order, message string)
}

// Lock retry budget. Contention windows are a single count+insert, so a
// short spin is enough.
const (
	lockAttempts = 50
	lockBackoff  = 20 * time.Millisecond
)

type OrderService struct {
	DB       DBLayer
	Lock     SlotLocker
	Payments PaymentGateway
	QR       ArtifactGenerator
	Notify   Notifier
	Slots    *slots.Generator
	Currency string
	logger   *logger.Logger
}

func NewOrderService(db DBLayer, lock SlotLocker, payments PaymentGateway, artifacts ArtifactGenerator, notify Notifier, gen *slots.Generator, currency string, log *logger.Logger) *OrderService {
	if gen == nil {
		gen = slots.NewGenerator(nil)
	}
	return &OrderService{
		DB:       db,
		Lock:     lock,
		Payments: payments,
		QR:       artifacts,
		Notify:   notify,
		Slots:    gen,
		Currency: currency,
		logger:   log,
	}
}

// ---------------- ADMISSION ----------------

// PlaceOrder converts a cart into a persisted order against a pickup slot.
// The capacity check and the order insert run while the per-(vendor, slot,
// day) admission lock is held, so at most `capacity` orders ever commit.
func (s *OrderService) PlaceOrder(ctx context.Context, studentID string, c *cart.Cart, pickupTime, paymentMethod, specialInstructions string) (*models.Order, error) {
	if c == nil || c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if !slots.ValidLabel(pickupTime) {
		return nil, fmt.Errorf("%w: malformed slot label %q", ErrSlotUnavailable, pickupTime)
	}
	if paymentMethod != models.PaymentMethodOnline && paymentMethod != models.PaymentMethodCOD {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, paymentMethod)
	}

	lines := c.Lines()
	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.MenuItemID
	}

	menuItems, err := s.DB.GetMenuItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve cart items: %w", err)
	}
	byID := make(map[string]models.MenuItem, len(menuItems))
	for _, item := range menuItems {
		byID[item.ID] = item
	}

	var vendorID string
	for _, line := range lines {
		item, ok := byID[line.MenuItemID]
		if !ok || !item.IsAvailable {
			return nil, fmt.Errorf("%w: %s", ErrMenuItemUnavailable, line.MenuItemID)
		}
		if vendorID == "" {
			vendorID = item.VendorID
		} else if item.VendorID != vendorID {
			return nil, ErrMixedVendorCart
		}
	}

	vendor, err := s.DB.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("vendor %s: %w", vendorID, err)
	}
	policy := vendor.SlotConfig.Policy(pickupTime)
	if policy.Blackout {
		return nil, fmt.Errorf("%w: slot %s is blacked out for vendor %s", ErrSlotUnavailable, pickupTime, vendorID)
	}

	day := s.Slots.Today()
	orderID := uuid.NewString()

	if err := s.acquireSlot(ctx, vendorID, pickupTime, day, orderID); err != nil {
		return nil, err
	}
	defer s.Lock.Release(ctx, vendorID, pickupTime, day, orderID)

	booked, err := s.DB.CountOrdersForSlot(ctx, vendorID, pickupTime, day)
	if err != nil {
		return nil, fmt.Errorf("count bookings for slot %s: %w", pickupTime, err)
	}
	if booked >= policy.Capacity {
		return nil, fmt.Errorf("%w: slot %s for vendor %s (%d/%d)", ErrSlotFull, pickupTime, vendorID, booked, policy.Capacity)
	}

	now := s.Slots.Now()
	orderNumber := GenerateOrderNumber(now)

	var total float64
	items := make([]models.OrderItem, len(lines))
	for i, line := range lines {
		menuItem := byID[line.MenuItemID]
		total += menuItem.Price * float64(line.Quantity)
		items[i] = models.OrderItem{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			Price:      menuItem.Price,
		}
	}

	paymentStatus := models.PaymentStatusPending
	if paymentMethod == models.PaymentMethodCOD {
		paymentStatus = models.PaymentStatusCOD
	}

	newOrder := models.Order{
		ID:                  orderID,
		OrderNumber:         orderNumber,
		StudentID:           studentID,
		VendorID:            vendorID,
		TotalAmount:         total,
		PaymentMethod:       paymentMethod,
		PaymentStatus:       paymentStatus,
		OrderStatus:         models.StatusPlaced,
		PickupTime:          pickupTime,
		SpecialInstructions: specialInstructions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.DB.CreateOrderWithItems(ctx, newOrder, items); err != nil {
		return nil, fmt.Errorf("create order %s: %w", orderNumber, err)
	}
	if s.logger != nil {
		s.logger.LogOrder("ADMITTED", orderNumber, fmt.Sprintf("vendor=%s slot=%s booked=%d/%d", vendorID, pickupTime, booked+1, policy.Capacity))
	}

	if paymentMethod == models.PaymentMethodOnline {
		intentID, err := s.Payments.CreatePaymentIntent(ctx, int64(math.Round(total*100)), s.Currency)
		if err != nil {
			// The order stays pending so confirmation can be retried.
			return &newOrder, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
		}
		newOrder.PaymentIntentID = intentID
		if err := s.DB.UpdateOrder(ctx, newOrder); err != nil {
			return nil, fmt.Errorf("store payment intent for %s: %w", orderNumber, err)
		}
		return &newOrder, nil
	}

	// Cash on pickup: the redemption artifact is issued immediately.
	if path, err := s.QR.Generate(orderNumber, orderID); err != nil {
		if s.logger != nil {
			s.logger.Warn("ORDER", fmt.Sprintf("qr generation failed for %s: %v", orderNumber, err))
		}
	} else {
		newOrder.QRCodePath = path
	}
	if err := s.DB.UpdateOrder(ctx, newOrder); err != nil {
		return nil, fmt.Errorf("finalize order %s: %w", orderNumber, err)
	}

	s.Notify.OrderAdmitted(ctx, newOrder)
	return &newOrder, nil
}

func (s *OrderService) acquireSlot(ctx context.Context, vendorID, slot string, day time.Time, token string) error {
	for attempt := 0; attempt < lockAttempts; attempt++ {
		ok, err := s.Lock.Acquire(ctx, vendorID, slot, day, token)
		if err != nil {
			return fmt.Errorf("acquire admission lock for slot %s: %w", slot, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockBackoff):
		}
	}
	return fmt.Errorf("%w: vendor %s slot %s", ErrSlotContended, vendorID, slot)
}

// ---------------- PAYMENT CONFIRMATION ----------------

// ConfirmPayment records a client-reported successful payment, issues the
// redemption artifact, and fires the admission notifications. Independent
// of order_status.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID, paymentID string) (*models.Order, error) {
	existing, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}

	existing.PaymentID = paymentID
	existing.PaymentStatus = models.PaymentStatusPaid
	existing.UpdatedAt = s.Slots.Now()

	if path, err := s.QR.Generate(existing.OrderNumber, existing.ID); err != nil {
		if s.logger != nil {
			s.logger.Warn("ORDER", fmt.Sprintf("qr generation failed for %s: %v", existing.OrderNumber, err))
		}
	} else {
		existing.QRCodePath = path
	}

	if err := s.DB.UpdateOrder(ctx, *existing); err != nil {
		return nil, fmt.Errorf("confirm payment for %s: %w", existing.OrderNumber, err)
	}

	s.Notify.OrderAdmitted(ctx, *existing)
	return existing, nil
}

// ---------------- LIFECYCLE ----------------

// UpdateStatus is the vendor-initiated status edit. picked_up is also
// reachable through Redeem; both set picked_up_at exactly once.
func (s *OrderService) UpdateStatus(ctx context.Context, vendorID, orderID, newStatus string) (*models.Order, error) {
	existing, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	if existing.VendorID != vendorID {
		return nil, fmt.Errorf("%w: order %s", ErrWrongVendor, existing.OrderNumber)
	}
	if !CanTransition(existing.OrderStatus, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.OrderStatus, newStatus)
	}

	now := s.Slots.Now()
	existing.OrderStatus = newStatus
	existing.UpdatedAt = now
	if newStatus == models.StatusPickedUp {
		existing.PickedUpAt = &now
	}

	if err := s.DB.UpdateOrder(ctx, *existing); err != nil {
		return nil, fmt.Errorf("update status of %s: %w", existing.OrderNumber, err)
	}

	s.Notify.OrderStatusChanged(ctx, *existing, StatusMessage(newStatus))
	return existing, nil
}

// Redeem marks an order picked up by its human-readable order number
// (manual entry at the counter).
func (s *OrderService) Redeem(ctx context.Context, vendorID, orderNumber string) (*models.Order, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	if orderNumber == "" {
		return nil, fmt.Errorf("%w: empty order number", ErrNotFound)
	}

	existing, err := s.DB.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderNumber)
	}
	return s.redeemResolved(ctx, vendorID, existing)
}

// RedeemQR marks an order picked up from a scanned QR payload. The payload
// must decode and match the stored order number.
func (s *OrderService) RedeemQR(ctx context.Context, vendorID, qrData string) (*models.Order, error) {
	orderNumber, orderID, ok := qr.Decode(qrData)
	if !ok {
		return nil, fmt.Errorf("%w: malformed payload", ErrQRMismatch)
	}

	existing, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	if existing.OrderNumber != orderNumber {
		return nil, fmt.Errorf("%w: order number does not match", ErrQRMismatch)
	}
	return s.redeemResolved(ctx, vendorID, existing)
}

// redeemResolved is the shared redemption path: idempotent-rejecting, a
// second attempt fails rather than silently succeeding twice.
func (s *OrderService) redeemResolved(ctx context.Context, vendorID string, existing *models.Order) (*models.Order, error) {
	if existing.VendorID != vendorID {
		return nil, fmt.Errorf("%w: order %s", ErrWrongVendor, existing.OrderNumber)
	}
	if existing.OrderStatus == models.StatusPickedUp {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRedeemed, existing.OrderNumber)
	}

	now := s.Slots.Now()
	existing.OrderStatus = models.StatusPickedUp
	existing.PickedUpAt = &now
	existing.UpdatedAt = now

	if err := s.DB.UpdateOrder(ctx, *existing); err != nil {
		return nil, fmt.Errorf("redeem %s: %w", existing.OrderNumber, err)
	}
	if s.logger != nil {
		s.logger.LogOrder("REDEEMED", existing.OrderNumber, "pickup confirmed")
	}

	s.Notify.OrderStatusChanged(ctx, *existing, StatusMessage(models.StatusPickedUp))
	return existing, nil
}

// ---------------- QUERIES ----------------

// GetOrder returns one order with its line items. Only the student who
// placed the order may read it.
func (s *OrderService) GetOrder(ctx context.Context, studentID, id string) (*models.OrderWithItems, error) {
	existing, err := s.DB.GetOrderByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if existing.StudentID != studentID {
		return nil, fmt.Errorf("%w: order %s", ErrWrongStudent, existing.OrderNumber)
	}
	items, err := s.DB.GetItemsByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("items of order %s: %w", id, err)
	}
	return &models.OrderWithItems{Order: *existing, Items: items}, nil
}

func (s *OrderService) GetStudentOrders(ctx context.Context, studentID string) ([]models.Order, error) {
	return s.DB.GetOrdersByStudent(ctx, studentID)
}

// GetVendorOrders lists the orders admitted against a vendor today, oldest
// first, for the vendor dashboard.
func (s *OrderService) GetVendorOrders(ctx context.Context, vendorID string) ([]models.Order, error) {
	return s.DB.GetOrdersByVendorForDay(ctx, vendorID, s.Slots.Today())
}
