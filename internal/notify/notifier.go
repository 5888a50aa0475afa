package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-canteen/internal/logger"
	"ms-canteen/internal/models"
	"ms-canteen/internal/slots"
	"ms-canteen/internal/sse"
)

// WarningThreshold is the slot utilization percentage at which vendors are
// warned.
const WarningThreshold = 90.0

type OrderCounter interface {
	CountOrdersForSlot(ctx context.Context, vendorID, slot string, day time.Time) (int, error)
}

type VendorStore interface {
	GetVendor(ctx context.Context, id string) (*models.Vendor, error)
}

type Publisher interface {
	Publish(topic, key string, value []byte) error
}

type Emitter interface {
	Emit(room string, ev sse.Event)
}

type Topics struct {
	OrderCreated string
	OrderStatus  string
	SlotWarning  string
	SlotConfig   string
}

// Notifier derives realtime events from order and slot activity. Delivery
// is best-effort, at-most-once: a failed publish is logged and dropped,
// never propagated back to the admission transaction.
type Notifier struct {
	Orders  OrderCounter
	Vendors VendorStore
	SSE     Emitter
	Kafka   Publisher // nil when the event bus is disabled
	Topics  Topics
	Slots   *slots.Generator
	logger  *logger.Logger
}

func NewNotifier(orders OrderCounter, vendors VendorStore, emitter Emitter, producer Publisher, topics Topics, gen *slots.Generator, log *logger.Logger) *Notifier {
	if gen == nil {
		gen = slots.NewGenerator(nil)
	}
	return &Notifier{
		Orders:  orders,
		Vendors: vendors,
		SSE:     emitter,
		Kafka:   producer,
		Topics:  topics,
		Slots:   gen,
		logger:  log,
	}
}

// OrderAdmitted emits new_order to the vendor and re-checks slot occupancy
// for a capacity warning.
func (n *Notifier) OrderAdmitted(ctx context.Context, order models.Order) {
	ev := models.NewOrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
		PickupTime:  order.PickupTime,
	}
	n.emit(sse.VendorRoom(order.VendorID), models.EventNewOrder, ev)
	n.publish(n.Topics.OrderCreated, order.ID, ev)

	n.checkSlotCapacityWarning(ctx, order.VendorID, order.PickupTime)
}

// OrderStatusChanged notifies the student that their order moved.
func (n *Notifier) OrderStatusChanged(ctx context.Context, order models.Order, message string) {
	ev := models.OrderStatusUpdateEvent{
		OrderID: order.ID,
		Status:  order.OrderStatus,
		Message: message,
	}
	n.emit(sse.StudentRoom(order.StudentID), models.EventOrderStatusUpdate, ev)
	n.publish(n.Topics.OrderStatus, order.ID, ev)
}

// SlotConfigUpdated relays a vendor's policy change to its dashboard.
func (n *Notifier) SlotConfigUpdated(ctx context.Context, vendorID string, ev models.SlotConfigUpdatedEvent) {
	n.emit(sse.VendorRoom(vendorID), models.EventSlotConfigUpdated, ev)
	n.publish(n.Topics.SlotConfig, vendorID, ev)
}

func (n *Notifier) checkSlotCapacityWarning(ctx context.Context, vendorID, slot string) {
	v, err := n.Vendors.GetVendor(ctx, vendorID)
	if err != nil {
		n.warnf("capacity check skipped, vendor %s: %v", vendorID, err)
		return
	}
	policy := v.SlotConfig.Policy(slot)

	booked, err := n.Orders.CountOrdersForSlot(ctx, vendorID, slot, n.Slots.Today())
	if err != nil {
		n.warnf("capacity check skipped, slot %s: %v", slot, err)
		return
	}

	utilization := 0.0
	if policy.Capacity > 0 {
		utilization = float64(booked) / float64(policy.Capacity) * 100
	}
	if utilization < WarningThreshold {
		return
	}

	rounded := float64(int(utilization*10)) / 10
	ev := models.SlotCapacityWarningEvent{
		SlotTime:    slot,
		Utilization: rounded,
		Message:     fmt.Sprintf("Slot %s is %.1f%% full!", slot, rounded),
	}
	n.emit(sse.VendorRoom(vendorID), models.EventSlotCapacityWarning, ev)
	n.publish(n.Topics.SlotWarning, vendorID+":"+slot, ev)
}

func (n *Notifier) emit(room, name string, payload interface{}) {
	if n.SSE == nil {
		return
	}
	n.SSE.Emit(room, sse.Event{Name: name, Payload: payload})
}

func (n *Notifier) publish(topic, key string, payload interface{}) {
	if n.Kafka == nil || topic == "" {
		return
	}
	value, err := json.Marshal(payload)
	if err != nil {
		n.warnf("marshal event for %s: %v", topic, err)
		return
	}
	if err := n.Kafka.Publish(topic, key, value); err != nil {
		n.warnf("publish to %s: %v", topic, err)
	}
}

func (n *Notifier) warnf(format string, args ...interface{}) {
	if n.logger != nil {
		n.logger.Warn("NOTIFY", fmt.Sprintf(format, args...))
	}
}
