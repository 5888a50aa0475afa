package notify

import (
	"context"
	"testing"
	"time"

	"ms-canteen/internal/models"
	"ms-canteen/internal/slots"
	"ms-canteen/internal/sse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	booked int
	err    error
}

func (f *fakeCounter) CountOrdersForSlot(ctx context.Context, vendorID, slot string, day time.Time) (int, error) {
	return f.booked, f.err
}

type fakeVendors struct {
	vendor *models.Vendor
	err    error
}

func (f *fakeVendors) GetVendor(ctx context.Context, id string) (*models.Vendor, error) {
	return f.vendor, f.err
}

type recordingEmitter struct {
	events []struct {
		Room string
		Ev   sse.Event
	}
}

func (r *recordingEmitter) Emit(room string, ev sse.Event) {
	r.events = append(r.events, struct {
		Room string
		Ev   sse.Event
	}{room, ev})
}

type recordingPublisher struct {
	topics []string
}

func (r *recordingPublisher) Publish(topic, key string, value []byte) error {
	r.topics = append(r.topics, topic)
	return nil
}

func testNotifier(counter *fakeCounter, vendors *fakeVendors, emitter *recordingEmitter, producer *recordingPublisher) *Notifier {
	gen := slots.NewGenerator(func() time.Time {
		return time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	})
	topics := Topics{
		OrderCreated: "canteen.order.created",
		OrderStatus:  "canteen.order.status",
		SlotWarning:  "canteen.slot.warning",
		SlotConfig:   "canteen.slot.config",
	}
	var pub Publisher
	if producer != nil {
		pub = producer
	}
	return NewNotifier(counter, vendors, emitter, pub, topics, gen, nil)
}

func slotConfigWithCapacity(label string, capacity int) models.SlotConfig {
	cfg := models.SlotConfig{}
	cfg.Merge(label, &capacity, nil)
	return cfg
}

func TestOrderAdmittedEmitsNewOrder(t *testing.T) {
	emitter := &recordingEmitter{}
	producer := &recordingPublisher{}
	vendors := &fakeVendors{vendor: &models.Vendor{
		ID:         "vendor-1",
		SlotConfig: slotConfigWithCapacity("10:30", 10),
	}}
	n := testNotifier(&fakeCounter{booked: 1}, vendors, emitter, producer)

	n.OrderAdmitted(context.Background(), models.Order{
		ID:          "order-1",
		OrderNumber: "ORD202503101000ABCD",
		VendorID:    "vendor-1",
		TotalAmount: 150,
		PickupTime:  "10:30",
	})

	require.Len(t, emitter.events, 1)
	assert.Equal(t, sse.VendorRoom("vendor-1"), emitter.events[0].Room)
	assert.Equal(t, models.EventNewOrder, emitter.events[0].Ev.Name)
	assert.Equal(t, []string{"canteen.order.created"}, producer.topics)
}

func TestOrderAdmittedWarnsAtNinetyPercent(t *testing.T) {
	emitter := &recordingEmitter{}
	vendors := &fakeVendors{vendor: &models.Vendor{
		ID:         "vendor-1",
		SlotConfig: slotConfigWithCapacity("10:30", 10),
	}}
	n := testNotifier(&fakeCounter{booked: 9}, vendors, emitter, nil)

	n.OrderAdmitted(context.Background(), models.Order{
		ID:         "order-9",
		VendorID:   "vendor-1",
		PickupTime: "10:30",
	})

	require.Len(t, emitter.events, 2)
	assert.Equal(t, models.EventSlotCapacityWarning, emitter.events[1].Ev.Name)

	warning, ok := emitter.events[1].Ev.Payload.(models.SlotCapacityWarningEvent)
	require.True(t, ok)
	assert.Equal(t, "10:30", warning.SlotTime)
	assert.InDelta(t, 90.0, warning.Utilization, 0.01)
}

func TestOrderAdmittedNoWarningBelowThreshold(t *testing.T) {
	emitter := &recordingEmitter{}
	vendors := &fakeVendors{vendor: &models.Vendor{
		ID:         "vendor-1",
		SlotConfig: slotConfigWithCapacity("10:30", 10),
	}}
	n := testNotifier(&fakeCounter{booked: 8}, vendors, emitter, nil)

	n.OrderAdmitted(context.Background(), models.Order{
		ID:         "order-8",
		VendorID:   "vendor-1",
		PickupTime: "10:30",
	})

	require.Len(t, emitter.events, 1)
	assert.Equal(t, models.EventNewOrder, emitter.events[0].Ev.Name)
}

func TestOrderStatusChangedTargetsStudentRoom(t *testing.T) {
	emitter := &recordingEmitter{}
	producer := &recordingPublisher{}
	n := testNotifier(&fakeCounter{}, &fakeVendors{}, emitter, producer)

	n.OrderStatusChanged(context.Background(), models.Order{
		ID:          "order-1",
		StudentID:   "student-7",
		OrderStatus: models.StatusReady,
	}, "Your order is ready for pickup!")

	require.Len(t, emitter.events, 1)
	assert.Equal(t, sse.StudentRoom("student-7"), emitter.events[0].Room)

	ev, ok := emitter.events[0].Ev.Payload.(models.OrderStatusUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, models.StatusReady, ev.Status)
	assert.Equal(t, []string{"canteen.order.status"}, producer.topics)
}

func TestSlotConfigUpdatedTargetsVendorRoom(t *testing.T) {
	emitter := &recordingEmitter{}
	n := testNotifier(&fakeCounter{}, &fakeVendors{}, emitter, nil)

	n.SlotConfigUpdated(context.Background(), "vendor-1", models.SlotConfigUpdatedEvent{
		SlotTime: "11:00",
		Capacity: 5,
		Blackout: false,
	})

	require.Len(t, emitter.events, 1)
	assert.Equal(t, sse.VendorRoom("vendor-1"), emitter.events[0].Room)
	assert.Equal(t, models.EventSlotConfigUpdated, emitter.events[0].Ev.Name)
}
