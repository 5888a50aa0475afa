package models

import "encoding/json"

// Event names carried over SSE and Kafka.
const (
	EventNewOrder            = "new_order"
	EventOrderStatusUpdate   = "order_status_update"
	EventSlotCapacityWarning = "slot_capacity_warning"
	EventSlotConfigUpdated   = "slot_config_updated"
)

// NewOrderEvent notifies a vendor dashboard about a freshly admitted order.
type NewOrderEvent struct {
	OrderID     string  `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	TotalAmount float64 `json:"total_amount"`
	PickupTime  string  `json:"pickup_time"`
}

// OrderStatusUpdateEvent notifies a student that their order moved.
type OrderStatusUpdateEvent struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SlotCapacityWarningEvent fires when a slot crosses the warning threshold.
type SlotCapacityWarningEvent struct {
	SlotTime    string  `json:"slot_time"`
	Utilization float64 `json:"utilization"`
	Message     string  `json:"message"`
}

// SlotConfigUpdatedEvent notifies subscribers that a vendor changed a slot policy.
type SlotConfigUpdatedEvent struct {
	SlotTime string `json:"slot_time"`
	Capacity int    `json:"capacity"`
	Blackout bool   `json:"blackout"`
}

// SlotAvailability is one entry of the slot picker snapshot.
type SlotAvailability struct {
	Available  bool
	Reason     string
	Capacity   int
	Booked     int
	Percentage int
}

// MarshalJSON omits the numeric fields for blacked-out slots, which carry
// only an availability flag and a reason.
func (a SlotAvailability) MarshalJSON() ([]byte, error) {
	if a.Reason != "" {
		return json.Marshal(struct {
			Available bool   `json:"available"`
			Reason    string `json:"reason"`
		}{a.Available, a.Reason})
	}
	return json.Marshal(struct {
		Available  bool `json:"available"`
		Capacity   int  `json:"capacity"`
		Booked     int  `json:"booked"`
		Percentage int  `json:"percentage"`
	}{a.Available, a.Capacity, a.Booked, a.Percentage})
}

// SlotUtilization is the aggregate dashboard figure for a vendor's day.
type SlotUtilization struct {
	Total       int     `json:"total"`
	Booked      int     `json:"booked"`
	Utilization float64 `json:"utilization"`
}

// SlotUtilizationDetail is one per-slot analytics row.
type SlotUtilizationDetail struct {
	Time        string  `json:"time"`
	Capacity    int     `json:"capacity"`
	Booked      int     `json:"booked"`
	Utilization float64 `json:"utilization"`
}
