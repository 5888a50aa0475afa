package order

import "ms-canteen/internal/models"

// validNext encodes the vendor-driven order status machine. Forward skips
// are allowed (a vendor may mark a placed order ready directly); picked_up
// and cancelled are terminal.
var validNext = map[string]map[string]bool{
	models.StatusPlaced: {
		models.StatusConfirmed: true,
		models.StatusPreparing: true,
		models.StatusReady:     true,
		models.StatusPickedUp:  true,
		models.StatusCancelled: true,
	},
	models.StatusConfirmed: {
		models.StatusPreparing: true,
		models.StatusReady:     true,
		models.StatusPickedUp:  true,
		models.StatusCancelled: true,
	},
	models.StatusPreparing: {
		models.StatusReady:     true,
		models.StatusPickedUp:  true,
		models.StatusCancelled: true,
	},
	models.StatusReady: {
		models.StatusPickedUp:  true,
		models.StatusCancelled: true,
	},
	models.StatusPickedUp:  {},
	models.StatusCancelled: {},
}

// CanTransition reports whether an order may move from one status to
// another.
func CanTransition(from, to string) bool {
	return validNext[from][to]
}

// StatusMessage is the student-facing text attached to status events.
func StatusMessage(status string) string {
	switch status {
	case models.StatusConfirmed:
		return "Your order has been confirmed"
	case models.StatusPreparing:
		return "Your order is being prepared"
	case models.StatusReady:
		return "Your order is ready for pickup!"
	case models.StatusPickedUp:
		return "Order picked up successfully"
	case models.StatusCancelled:
		return "Order cancelled"
	default:
		return "Order status updated"
	}
}
