package sse

import (
	"context"
	"sync"
)

// Event is one realtime notification delivered to a room.
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// VendorRoom names the notification topic for a vendor dashboard.
func VendorRoom(vendorID string) string { return "vendor_" + vendorID }

// StudentRoom names the notification topic for a student session.
func StudentRoom(studentID string) string { return "student_" + studentID }

// Emitter fans events out to SSE subscribers, one room per identity.
// Delivery is best-effort: slow clients are skipped, never waited on.
type Emitter struct {
	mu    sync.RWMutex
	rooms map[string][]chan Event
}

func NewEmitter() *Emitter {
	return &Emitter{rooms: make(map[string][]chan Event)}
}

// Subscribe adds a client to a room. The returned channel closes when ctx
// is done.
func (e *Emitter) Subscribe(ctx context.Context, room string) chan Event {
	clientChan := make(chan Event, 10)

	e.mu.Lock()
	e.rooms[room] = append(e.rooms[room], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(room, clientChan)
	}()

	return clientChan
}

// Emit broadcasts to every client in the room without blocking.
func (e *Emitter) Emit(room string, ev Event) {
	e.mu.RLock()
	clients := e.rooms[room]
	e.mu.RUnlock()

	for _, clientChan := range clients {
		select {
		case clientChan <- ev:
		default:
			// Buffer full: drop rather than stall the admission path.
		}
	}
}

func (e *Emitter) remove(room string, clientChan chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.rooms[room]
	for i, ch := range clients {
		if ch == clientChan {
			e.rooms[room] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}
	if len(e.rooms[room]) == 0 {
		delete(e.rooms, room)
	}
}

// ClientCount returns the number of subscribers in a room.
func (e *Emitter) ClientCount(room string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rooms[room])
}
