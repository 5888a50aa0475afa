package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-canteen/internal/auth"
	"ms-canteen/internal/logger"
	"ms-canteen/internal/sse"

	"github.com/go-chi/chi/v5"
)

// SSEHandler streams realtime order and slot events to dashboards.
type SSEHandler struct {
	Logger  *logger.Logger
	Emitter *sse.Emitter
}

func NewSSEHandler(log *logger.Logger, emitter *sse.Emitter) *SSEHandler {
	return &SSEHandler{Logger: log, Emitter: emitter}
}

// HandleVendorEvents streams a vendor's room. Only the vendor itself may
// subscribe.
func (h *SSEHandler) HandleVendorEvents(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "vendorID")
	if vendorID == "" {
		http.Error(w, "Vendor ID is required", http.StatusBadRequest)
		return
	}

	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}
	if principal.Role != auth.RoleVendor || principal.UserID != vendorID {
		h.Logger.Error("SSE", fmt.Sprintf("Vendor room access denied for user %s", principal.UserID))
		http.Error(w, "Unauthorized access", http.StatusForbidden)
		return
	}

	h.stream(w, r, sse.VendorRoom(vendorID))
}

// HandleStudentEvents streams a student's room. Only the student itself may
// subscribe.
func (h *SSEHandler) HandleStudentEvents(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if studentID == "" {
		http.Error(w, "Student ID is required", http.StatusBadRequest)
		return
	}

	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}
	if principal.Role != auth.RoleStudent || principal.UserID != studentID {
		h.Logger.Error("SSE", fmt.Sprintf("Student room access denied for user %s", principal.UserID))
		http.Error(w, "Unauthorized access", http.StatusForbidden)
		return
	}

	h.stream(w, r, sse.StudentRoom(studentID))
}

func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, room string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	h.setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.Emitter.Subscribe(ctx, room)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"room\":\"%s\"}\n\n", room)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to room %s", room))

	for {
		select {
		case ev, ok := <-eventChan:
			if !ok {
				h.Logger.Debug("SSE", fmt.Sprintf("Channel closed for room %s", room))
				return
			}

			jsonData, err := json.Marshal(ev.Payload)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from room %s", room))
			return
		}
	}
}

func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
