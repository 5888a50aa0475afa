package qr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skip2/go-qrcode"
)

// delimiter joins order number and order id inside the QR payload. Neither
// field ever contains it: order numbers are uppercase alphanumerics and
// order ids are UUIDs.
const delimiter = "|"

// Generator writes redemption QR images to disk and returns their path.
type Generator struct {
	Dir string
}

func NewGenerator(dir string) *Generator {
	return &Generator{Dir: dir}
}

// Generate encodes "orderNumber|orderID" into a PNG under Dir.
func (g *Generator) Generate(orderNumber, orderID string) (string, error) {
	if err := os.MkdirAll(g.Dir, 0755); err != nil {
		return "", fmt.Errorf("create qr directory: %w", err)
	}

	payload := orderNumber + delimiter + orderID
	path := filepath.Join(g.Dir, fmt.Sprintf("qr_%s.png", orderNumber))

	if err := qrcode.WriteFile(payload, qrcode.Low, 256, path); err != nil {
		return "", fmt.Errorf("encode qr for order %s: %w", orderNumber, err)
	}
	return path, nil
}

// Decode splits a scanned QR payload back into order number and order id.
// ok is false for malformed input.
func Decode(data string) (orderNumber, orderID string, ok bool) {
	parts := strings.Split(data, delimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
