package availability

import (
	"context"
	"fmt"
	"math"
	"time"

	"ms-canteen/internal/models"
	"ms-canteen/internal/slots"
)

type OrderCounter interface {
	CountOrdersForSlot(ctx context.Context, vendorID, slot string, day time.Time) (int, error)
}

type VendorStore interface {
	GetVendor(ctx context.Context, id string) (*models.Vendor, error)
}

// Calculator builds per-slot availability snapshots for the student's slot
// picker. It is a pure read: it may race with concurrent admissions and
// return a slightly stale snapshot, which the admission path re-validates.
type Calculator struct {
	Orders  OrderCounter
	Vendors VendorStore
	Slots   *slots.Generator
}

func NewCalculator(orders OrderCounter, vendors VendorStore, gen *slots.Generator) *Calculator {
	if gen == nil {
		gen = slots.NewGenerator(nil)
	}
	return &Calculator{Orders: orders, Vendors: vendors, Slots: gen}
}

// Compute returns one availability entry per slot label still bookable
// from the current moment. Blacked-out slots carry only a reason; the rest
// carry capacity, booked count, and a floored utilization percentage.
func (c *Calculator) Compute(ctx context.Context, vendorID string) (map[string]models.SlotAvailability, error) {
	v, err := c.Vendors.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("vendor %s: %w", vendorID, err)
	}

	day := c.Slots.Today()
	result := make(map[string]models.SlotAvailability)

	for _, label := range c.Slots.Available() {
		policy := v.SlotConfig.Policy(label)
		if policy.Blackout {
			result[label] = models.SlotAvailability{Available: false, Reason: "Unavailable"}
			continue
		}

		booked, err := c.Orders.CountOrdersForSlot(ctx, vendorID, label, day)
		if err != nil {
			return nil, fmt.Errorf("count bookings for slot %s: %w", label, err)
		}

		percentage := 0
		if policy.Capacity > 0 {
			percentage = booked * 100 / policy.Capacity
		}
		result[label] = models.SlotAvailability{
			Available:  booked < policy.Capacity,
			Capacity:   policy.Capacity,
			Booked:     booked,
			Percentage: percentage,
		}
	}
	return result, nil
}

// Utilization aggregates today's bookings across all non-blackout slots
// for the vendor dashboard headline figure.
func (c *Calculator) Utilization(ctx context.Context, vendorID string) (models.SlotUtilization, error) {
	details, err := c.DetailedUtilization(ctx, vendorID)
	if err != nil {
		return models.SlotUtilization{}, err
	}

	var total, booked int
	for _, d := range details {
		total += d.Capacity
		booked += d.Booked
	}

	utilization := 0.0
	if total > 0 {
		utilization = round1(float64(booked) / float64(total) * 100)
	}
	return models.SlotUtilization{Total: total, Booked: booked, Utilization: utilization}, nil
}

// DetailedUtilization returns one analytics row per bookable slot,
// skipping blacked-out labels.
func (c *Calculator) DetailedUtilization(ctx context.Context, vendorID string) ([]models.SlotUtilizationDetail, error) {
	v, err := c.Vendors.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("vendor %s: %w", vendorID, err)
	}

	day := c.Slots.Today()
	var details []models.SlotUtilizationDetail

	for _, label := range c.Slots.Available() {
		policy := v.SlotConfig.Policy(label)
		if policy.Blackout {
			continue
		}

		booked, err := c.Orders.CountOrdersForSlot(ctx, vendorID, label, day)
		if err != nil {
			return nil, fmt.Errorf("count bookings for slot %s: %w", label, err)
		}

		utilization := 0.0
		if policy.Capacity > 0 {
			utilization = round1(float64(booked) / float64(policy.Capacity) * 100)
		}
		details = append(details, models.SlotUtilizationDetail{
			Time:        label,
			Capacity:    policy.Capacity,
			Booked:      booked,
			Utilization: utilization,
		})
	}
	return details, nil
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
