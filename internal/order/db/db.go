package db

import (
	"context"
	"database/sql"
	"time"

	"ms-canteen/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- ORDERS ----------------

// CreateOrderWithItems inserts an order and its line items as one
// transaction. Either all rows land or none do.
func (d *DB) CreateOrderWithItems(ctx context.Context, order models.Order, items []models.OrderItem) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&items).Exec(ctx)
		return err
	})
}

func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_number = ?", orderNumber).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder persists the mutable order fields.
func (d *DB) UpdateOrder(ctx context.Context, order models.Order) error {
	_, err := d.Bun.NewUpdate().
		Model(&order).
		Column("payment_status", "order_status", "qr_code_path",
			"payment_intent_id", "payment_id", "updated_at", "picked_up_at").
		Where("id = ?", order.ID).
		Exec(ctx)
	return err
}

// CountOrdersForSlot counts orders admitted against (vendor, slot label) on
// the given calendar day. Day scoping uses created_at, matching the
// admission-time semantics: "orders created today for this slot label".
func (d *DB) CountOrdersForSlot(ctx context.Context, vendorID, slot string, day time.Time) (int, error) {
	nextDay := day.AddDate(0, 0, 1)
	return d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		Where("vendor_id = ?", vendorID).
		Where("pickup_time = ?", slot).
		Where("created_at >= ?", day).
		Where("created_at < ?", nextDay).
		Count(ctx)
}

func (d *DB) GetItemsByOrder(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := d.Bun.NewSelect().
		Model(&items).
		Where("order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetOrdersByStudent lists a student's orders, newest first.
func (d *DB) GetOrdersByStudent(ctx context.Context, studentID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrdersByVendorForDay lists a vendor's orders created on one day,
// oldest first, for the dashboard.
func (d *DB) GetOrdersByVendorForDay(ctx context.Context, vendorID string, day time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("vendor_id = ?", vendorID).
		Where("created_at >= ?", day).
		Where("created_at < ?", day.AddDate(0, 0, 1)).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ---------------- VENDORS & MENU ----------------

func (d *DB) GetVendor(ctx context.Context, id string) (*models.Vendor, error) {
	var vendor models.Vendor
	err := d.Bun.NewSelect().
		Model(&vendor).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// UpdateVendorSlotConfig persists only the slot_config column.
func (d *DB) UpdateVendorSlotConfig(ctx context.Context, vendor models.Vendor) error {
	_, err := d.Bun.NewUpdate().
		Model(&vendor).
		Column("slot_config").
		Where("id = ?", vendor.ID).
		Exec(ctx)
	return err
}

// GetMenuItems resolves cart item ids against the live menu.
func (d *DB) GetMenuItems(ctx context.Context, ids []string) ([]models.MenuItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.MenuItem
	err := d.Bun.NewSelect().
		Model(&items).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (d *DB) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := d.Bun.NewSelect().
		Model(&item).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateMenuItemAvailability persists only the is_available column.
func (d *DB) UpdateMenuItemAvailability(ctx context.Context, item models.MenuItem) error {
	_, err := d.Bun.NewUpdate().
		Model(&item).
		Column("is_available").
		Where("id = ?", item.ID).
		Exec(ctx)
	return err
}

func (d *DB) GetMenuByVendor(ctx context.Context, vendorID string) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := d.Bun.NewSelect().
		Model(&items).
		Where("vendor_id = ?", vendorID).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}
