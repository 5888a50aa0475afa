package db

import (
	"context"
	"log"

	"ms-canteen/internal/models"

	"github.com/uptrace/bun"
)

// Migrate creates the canteen tables if they are missing.
func Migrate(db *bun.DB) {
	ctx := context.Background()

	tables := []interface{}{
		(*models.Vendor)(nil),
		(*models.MenuItem)(nil),
		(*models.Order)(nil),
		(*models.OrderItem)(nil),
	}

	for _, model := range tables {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		if err != nil {
			log.Fatalf("create table failed: %v", err)
		}
	}

	log.Println("✅ canteen tables ready")
}
