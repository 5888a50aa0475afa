package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// DefaultSlotCapacity applies to any slot a vendor has not configured.
const DefaultSlotCapacity = 20

// SlotPolicy is one stored override for a slot label. Fields are pointers
// so a partial update can set capacity without touching blackout, and a
// stored capacity of 0 stays distinguishable from "unset".
type SlotPolicy struct {
	Capacity *int  `json:"capacity,omitempty"`
	Blackout *bool `json:"blackout,omitempty"`
}

// ResolvedSlotPolicy is a policy with defaults applied.
type ResolvedSlotPolicy struct {
	Capacity int
	Blackout bool
}

// SlotConfig maps slot labels ("HH:MM") to their stored overrides. It is
// persisted as a single JSON column on the vendor row.
type SlotConfig map[string]SlotPolicy

// Policy resolves the effective policy for a label, filling in defaults
// for anything unset.
func (c SlotConfig) Policy(label string) ResolvedSlotPolicy {
	resolved := ResolvedSlotPolicy{Capacity: DefaultSlotCapacity}
	p, ok := c[label]
	if !ok {
		return resolved
	}
	if p.Capacity != nil {
		resolved.Capacity = *p.Capacity
	}
	if p.Blackout != nil {
		resolved.Blackout = *p.Blackout
	}
	return resolved
}

// Merge applies a partial update to one label. Nil fields leave the stored
// value untouched.
func (c SlotConfig) Merge(label string, capacity *int, blackout *bool) {
	p := c[label]
	if capacity != nil {
		p.Capacity = capacity
	}
	if blackout != nil {
		p.Blackout = blackout
	}
	c[label] = p
}

func (c SlotConfig) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *SlotConfig) Scan(src interface{}) error {
	if src == nil {
		*c = SlotConfig{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported slot_config type %T", src)
	}
	if len(data) == 0 {
		*c = SlotConfig{}
		return nil
	}
	return json.Unmarshal(data, c)
}

type Vendor struct {
	bun.BaseModel `bun:"table:vendors"`

	ID         string     `bun:"id,pk" json:"id"`
	Name       string     `bun:"name,notnull" json:"name"`
	Location   string     `bun:"location,nullzero" json:"location,omitempty"`
	IsOpen     bool       `bun:"is_open,notnull" json:"is_open"`
	SlotConfig SlotConfig `bun:"slot_config,type:jsonb" json:"slot_config"`
	CreatedAt  time.Time  `bun:"created_at,notnull" json:"created_at"`
}

type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items"`

	ID          string  `bun:"id,pk" json:"id"`
	VendorID    string  `bun:"vendor_id,notnull" json:"vendor_id"`
	Name        string  `bun:"name,notnull" json:"name"`
	Description string  `bun:"description,nullzero" json:"description,omitempty"`
	Price       float64 `bun:"price,notnull" json:"price"`
	Category    string  `bun:"category,nullzero" json:"category,omitempty"`
	IsAvailable bool    `bun:"is_available,notnull" json:"is_available"`
}
