package cart

import "sort"

// Line is one requested menu item with a quantity.
type Line struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

// Cart is a per-student, pre-checkout line accumulator. It is an explicit
// value owned by the caller's session context and passed into admission,
// never ambient state.
type Cart struct {
	quantities map[string]int
}

func New() *Cart {
	return &Cart{quantities: make(map[string]int)}
}

// FromLines builds a cart from request lines, merging duplicates and
// dropping non-positive quantities.
func FromLines(lines []Line) *Cart {
	c := New()
	for _, line := range lines {
		c.Add(line.MenuItemID, line.Quantity)
	}
	return c
}

// Add increases the quantity for a menu item.
func (c *Cart) Add(menuItemID string, quantity int) {
	if quantity <= 0 {
		return
	}
	c.quantities[menuItemID] += quantity
}

// SetQuantity pins the quantity for a menu item; zero or less removes it.
func (c *Cart) SetQuantity(menuItemID string, quantity int) {
	if quantity <= 0 {
		delete(c.quantities, menuItemID)
		return
	}
	c.quantities[menuItemID] = quantity
}

// Remove drops a menu item from the cart.
func (c *Cart) Remove(menuItemID string) {
	delete(c.quantities, menuItemID)
}

func (c *Cart) IsEmpty() bool {
	return len(c.quantities) == 0
}

// Lines returns the cart content ordered by menu item id, so admission and
// tests see a deterministic sequence.
func (c *Cart) Lines() []Line {
	lines := make([]Line, 0, len(c.quantities))
	for id, qty := range c.quantities {
		lines = append(lines, Line{MenuItemID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].MenuItemID < lines[j].MenuItemID })
	return lines
}
