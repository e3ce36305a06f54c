// Package cart holds the mutable shopping cart of one customer and the rules
// for merging, validating and totalling its lines.
package cart

import (
	"errors"
	"math"
	"strings"

	"homekitchen/internal/models"
	"homekitchen/internal/pricing"
)

// MaxQuantity bounds a single line, both on input and after merging.
const MaxQuantity = 9999

var (
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrMissingDishName = errors.New("missing dish name")
	ErrItemNotFound    = errors.New("item not found in cart")
)

// Line is a validated cart line keyed by (KitchenID, DishName).
type Line struct {
	KitchenID models.KitchenID
	DishName  string
	Quantity  int
	UnitPrice float64
}

// Item renders the line for storage and the wire, filling both identifier
// names.
func (l Line) Item() models.CartItem {
	return models.CartItem{
		KitchenID: l.KitchenID.String(),
		ChefID:    l.KitchenID.String(),
		DishName:  l.DishName,
		Quantity:  models.Num(float64(l.Quantity)),
		Price:     models.Num(l.UnitPrice),
	}
}

type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// FromItems rebuilds a cart from stored or cached items. Invalid items are
// dropped and duplicate keys are merged, so a decoded cart always satisfies
// the same invariants as one built through Add. A duplicate that would push
// its line past MaxQuantity is dropped.
func FromItems(items []models.CartItem) *Cart {
	c := New()
	for _, item := range items {
		line, ok := lineFromItem(item)
		if !ok {
			continue
		}
		c.merge(line)
	}
	return c
}

// Valid reports whether an item passes the validity filter applied at every
// read site: resolvable kitchen, non-empty dish, numeric non-negative price
// and a quantity between one and MaxQuantity.
func Valid(item models.CartItem) bool {
	_, ok := lineFromItem(item)
	return ok
}

// FilterValid returns the valid items in their original order.
func FilterValid(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if Valid(item) {
			out = append(out, item)
		}
	}
	return out
}

func lineFromItem(item models.CartItem) (Line, bool) {
	id, err := item.Ref()
	if err != nil {
		return Line{}, false
	}
	if strings.TrimSpace(item.DishName) == "" {
		return Line{}, false
	}
	price, ok := coercePrice(item.Price)
	if !ok {
		return Line{}, false
	}
	qty, ok := coerceQuantity(item.Quantity)
	if !ok || qty < 1 {
		return Line{}, false
	}
	return Line{KitchenID: id, DishName: item.DishName, Quantity: qty, UnitPrice: price}, true
}

// coerceQuantity truncates toward zero; an absent quantity means one. Values
// above MaxQuantity are invalid; values below one come back as zero.
func coerceQuantity(n models.Number) (int, bool) {
	if !n.Present {
		return 1, true
	}
	if !n.Valid {
		return 0, false
	}
	v := math.Trunc(n.Value)
	if v > MaxQuantity {
		return 0, false
	}
	if v < 1 {
		return 0, true
	}
	return int(v), true
}

func coercePrice(n models.Number) (float64, bool) {
	if !n.Present || !n.Valid || n.Value < 0 {
		return 0, false
	}
	return n.Value, true
}

func (c *Cart) index(id models.KitchenID, dishName string) int {
	for i, line := range c.lines {
		if line.KitchenID == id && line.DishName == dishName {
			return i
		}
	}
	return -1
}

// merge reports false, leaving the cart unchanged, when the merged quantity
// would pass MaxQuantity.
func (c *Cart) merge(line Line) bool {
	if i := c.index(line.KitchenID, line.DishName); i >= 0 {
		if c.lines[i].Quantity+line.Quantity > MaxQuantity {
			return false
		}
		c.lines[i].Quantity += line.Quantity
		c.lines[i].UnitPrice = line.UnitPrice
		return true
	}
	c.lines = append(c.lines, line)
	return true
}

// Add merges the item into the cart. An existing (kitchen, dish) line gets
// its quantity increased and its price replaced by the supplied one.
func (c *Cart) Add(item models.CartItem) error {
	id, err := item.Ref()
	if err != nil {
		return err
	}
	if strings.TrimSpace(item.DishName) == "" {
		return ErrMissingDishName
	}
	price, ok := coercePrice(item.Price)
	if !ok {
		return ErrInvalidPrice
	}
	qty, ok := coerceQuantity(item.Quantity)
	if !ok || qty < 1 {
		return ErrInvalidQuantity
	}
	if !c.merge(Line{KitchenID: id, DishName: item.DishName, Quantity: qty, UnitPrice: price}) {
		return ErrInvalidQuantity
	}
	return nil
}

// UpdateQuantity sets an absolute quantity, clamped to one. Quantities above
// MaxQuantity are rejected. Removing a line is a separate operation.
func (c *Cart) UpdateQuantity(item models.CartItem) error {
	id, err := item.Ref()
	if err != nil {
		return err
	}
	if !item.Quantity.Present || !item.Quantity.Valid {
		return ErrInvalidQuantity
	}
	i := c.index(id, item.DishName)
	if i < 0 {
		return ErrItemNotFound
	}
	qty, ok := coerceQuantity(item.Quantity)
	if !ok {
		return ErrInvalidQuantity
	}
	if qty < 1 {
		qty = 1
	}
	c.lines[i].Quantity = qty
	return nil
}

func (c *Cart) Remove(item models.CartItem) error {
	id, err := item.Ref()
	if err != nil {
		return err
	}
	i := c.index(id, item.DishName)
	if i < 0 {
		return ErrItemNotFound
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Items renders the cart for storage and the wire.
func (c *Cart) Items() []models.CartItem {
	out := make([]models.CartItem, 0, len(c.lines))
	for _, line := range c.lines {
		out = append(out, line.Item())
	}
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Totals are recomputed on every call from the snapshot prices.
func (c *Cart) Totals() pricing.Totals {
	entries := make([]pricing.Entry, 0, len(c.lines))
	for _, line := range c.lines {
		entries = append(entries, pricing.Entry{Price: line.UnitPrice, Quantity: line.Quantity})
	}
	return pricing.Compute(entries)
}
