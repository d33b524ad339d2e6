package ledger

import (
	"fmt"

	"apparel/storefront/internal/domain"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// LineItem is one row of the cart. UnitPrice is captured when the row is
// created and never refreshed from the catalog.
type LineItem struct {
	Key       Key             `json:"key"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is unit price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart is the session's cart ledger. It is owned by a single browsing
// session and is not safe for concurrent use.
type Cart struct {
	policy             VariantPolicy
	items              []LineItem
	maxQuantityPerItem int
	maxItems           int
}

// CartOption configures a Cart.
type CartOption func(*Cart)

// WithMaxQuantityPerItem caps the quantity of a single line item. Zero disables the cap.
func WithMaxQuantityPerItem(n int) CartOption {
	return func(c *Cart) {
		c.maxQuantityPerItem = n
	}
}

// WithMaxItems caps the number of distinct line items. Zero disables the cap.
func WithMaxItems(n int) CartOption {
	return func(c *Cart) {
		c.maxItems = n
	}
}

// NewCart creates an empty cart keyed under the given policy.
func NewCart(policy VariantPolicy, opts ...CartOption) *Cart {
	c := &Cart{
		policy: policy,
		items:  make([]LineItem, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the identity policy fixed at construction.
func (c *Cart) Policy() VariantPolicy {
	return c.policy
}

// AddItem adds quantity units of the described item. An existing row with
// the same key has its quantity increased; otherwise a row is appended.
// Non-positive quantities are rejected with domain.ErrInvalidQuantity and
// nothing changes.
func (c *Cart) AddItem(d Descriptor, quantity int) (Key, error) {
	key, err := c.policy.Resolve(d)
	if err != nil {
		return Key{}, err
	}
	if quantity <= 0 {
		return Key{}, fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}
	if d.Price.IsNegative() {
		return Key{}, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}

	if i := c.index(key); i >= 0 {
		newQty := c.items[i].Quantity + quantity
		if err := c.checkQuantity(newQty); err != nil {
			return Key{}, err
		}
		c.items[i].Quantity = newQty
		log.Debugf("Cart line %s now has quantity %d", key, newQty)
		return key, nil
	}

	if err := c.checkQuantity(quantity); err != nil {
		return Key{}, err
	}
	if c.maxItems > 0 && len(c.items) >= c.maxItems {
		return Key{}, fmt.Errorf("%w: cart must not contain more than %d items", domain.ErrInvalidInput, c.maxItems)
	}

	c.items = append(c.items, LineItem{
		Key:       key,
		Name:      d.Name,
		ImageURL:  d.ImageURL,
		UnitPrice: d.Price,
		Quantity:  quantity,
	})
	log.Debugf("Cart line %s added with quantity %d", key, quantity)
	return key, nil
}

// UpdateQuantity sets the quantity of a row. A quantity of zero or less
// removes the row. Unknown keys are ignored.
func (c *Cart) UpdateQuantity(key Key, quantity int) error {
	key = c.policy.normalize(key)
	i := c.index(key)
	if i < 0 {
		return nil
	}
	if quantity <= 0 {
		c.removeAt(i)
		return nil
	}
	if err := c.checkQuantity(quantity); err != nil {
		return err
	}
	c.items[i].Quantity = quantity
	return nil
}

// Increment adds one unit to an existing row.
func (c *Cart) Increment(key Key) error {
	item, ok := c.Get(key)
	if !ok {
		return nil
	}
	return c.UpdateQuantity(item.Key, item.Quantity+1)
}

// Decrement removes one unit from an existing row but never goes below one.
// Dropping a row is left to RemoveItem.
func (c *Cart) Decrement(key Key) {
	item, ok := c.Get(key)
	if !ok {
		return
	}
	// Cannot fail: the new quantity is at least one and no larger than the current one.
	_ = c.UpdateQuantity(item.Key, max(1, item.Quantity-1))
}

// RemoveItem deletes a row if present.
func (c *Cart) RemoveItem(key Key) {
	if i := c.index(c.policy.normalize(key)); i >= 0 {
		c.removeAt(i)
		log.Debugf("Cart line %s removed", key)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = make([]LineItem, 0)
}

// Total sums unit price times quantity over every row.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Count is the number of distinct rows, as shown on the cart badge.
func (c *Cart) Count() int {
	return len(c.items)
}

// Units is the total number of units across all rows.
func (c *Cart) Units() int {
	var units int
	for _, item := range c.items {
		units += item.Quantity
	}
	return units
}

// Items returns a copy of the rows in insertion order.
func (c *Cart) Items() []LineItem {
	items := make([]LineItem, len(c.items))
	copy(items, c.items)
	return items
}

// Get returns the row for key.
func (c *Cart) Get(key Key) (LineItem, bool) {
	if i := c.index(c.policy.normalize(key)); i >= 0 {
		return c.items[i], true
	}
	return LineItem{}, false
}

// Contains reports whether a row exists for key.
func (c *Cart) Contains(key Key) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *Cart) index(key Key) int {
	for i := range c.items {
		if c.items[i].Key == key {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

func (c *Cart) checkQuantity(quantity int) error {
	if c.maxQuantityPerItem > 0 && quantity > c.maxQuantityPerItem {
		return fmt.Errorf("%w: quantity must not exceed %d", domain.ErrInvalidQuantity, c.maxQuantityPerItem)
	}
	return nil
}
