package ledger

import (
	"fmt"

	"apparel/storefront/internal/domain"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// WishlistItem is a saved product. It has no quantity.
type WishlistItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url,omitempty"`
	Price     decimal.Decimal `json:"price"`
}

// WishlistItemFromProduct snapshots a catalog product for the wishlist.
func WishlistItemFromProduct(p domain.Product) WishlistItem {
	return WishlistItem{
		ProductID: p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		Price:     p.EffectivePrice(),
	}
}

func (w WishlistItem) descriptor() Descriptor {
	return Descriptor{
		ProductID: w.ProductID,
		Name:      w.Name,
		ImageURL:  w.ImageURL,
		Price:     w.Price,
	}
}

// Wishlist is the session's list of saved products, keyed by product id.
// Like Cart it belongs to one session and is not safe for concurrent use.
type Wishlist struct {
	items []WishlistItem
}

func NewWishlist() *Wishlist {
	return &Wishlist{items: make([]WishlistItem, 0)}
}

// AddItem saves a product. Saving a product twice is a no-op.
func (w *Wishlist) AddItem(item WishlistItem) error {
	if item.ProductID == 0 {
		return domain.ErrMissingProductID
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	if w.index(item.ProductID) >= 0 {
		return nil
	}
	w.items = append(w.items, item)
	return nil
}

// RemoveItem drops a saved product if present.
func (w *Wishlist) RemoveItem(productID int64) {
	if i := w.index(productID); i >= 0 {
		w.items = append(w.items[:i], w.items[i+1:]...)
	}
}

// Toggle saves the product if absent and removes it otherwise.
// It returns whether the product is saved afterwards.
func (w *Wishlist) Toggle(item WishlistItem) (bool, error) {
	if w.IsSaved(item.ProductID) {
		w.RemoveItem(item.ProductID)
		return false, nil
	}
	if err := w.AddItem(item); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Wishlist) IsSaved(productID int64) bool {
	return w.index(productID) >= 0
}

// MoveToCart adds one unit of the item to cart and then drops it from the
// wishlist. If the cart rejects the item the wishlist is left as it was.
func (w *Wishlist) MoveToCart(item WishlistItem, cart *Cart) (Key, error) {
	key, err := cart.AddItem(item.descriptor(), 1)
	if err != nil {
		return Key{}, fmt.Errorf("move product %d to cart: %w", item.ProductID, err)
	}
	w.RemoveItem(item.ProductID)
	log.Debugf("Moved product %d from wishlist to cart", item.ProductID)
	return key, nil
}

// Items returns a copy of the saved products in insertion order.
func (w *Wishlist) Items() []WishlistItem {
	items := make([]WishlistItem, len(w.items))
	copy(items, w.items)
	return items
}

func (w *Wishlist) Count() int {
	return len(w.items)
}

func (w *Wishlist) Clear() {
	w.items = make([]WishlistItem, 0)
}

func (w *Wishlist) index(productID int64) int {
	for i := range w.items {
		if w.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
