package session

import (
	"fmt"
	"time"

	"apparel/storefront/internal/config"
	"apparel/storefront/internal/domain"
	"apparel/storefront/internal/filter"
	"apparel/storefront/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Options shape the ledgers of a new session.
type Options struct {
	Policy             ledger.VariantPolicy
	MaxQuantityPerItem int
	MaxItems           int
}

func OptionsFromConfig(cfg config.SessionConfig) Options {
	policy := ledger.ProductOnly
	if cfg.TrackVariants {
		policy = ledger.TrackVariants
	}
	return Options{
		Policy:             policy,
		MaxQuantityPerItem: cfg.MaxQuantityPerItem,
		MaxItems:           cfg.MaxItems,
	}
}

// Session is one browsing session. It exclusively owns its cart, wishlist
// and filter state; none of them are shared with other sessions.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	Cart     *ledger.Cart
	Wishlist *ledger.Wishlist
	Filters  filter.State

	user *domain.User
}

// New starts a session for user, which may be nil for an anonymous shopper.
func New(user *domain.User, opts Options) *Session {
	s := &Session{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Cart: ledger.NewCart(opts.Policy,
			ledger.WithMaxQuantityPerItem(opts.MaxQuantityPerItem),
			ledger.WithMaxItems(opts.MaxItems),
		),
		Wishlist: ledger.NewWishlist(),
	}
	if user != nil {
		u := *user
		s.user = &u
	}

	log.Debugf("Session %s started (policy=%s, user=%s)", s.ID, opts.Policy, s.username())
	return s
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *domain.User {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) IsAdmin() bool {
	return s.user != nil && s.user.IsAdmin
}

// RequireAdmin gates admin operations. It only looks at the flag on the
// session's user record.
func (s *Session) RequireAdmin() error {
	if !s.IsAdmin() {
		return fmt.Errorf("%w: admin capability required", domain.ErrForbidden)
	}
	return nil
}

// AddToCart adds quantity units of a catalog product in the given variant.
func (s *Session) AddToCart(p domain.Product, size, color string, quantity int) (ledger.Key, error) {
	return s.Cart.AddItem(ledger.DescriptorFromProduct(p, size, color), quantity)
}

// ToggleSaved flips the product's wishlist membership.
func (s *Session) ToggleSaved(p domain.Product) (bool, error) {
	return s.Wishlist.Toggle(ledger.WishlistItemFromProduct(p))
}

// Summary is what the header badges and cart sheet footer show.
type Summary struct {
	CartCount     int             `json:"cart_count"`
	CartUnits     int             `json:"cart_units"`
	CartTotal     decimal.Decimal `json:"cart_total"`
	WishlistCount int             `json:"wishlist_count"`
	ActiveFilters int             `json:"active_filters"`
}

func (s *Session) Summary() Summary {
	return Summary{
		CartCount:     s.Cart.Count(),
		CartUnits:     s.Cart.Units(),
		CartTotal:     s.Cart.Total(),
		WishlistCount: s.Wishlist.Count(),
		ActiveFilters: s.Filters.ActiveCount(),
	}
}

// Close tears the session down: ledgers are emptied and filters reset.
func (s *Session) Close() {
	s.Cart.Clear()
	s.Wishlist.Clear()
	s.Filters.Reset()
	log.Debugf("Session %s closed after %s", s.ID, time.Since(s.StartedAt).Round(time.Second))
	s.user = nil
}

func (s *Session) username() string {
	if s.user == nil {
		return "anonymous"
	}
	return s.user.Username
}
