package shop

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweetshop/console/internal/backend"
	"github.com/sweetshop/console/internal/shared/config"
	"github.com/sweetshop/console/internal/shared/debounce"
	"github.com/sweetshop/console/internal/shared/session"
)

var ErrQuantityOutOfRange = errors.New("purchase quantity is out of range")

type (
	servicer interface {
		Browse(context.Context, string) ([]backend.Sweet, error)
		Search(ctx context.Context, sessionID uuid.UUID, token, query, category string) ([]backend.Sweet, bool, error)
		SearchNow(ctx context.Context, token, query, category string) ([]backend.Sweet, error)
		GetSweet(context.Context, string, int) (*backend.Sweet, error)
		Purchase(ctx context.Context, token string, id, quantity, stock int) (*backend.Sweet, error)
	}
	service struct {
		api   *backend.Client
		delay time.Duration

		mu         sync.Mutex
		debouncers map[uuid.UUID]*debounce.Debouncer
	}
)

func NewService(cfg *config.Config, api *backend.Client, sessions *session.Store) servicer {
	s := &service{
		api:        api,
		delay:      cfg.SearchDebounce,
		debouncers: make(map[uuid.UUID]*debounce.Debouncer),
	}
	// Debouncers live exactly as long as their session.
	sessions.OnEvict(s.dropDebouncer)
	return s
}

// Browse fetches the full catalogue without debouncing; page loads and
// post-mutation refreshes go through here.
func (s *service) Browse(ctx context.Context, token string) ([]backend.Sweet, error) {
	return s.api.ListSweets(ctx, token)
}

// Search coalesces keystrokes: the upstream call only fires for the request
// that survives the quiet period. Superseded requests report true in the
// second return and carry no result list.
func (s *service) Search(ctx context.Context, sessionID uuid.UUID, token, query, category string) ([]backend.Sweet, bool, error) {
	if !s.debouncerFor(sessionID).Wait(ctx) {
		return nil, true, nil
	}

	// An emptied search box falls back to the full catalogue.
	if query == "" && category == "" {
		sweets, err := s.api.ListSweets(ctx, token)
		return sweets, false, err
	}

	sweets, err := s.api.SearchSweets(ctx, token, query, category)
	return sweets, false, err
}

// SearchNow runs an upstream search immediately, bypassing the debounce.
// Post-mutation refreshes use this to keep the current filters.
func (s *service) SearchNow(ctx context.Context, token, query, category string) ([]backend.Sweet, error) {
	if query == "" && category == "" {
		return s.api.ListSweets(ctx, token)
	}
	return s.api.SearchSweets(ctx, token, query, category)
}

func (s *service) GetSweet(ctx context.Context, token string, id int) (*backend.Sweet, error) {
	return s.api.GetSweet(ctx, token, id)
}

// Purchase rejects quantities outside [1, stock] before any upstream call.
// Stock is the quantity the user was shown; the backend stays authoritative
// and will reject an oversell that slipped past a stale display.
func (s *service) Purchase(ctx context.Context, token string, id, quantity, stock int) (*backend.Sweet, error) {
	if err := ValidateQuantity(quantity, stock); err != nil {
		return nil, err
	}
	return s.api.Purchase(ctx, token, id, quantity)
}

func (s *service) debouncerFor(sessionID uuid.UUID) *debounce.Debouncer {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.debouncers[sessionID]
	if !ok {
		d = debounce.New(s.delay)
		s.debouncers[sessionID] = d
	}
	return d
}

func (s *service) dropDebouncer(sessionID uuid.UUID) {
	s.mu.Lock()
	if d, ok := s.debouncers[sessionID]; ok {
		d.Stop()
		delete(s.debouncers, sessionID)
	}
	s.mu.Unlock()
}

// ValidateQuantity enforces the purchase range [1, stock].
func ValidateQuantity(quantity, stock int) error {
	if quantity < 1 || quantity > stock {
		return ErrQuantityOutOfRange
	}
	return nil
}

// ClampQuantity pins a requested quantity into [1, stock] for display.
func ClampQuantity(quantity, stock int) int {
	if quantity < 1 {
		return 1
	}
	if quantity > stock {
		return stock
	}
	return quantity
}

// Total computes the purchase preview, price times quantity rounded to two
// decimals.
func Total(price float64, quantity int) float64 {
	return math.Round(price*float64(quantity)*100) / 100
}

// FilterByPrice applies the price-range filter locally over an already
// fetched list. Blank or unparseable bounds are treated as unset.
func FilterByPrice(sweets []backend.Sweet, minStr, maxStr string) []backend.Sweet {
	min, err := strconv.ParseFloat(minStr, 64)
	if err != nil {
		min = 0
	}
	max, err := strconv.ParseFloat(maxStr, 64)
	if err != nil {
		max = math.Inf(1)
	}

	filtered := make([]backend.Sweet, 0, len(sweets))
	for _, sweet := range sweets {
		if sweet.Price >= min && sweet.Price <= max {
			filtered = append(filtered, sweet)
		}
	}
	return filtered
}

// Categories returns the distinct categories of the fetched list, sorted for
// a stable dropdown.
func Categories(sweets []backend.Sweet) []string {
	seen := make(map[string]bool)
	var categories []string
	for _, sweet := range sweets {
		if !seen[sweet.Category] {
			seen[sweet.Category] = true
			categories = append(categories, sweet.Category)
		}
	}
	sort.Strings(categories)
	return categories
}
