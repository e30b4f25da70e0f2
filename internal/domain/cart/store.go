package cart

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// StorageKey is the durable key holding the serialized cart.
const StorageKey = "storefront:cart:v1"

var (
	// ErrNotExist is returned by Storage.Read when nothing is stored under the key.
	ErrNotExist = errors.New("cart storage: not found")
	// ErrDisposed is returned by mutations after Dispose.
	ErrDisposed = errors.New("cart store disposed")
	// ErrInvalidItem is returned by Add for a request without a product or with
	// a negative price.
	ErrInvalidItem = errors.New("invalid cart item")
)

// Storage is durable key/value storage that survives restarts.
type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides StorageKey.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// Store owns the cart for one session. It is the only writer of its storage
// key. Mutations are applied in call order and written through to storage
// before they return; storage failures are logged and never undo the
// in-memory change.
type Store struct {
	storage Storage
	key     string
	lg      *zap.Logger

	mu       sync.Mutex
	lines    []Line
	disposed bool
}

// NewStore creates an empty store. Call Load to restore persisted state.
func NewStore(storage Storage, lg *zap.Logger, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		key:     StorageKey,
		lg:      lg,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the in-memory cart with the persisted one. Missing or
// malformed data yields an empty cart.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	data, err := s.storage.Read(ctx, s.key)
	switch {
	case errors.Is(err, ErrNotExist):
		return
	case err != nil:
		s.lg.Warn("Cart load failed, starting empty", zap.String("key", s.key), zap.Error(err))
		return
	}

	var stored []Line
	if err := json.Unmarshal(data, &stored); err != nil {
		s.lg.Warn("Cart data corrupt, starting empty", zap.String("key", s.key), zap.Error(err))
		return
	}
	s.lines = sanitize(stored)
}

// Add merges item into the line with the same key or appends a new line.
// The quantity added is the customization's own quantity, or one.
func (s *Store) Add(ctx context.Context, item Item) (LineKey, error) {
	if strings.TrimSpace(item.ProductID) == "" {
		return "", errors.Wrap(ErrInvalidItem, "product id required")
	}
	if item.UnitPrice.IsNegative() {
		return "", errors.Wrapf(ErrInvalidItem, "negative price for %s", item.ProductID)
	}
	if err := item.Customization.Validate(); err != nil {
		return "", err
	}

	c := item.Customization.clone()
	qty := 1
	if c != nil && c.Quantity > 0 {
		qty = c.Quantity
	}
	if c.IsEmpty() {
		c = nil
	}
	key := KeyFor(item.ProductID, c)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return "", ErrDisposed
	}

	if i := s.index(key); i >= 0 {
		s.lines[i].Quantity += qty
	} else {
		s.lines = append(s.lines, Line{
			ProductID:     item.ProductID,
			Name:          item.Name,
			UnitPrice:     item.UnitPrice,
			Quantity:      qty,
			ImageURL:      item.ImageURL,
			Customization: c,
		})
	}
	s.persist(ctx)
	return key, nil
}

// UpdateQuantity sets the quantity of the line under key. A quantity of zero
// or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, key LineKey, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}

	if i := s.index(key); i >= 0 {
		s.lines[i].Quantity = quantity
	}
	s.persist(ctx)
	return nil
}

// Remove deletes the line under key. Removing an absent key is a no-op.
func (s *Store) Remove(ctx context.Context, key LineKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}

	if i := s.index(key); i >= 0 {
		s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
	}
	s.persist(ctx)
	return nil
}

// Clear empties the cart and persists the empty state.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}

	s.lines = nil
	s.persist(ctx)
	return nil
}

// Snapshot returns a deep copy of the cart. Later mutations do not affect it.
func (s *Store) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Cart{Lines: s.lines}.clone()
}

// Lines returns a copy of the current lines.
func (s *Store) Lines() []Line {
	return s.Snapshot().Lines
}

// TotalItems returns the sum of quantities, recomputed on each call.
func (s *Store) TotalItems() int {
	return s.Snapshot().TotalItems()
}

// Dispose ends the store lifecycle. Reads keep working; mutations fail.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
}

func (s *Store) index(key LineKey) int {
	for i, l := range s.lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

// persist writes the whole cart. Must be called with s.mu held.
func (s *Store) persist(ctx context.Context) {
	lines := s.lines
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		s.lg.Warn("Cart encode failed", zap.Error(err))
		return
	}
	if err := s.storage.Write(ctx, s.key, data); err != nil {
		s.lg.Warn("Cart persist failed, continuing in memory",
			zap.String("key", s.key),
			zap.Int("lines", len(s.lines)),
			zap.Error(err),
		)
	}
}

// sanitize drops unusable stored lines and folds duplicates, keeping the
// first occurrence's position.
func sanitize(stored []Line) []Line {
	out := make([]Line, 0, len(stored))
	pos := make(map[LineKey]int, len(stored))
	for _, l := range stored {
		if l.ProductID == "" || l.Quantity <= 0 || l.UnitPrice.IsNegative() {
			continue
		}
		if l.Customization.IsEmpty() {
			l.Customization = nil
		}
		if i, ok := pos[l.Key()]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		pos[l.Key()] = len(out)
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
