// Package order validates delivery requests and confirms flower orders.
package order

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Confirmation statuses.
const (
	StatusConfirmed = "confirmed"
	StatusError     = "error"
)

// MinAddressTokens is the number of whitespace-separated parts an address
// needs before it counts as a full street address.
const MinAddressTokens = 3

// Outcome messages returned to the reasoning engine.
const (
	IncompleteAddressMessage = "The address provided is incomplete. I need a full street address to create an order."
	ConfirmedMessage         = "Order has been successfully placed."
)

// Request is an order creation request.
type Request struct {
	FloristID  string `json:"florist_id"`
	Address    string `json:"address"`
	FlowerType string `json:"flower_type"`
	Quantity   int    `json:"quantity"`
	Note       string `json:"note"`
}

// Confirmation is the outcome of Create. It encodes as
// {"order_id","florist_id","status","message"} when confirmed and
// {"status","message"} otherwise.
type Confirmation struct {
	OrderID   string
	FloristID string
	Status    string
	Message   string
}

// MarshalJSON implements json.Marshaler.
func (c Confirmation) MarshalJSON() ([]byte, error) {
	if c.Status != StatusConfirmed {
		return json.Marshal(struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}{c.Status, c.Message})
	}
	return json.Marshal(struct {
		OrderID   string `json:"order_id"`
		FloristID string `json:"florist_id"`
		Status    string `json:"status"`
		Message   string `json:"message"`
	}{c.OrderID, c.FloristID, c.Status, c.Message})
}

// AddressComplete reports whether address looks like a full street
// address rather than a district name.
func AddressComplete(address string) bool {
	return len(strings.Fields(address)) >= MinAddressTokens
}

// Order is a placed order.
type Order struct {
	ID         string    `json:"order_id"`
	FloristID  string    `json:"florist_id"`
	Address    string    `json:"address"`
	FlowerType string    `json:"flower_type"`
	Quantity   int       `json:"quantity"`
	Note       string    `json:"note,omitempty"`
	PlacedAt   time.Time `json:"placed_at"`
}

// Service creates orders.
type Service struct {
	mu     sync.Mutex
	rng    *rand.Rand
	ledger *Ledger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRand sets the source of order numbers.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

// WithLedger records confirmed orders in l.
func WithLedger(l *Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// NewService creates a Service. Without WithLedger it keeps its own.
func NewService(opts ...Option) *Service {
	s := &Service{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.ledger == nil {
		s.ledger = NewLedger()
	}
	return s
}

// Ledger returns the ledger confirmed orders are recorded in.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// Create confirms an order. An incomplete address yields an error
// Confirmation; the order is never placed against it.
func (s *Service) Create(ctx context.Context, req Request) (Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return Confirmation{}, err
	}

	if !AddressComplete(req.Address) {
		return Confirmation{Status: StatusError, Message: IncompleteAddressMessage}, nil
	}

	id := fmt.Sprintf("ORD_%d", s.number())
	s.ledger.record(Order{
		ID:         id,
		FloristID:  req.FloristID,
		Address:    req.Address,
		FlowerType: req.FlowerType,
		Quantity:   req.Quantity,
		Note:       req.Note,
		PlacedAt:   s.now(),
	})

	return Confirmation{
		OrderID:   id,
		FloristID: req.FloristID,
		Status:    StatusConfirmed,
		Message:   ConfirmedMessage,
	}, nil
}

// number returns a value in [1000, 9999].
func (s *Service) number() int {
	if s.rng == nil {
		return 1000 + rand.IntN(9000)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return 1000 + s.rng.IntN(9000)
}

// Ledger is an in-process record of confirmed orders.
type Ledger struct {
	mu     sync.RWMutex
	orders []Order
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) record(o Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = append(l.orders, o)
}

// Orders returns confirmed orders in placement order.
func (l *Ledger) Orders() []Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Order(nil), l.orders...)
}

// Len returns the number of confirmed orders.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}
