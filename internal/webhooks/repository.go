package webhooks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// ErrNotFound is returned when a subscription does not exist.
var ErrNotFound = fmt.Errorf("webhook subscription %w", model.ErrNotFound)

// store is the persistence consumed by Service.
type store interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Subscription, error)
	ListByEvent(ctx context.Context, eventType string) ([]*Subscription, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordDelivery(ctx context.Context, d *Delivery) error
}

const subColumns = `id, user_id, url, events, secret, active, created_at`

// Repository stores subscriptions and delivery attempts in PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a subscription and sets its ID and CreatedAt.
func (r *Repository) Create(ctx context.Context, sub *Subscription) error {
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()
	sub.Active = true

	q := `INSERT INTO webhook_subscriptions (` + subColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.Exec(ctx, q, sub.ID, sub.UserID, sub.URL, sub.Events, sub.Secret, sub.Active, sub.CreatedAt); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// GetByID retrieves a subscription by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	sub, err := scanSub(r.db.QueryRow(ctx, `SELECT `+subColumns+` FROM webhook_subscriptions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

// ListByUser returns a moderator's subscriptions.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Subscription, error) {
	return r.list(ctx, `SELECT `+subColumns+` FROM webhook_subscriptions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListByEvent returns active subscriptions to eventType.
func (r *Repository) ListByEvent(ctx context.Context, eventType string) ([]*Subscription, error) {
	return r.list(ctx, `SELECT `+subColumns+` FROM webhook_subscriptions
	                    WHERE active = true AND $1 = ANY(events) ORDER BY created_at`, eventType)
}

// Delete removes a subscription.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM webhook_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordDelivery logs one delivery attempt.
func (r *Repository) RecordDelivery(ctx context.Context, d *Delivery) error {
	d.ID = uuid.New()
	d.DeliveredAt = time.Now().UTC()
	q := `INSERT INTO webhook_deliveries (id, subscription_id, event_type, status_code, attempt, success, error_message, delivered_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, q, d.ID, d.SubscriptionID, d.EventType, d.StatusCode, d.Attempt, d.Success, d.ErrorMessage, d.DeliveredAt)
	return err
}

func (r *Repository) list(ctx context.Context, q string, arg any) ([]*Subscription, error) {
	rows, err := r.db.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSub(row pgx.Row) (*Subscription, error) {
	var s Subscription
	if err := row.Scan(&s.ID, &s.UserID, &s.URL, &s.Events, &s.Secret, &s.Active, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// MemoryStore is an in-process store for development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	subs       map[uuid.UUID]*Subscription
	deliveries []*Delivery
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[uuid.UUID]*Subscription)}
}

// Create stores a subscription.
func (m *MemoryStore) Create(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()
	sub.Active = true
	cp := *sub
	m.subs[sub.ID] = &cp
	return nil
}

// GetByID returns a copy of the subscription.
func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// ListByUser returns a moderator's subscriptions.
func (m *MemoryStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*Subscription, error) {
	return m.filter(func(s *Subscription) bool { return s.UserID == userID }), nil
}

// ListByEvent returns active subscriptions to eventType.
func (m *MemoryStore) ListByEvent(_ context.Context, eventType string) ([]*Subscription, error) {
	return m.filter(func(s *Subscription) bool { return s.Wants(eventType) }), nil
}

// Delete removes a subscription.
func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return ErrNotFound
	}
	delete(m.subs, id)
	return nil
}

// RecordDelivery keeps the delivery attempt in memory.
func (m *MemoryStore) RecordDelivery(_ context.Context, d *Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uuid.New()
	d.DeliveredAt = time.Now().UTC()
	cp := *d
	m.deliveries = append(m.deliveries, &cp)
	return nil
}

// Deliveries returns a copy of the recorded delivery attempts.
func (m *MemoryStore) Deliveries() []Delivery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Delivery, len(m.deliveries))
	for i, d := range m.deliveries {
		out[i] = *d
	}
	return out
}

func (m *MemoryStore) filter(keep func(*Subscription) bool) []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Subscription
	for _, s := range m.subs {
		if keep(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out
}
