// Package operations tracks knowledge ingestion runs and publishes their
// lifecycle events to NATS.
//
// Each transition is published as JSON to:
//   - {prefix}.{operation_id}.started
//   - {prefix}.{operation_id}.completed
//   - {prefix}.{operation_id}.failed
//
// Example usage:
//
//	registry := operations.NewRegistry(nc, "knowledge.operations", logger)
//	id := registry.Create(operations.KindRefresh)
//	registry.Started(id)
//	registry.Completed(id, report)
package operations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown or expired operation ids.
var ErrNotFound = errors.New("operation not found")

// DefaultSubjectPrefix is used when the registry is given an empty prefix.
const DefaultSubjectPrefix = "knowledge.operations"

// DefaultTTL is how long finished operations stay queryable.
const DefaultTTL = time.Hour

// Kind names an ingestion run type.
type Kind string

const (
	KindSetup   Kind = "setup"
	KindRefresh Kind = "refresh"
	KindClear   Kind = "clear"
)

// Status is an operation's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Operation is a snapshot of one tracked run.
type Operation struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Publisher sends one message. *nats.Conn implements it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Registry keeps operations in memory and mirrors transitions to a
// Publisher. A nil Publisher disables events; state is still tracked.
type Registry struct {
	mu         sync.RWMutex
	operations map[string]*Operation
	publisher  Publisher
	prefix     string
	ttl        time.Duration
	logger     *zap.Logger
}

// NewRegistry creates a registry. pub may be nil.
func NewRegistry(pub Publisher, prefix string, logger *zap.Logger) *Registry {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if nc, ok := pub.(*nats.Conn); ok && nc == nil {
		pub = nil
	}
	return &Registry{
		operations: make(map[string]*Operation),
		publisher:  pub,
		prefix:     prefix,
		ttl:        DefaultTTL,
		logger:     logger,
	}
}

// SetTTL changes how long finished operations are retained.
func (r *Registry) SetTTL(ttl time.Duration) {
	r.mu.Lock()
	r.ttl = ttl
	r.mu.Unlock()
}

// Create registers a pending operation and returns its id.
func (r *Registry) Create(kind Kind) string {
	now := time.Now().UTC()
	op := &Operation{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.operations[op.ID] = op
	r.mu.Unlock()
	return op.ID
}

// Started marks the operation running and publishes "started".
func (r *Registry) Started(id string) error {
	snap, err := r.transition(id, func(op *Operation) {
		op.Status = StatusRunning
	})
	if err != nil {
		return err
	}
	r.publish(snap, "started")
	return nil
}

// Completed records the result and publishes "completed".
func (r *Registry) Completed(id string, result any) error {
	snap, err := r.transition(id, func(op *Operation) {
		op.Status = StatusCompleted
		op.Result = result
	})
	if err != nil {
		return err
	}
	r.publish(snap, "completed")
	r.scheduleCleanup(id)
	return nil
}

// Failed records the error and publishes "failed".
func (r *Registry) Failed(id string, cause error) error {
	snap, err := r.transition(id, func(op *Operation) {
		op.Status = StatusFailed
		if cause != nil {
			op.Error = cause.Error()
		}
	})
	if err != nil {
		return err
	}
	r.publish(snap, "failed")
	r.scheduleCleanup(id)
	return nil
}

// Get returns a snapshot of the operation.
func (r *Registry) Get(id string) (Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.operations[id]
	if !ok {
		return Operation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *op, nil
}

// Track runs fn as an operation of the given kind and returns its id along
// with fn's result and error.
func (r *Registry) Track(ctx context.Context, kind Kind, fn func(context.Context) (any, error)) (string, any, error) {
	id := r.Create(kind)
	_ = r.Started(id)

	result, err := fn(ctx)
	if err != nil {
		_ = r.Failed(id, err)
		return id, result, err
	}
	_ = r.Completed(id, result)
	return id, result, nil
}

// Subject returns the subject an event for id is published on.
func (r *Registry) Subject(id, event string) string {
	return fmt.Sprintf("%s.%s.%s", r.prefix, id, event)
}

func (r *Registry) transition(id string, mutate func(*Operation)) (Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.operations[id]
	if !ok {
		return Operation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	mutate(op)
	op.UpdatedAt = time.Now().UTC()
	return *op, nil
}

// publish never fails the caller; event delivery is best effort.
func (r *Registry) publish(op Operation, event string) {
	if r.publisher == nil {
		return
	}
	subject := r.Subject(op.ID, event)
	data, err := json.Marshal(op)
	if err != nil {
		r.logger.Warn("marshal operation event failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := r.publisher.Publish(subject, data); err != nil {
		r.logger.Warn("publish operation event failed", zap.String("subject", subject), zap.Error(err))
	}
}

func (r *Registry) scheduleCleanup(id string) {
	r.mu.RLock()
	ttl := r.ttl
	r.mu.RUnlock()
	if ttl <= 0 {
		return
	}
	time.AfterFunc(ttl, func() {
		r.mu.Lock()
		delete(r.operations, id)
		r.mu.Unlock()
	})
}

// Connect dials NATS. An empty url returns (nil, nil) so callers can pass
// the result straight to NewRegistry.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("courtside"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	return nc, nil
}
