package identity

import (
	"log/slog"
	"sync"
	"time"

	"github.com/EliasAN1/Stacktictoe/internal/dependencies/clock"
	"github.com/EliasAN1/Stacktictoe/internal/model"
)

// RegistryInterface defines the operations for claiming display names
type RegistryInterface interface {
	Reserve(name string) error
	Bind(name string, conn model.ConnID) error
	Release(name string)
	Lookup(name string) (model.ConnID, error)
	NameOf(conn model.ConnID) (string, bool)
}

// Config holds configuration for the registry
type Config struct {
	// ReservationGrace is how long a provisional reservation survives without a Bind
	ReservationGrace time.Duration
}

// DefaultConfig returns default registry configuration
func DefaultConfig() Config {
	return Config{
		ReservationGrace: 5 * time.Second,
	}
}

type entry struct {
	identity model.Identity
	timer    clock.Timer
}

// Registry maps display names to the single connection using each one.
// It is safe for concurrent use; reservation timers fire on their own goroutine.
type Registry struct {
	clock  clock.Clock
	logger *slog.Logger
	grace  time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	byConn  map[model.ConnID]string
}

// Ensure Registry implements RegistryInterface
var _ RegistryInterface = (*Registry)(nil)

// New creates a new Registry
func New(clock clock.Clock, cfg Config, logger *slog.Logger) *Registry {
	if cfg.ReservationGrace <= 0 {
		cfg.ReservationGrace = DefaultConfig().ReservationGrace
	}
	return &Registry{
		clock:   clock,
		logger:  logger.With(slog.String("component", "identity")),
		grace:   cfg.ReservationGrace,
		entries: make(map[string]*entry),
		byConn:  make(map[model.ConnID]string),
	}
}

// Reserve places a provisional hold on a name. The hold lapses after the
// grace period unless the name is bound first.
func (r *Registry) Reserve(name string) error {
	if name == "" {
		return model.ErrMalformedEvent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[name]; ok {
		if existing.identity.IsBound() {
			return model.ErrNameTaken
		}
		existing.timer.Stop()
	}

	e := &entry{
		identity: model.Identity{
			Name:        name,
			Provisional: true,
			ReservedAt:  r.clock.Now(),
		},
	}
	e.timer = r.clock.AfterFunc(r.grace, func() { r.expire(name, e) })
	r.entries[name] = e

	r.logger.Debug("name reserved", slog.String("player", name))
	return nil
}

// expire drops a reservation that was never bound
func (r *Registry) expire(name string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries[name] != e || !e.identity.Provisional {
		return
	}
	delete(r.entries, name)
	r.logger.Debug("reservation lapsed", slog.String("player", name))
}

// Bind confirms a name for a connection, replacing any provisional hold.
// A connection holds at most one name; binding a new one releases the old.
func (r *Registry) Bind(name string, conn model.ConnID) error {
	if name == "" || conn == "" {
		return model.ErrMalformedEvent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[name]; ok {
		if existing.identity.IsBound() {
			if existing.identity.Conn == conn {
				return nil
			}
			return model.ErrNameTaken
		}
		if existing.timer != nil {
			existing.timer.Stop()
		}
	}

	if previous, ok := r.byConn[conn]; ok && previous != name {
		delete(r.entries, previous)
	}

	r.entries[name] = &entry{
		identity: model.Identity{
			Name:       name,
			Conn:       conn,
			ReservedAt: r.clock.Now(),
		},
	}
	r.byConn[conn] = name

	r.logger.Info("name bound", slog.String("player", name), slog.String("conn_id", string(conn)))
	return nil
}

// Release removes a name. Releasing an unknown name is a no-op.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	if e.identity.Conn != "" && r.byConn[e.identity.Conn] == name {
		delete(r.byConn, e.identity.Conn)
	}
	delete(r.entries, name)

	r.logger.Info("name released", slog.String("player", name))
}

// Lookup returns the connection bound to a name
func (r *Registry) Lookup(name string) (model.ConnID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok || !e.identity.IsBound() {
		return "", model.ErrIdentityUnknown
	}
	return e.identity.Conn, nil
}

// NameOf returns the name bound to a connection
func (r *Registry) NameOf(conn model.ConnID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.byConn[conn]
	return name, ok
}

// IsHeld returns true if the name is reserved or bound
func (r *Registry) IsHeld(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[name]
	return ok
}
