package roster

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/models"
)

// Notifier pushes roster changes to the teachers group. Implemented by the
// realtime hub.
type Notifier interface {
	BroadcastToTeachers(event string, payload interface{})
}

// Registry tracks the participants behind currently connected student
// sessions, keyed by connection id. Iteration order is join order.
//
// All mutations happen on the hub dispatch goroutine; the mutex exists so the
// read-only HTTP handlers can take consistent snapshots concurrently.
type Registry struct {
	mu       sync.RWMutex
	byConn   map[string]*models.Participant
	order    []string // connection ids, join order
	notifier Notifier
	logger   *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(notifier Notifier, logger *zap.Logger) *Registry {
	return &Registry{
		byConn:   make(map[string]*models.Participant),
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterStudent creates a participant record for a connection and notifies
// the teachers group with the updated roster. Re-registering an existing
// connection replaces its record in place, keeping its roster slot.
func (r *Registry) RegisterStudent(connID, name string) *models.Participant {
	p := &models.Participant{
		ID:           uuid.New(),
		Name:         name,
		ConnectionID: connID,
	}

	r.mu.Lock()
	if _, exists := r.byConn[connID]; exists {
		r.logger.Info("student re-joined, replacing participant record",
			zap.String("connection_id", connID), zap.String("name", name))
	} else {
		r.order = append(r.order, connID)
	}
	r.byConn[connID] = p
	r.mu.Unlock()

	r.notifyRoster()
	r.logger.Info("student joined",
		zap.String("participant_id", p.ID.String()),
		zap.String("name", name),
		zap.String("connection_id", connID))
	return p
}

// Remove drops the participant for a connection, if any, and notifies the
// teachers group. Removing an unknown connection is a no-op and emits nothing.
func (r *Registry) Remove(connID string) (*models.Participant, bool) {
	r.mu.Lock()
	p, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	delete(r.byConn, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.notifyRoster()
	r.logger.Info("student removed",
		zap.String("participant_id", p.ID.String()),
		zap.String("name", p.Name))
	return p, true
}

// Get returns the participant for a connection id.
func (r *Registry) Get(connID string) (*models.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byConn[connID]
	return p, ok
}

// ByIdentity returns the participant with the given identity. Used by the
// kick flow; absence is not an error.
func (r *Registry) ByIdentity(id uuid.UUID) (*models.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byConn {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// List returns a snapshot of all participants in join order.
func (r *Registry) List() []models.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Participant, 0, len(r.order))
	for _, connID := range r.order {
		out = append(out, *r.byConn[connID])
	}
	return out
}

// Count returns the number of registered participants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// MarkAnswered flags a participant as having answered the current poll.
func (r *Registry) MarkAnswered(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byConn {
		if p.ID == id {
			p.HasAnswered = true
			return
		}
	}
}

// ResetAnswered clears the answered flag on every participant. Called when a
// new poll opens so the one-answer rule is scoped to that poll.
func (r *Registry) ResetAnswered() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byConn {
		p.HasAnswered = false
	}
}

// AllAnswered reports whether every registered participant has answered the
// current poll. Vacuously true when the roster is empty; callers only ask
// after recording an answer.
func (r *Registry) AllAnswered() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byConn {
		if !p.HasAnswered {
			return false
		}
	}
	return true
}

func (r *Registry) notifyRoster() {
	if r.notifier != nil {
		r.notifier.BroadcastToTeachers("student-list-updated", r.List())
	}
}
