package poll

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/models"
)

// DefaultTimeLimitSeconds is used when a poll is created without a time limit.
const DefaultTimeLimitSeconds = 60

// Broadcaster fans an event out to every connected client. Implemented by the
// realtime hub.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Scheduler marshals a function onto the hub dispatch goroutine so timer
// expiries never race with inbound events. Implemented by the realtime hub.
type Scheduler interface {
	Schedule(fn func())
}

// Roster is the view of the connection registry the manager needs.
type Roster interface {
	ByIdentity(id uuid.UUID) (*models.Participant, bool)
	MarkAnswered(id uuid.UUID)
	ResetAnswered()
	AllAnswered() bool
}

// Manager owns the single active poll slot, its expiry timer, and the
// append-only history of completed polls.
//
// Mutations run on the hub dispatch goroutine; the mutex covers concurrent
// snapshot reads from the HTTP handlers.
type Manager struct {
	mu      sync.RWMutex
	current *models.Poll
	history []models.HistoryEntry
	timer   *time.Timer

	broadcaster Broadcaster
	scheduler   Scheduler
	roster      Roster
	logger      *zap.Logger
}

// NewManager creates a poll manager in the idle state.
func NewManager(broadcaster Broadcaster, scheduler Scheduler, roster Roster, logger *zap.Logger) *Manager {
	return &Manager{
		broadcaster: broadcaster,
		scheduler:   scheduler,
		roster:      roster,
		logger:      logger,
	}
}

// Create opens a new poll, schedules its expiry, and broadcasts poll-created
// to every connection. Fails while an incomplete poll exists. A non-positive
// time limit defaults to DefaultTimeLimitSeconds.
func (m *Manager) Create(question string, options []string, timeLimitSeconds int) (*models.Poll, error) {
	if err := validateOptions(options); err != nil {
		return nil, err
	}
	if timeLimitSeconds <= 0 {
		timeLimitSeconds = DefaultTimeLimitSeconds
	}

	m.mu.Lock()
	if m.current != nil && !m.current.IsComplete {
		m.mu.Unlock()
		return nil, ErrPollAlreadyActive
	}

	p := &models.Poll{
		ID:               uuid.New(),
		Question:         question,
		Options:          append([]string(nil), options...),
		TimeLimitSeconds: timeLimitSeconds,
		CreatedAt:        time.Now(),
		Answers:          make(map[uuid.UUID]string),
		Tally:            make(map[string]int, len(options)),
	}
	for _, opt := range p.Options {
		p.Tally[opt] = 0
	}
	m.current = p

	// The callback re-checks poll identity and completion in Close, so a
	// stale timer for a replaced poll is a no-op.
	pollID := p.ID
	duration := time.Duration(timeLimitSeconds) * time.Second
	m.timer = time.AfterFunc(duration, func() {
		m.scheduler.Schedule(func() { m.Close(pollID) })
	})

	snapshot := p.Snapshot()
	m.mu.Unlock()

	m.roster.ResetAnswered()
	m.broadcaster.Broadcast("poll-created", snapshot)
	m.logger.Info("poll created",
		zap.String("poll_id", pollID.String()),
		zap.String("question", question),
		zap.Int("time_limit_seconds", timeLimitSeconds))
	return snapshot, nil
}

// Submit records one participant's answer on the current poll, updates the
// tally, and broadcasts poll-results-updated. When every registered
// participant has answered, the poll closes immediately.
func (m *Manager) Submit(identity uuid.UUID, option string) error {
	participant, ok := m.roster.ByIdentity(identity)
	if !ok {
		return ErrUnknownParticipant
	}

	m.mu.Lock()
	p := m.current
	if p == nil || p.IsComplete {
		m.mu.Unlock()
		return ErrNoActivePoll
	}
	if _, answered := p.Answers[identity]; answered {
		m.mu.Unlock()
		return ErrAlreadyAnswered
	}
	if _, known := p.Tally[option]; !known {
		m.mu.Unlock()
		return ErrUnknownOption
	}

	p.Answers[identity] = option
	p.Tally[option]++
	pollID := p.ID
	snapshot := p.Snapshot()
	m.mu.Unlock()

	m.roster.MarkAnswered(identity)
	m.broadcaster.Broadcast("poll-results-updated", snapshot)
	m.logger.Info("answer recorded",
		zap.String("poll_id", pollID.String()),
		zap.String("participant", participant.Name),
		zap.String("option", option))

	if m.roster.AllAnswered() {
		m.Close(pollID)
	}
	return nil
}

// Close completes the poll with the given id, cancels its pending timer,
// archives a history entry, and broadcasts poll-ended. Idempotent: closing a
// poll that is already complete or no longer current is a no-op, which makes
// the timer path and the all-answered path safe in either order.
func (m *Manager) Close(pollID uuid.UUID) {
	m.mu.Lock()
	p := m.current
	if p == nil || p.ID != pollID || p.IsComplete {
		m.mu.Unlock()
		m.logger.Debug("close ignored for stale or completed poll",
			zap.String("poll_id", pollID.String()))
		return
	}

	p.IsComplete = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	snapshot := p.Snapshot()
	m.history = append(m.history, models.HistoryEntry{
		Poll:           snapshot,
		TotalResponses: len(p.Answers),
	})
	m.mu.Unlock()

	m.broadcaster.Broadcast("poll-ended", snapshot)
	m.logger.Info("poll ended",
		zap.String("poll_id", pollID.String()),
		zap.Int("total_responses", len(snapshot.Answers)))
}

// Current returns a snapshot of the current poll, or nil when none has been
// created yet. A completed poll remains current until the next one opens.
func (m *Manager) Current() *models.Poll {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Snapshot()
}

// History returns the completed polls, oldest first.
func (m *Manager) History() []models.HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.HistoryEntry, len(m.history))
	copy(out, m.history)
	return out
}

func validateOptions(options []string) error {
	if len(options) == 0 {
		return ErrNoOptions
	}
	seen := make(map[string]bool, len(options))
	for _, opt := range options {
		if opt == "" {
			return ErrBlankOption
		}
		if seen[opt] {
			return ErrDuplicateOption
		}
		seen[opt] = true
	}
	return nil
}
