package poll

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/roster"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
	polls  []*models.Poll
}

func (f *fakeBroadcaster) Broadcast(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	if p, ok := payload.(*models.Poll); ok {
		f.polls = append(f.polls, p)
	}
}

func (f *fakeBroadcaster) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

// inlineScheduler runs scheduled tasks immediately. The production scheduler
// marshals onto the hub goroutine; for these tests immediate execution
// exercises the same code path.
type inlineScheduler struct{}

func (inlineScheduler) Schedule(fn func()) { fn() }

func newTestManager() (*Manager, *fakeBroadcaster, *roster.Registry) {
	b := &fakeBroadcaster{}
	reg := roster.NewRegistry(nil, zap.NewNop())
	m := NewManager(b, inlineScheduler{}, reg, zap.NewNop())
	return m, b, reg
}

func TestCreateDefaultsTimeLimit(t *testing.T) {
	m, b, _ := newTestManager()

	p, err := m.Create("Color?", []string{"Red", "Blue"}, 0)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.TimeLimitSeconds != DefaultTimeLimitSeconds {
		t.Errorf("expected default time limit %d, got %d", DefaultTimeLimitSeconds, p.TimeLimitSeconds)
	}
	if p.Tally["Red"] != 0 || p.Tally["Blue"] != 0 {
		t.Errorf("tally should start at zero: %v", p.Tally)
	}
	if b.count("poll-created") != 1 {
		t.Errorf("expected one poll-created broadcast, got %v", b.events)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		options []string
		wantErr error
	}{
		{"empty option set", nil, ErrNoOptions},
		{"blank option", []string{"Red", ""}, ErrBlankOption},
		{"duplicate option", []string{"Red", "Red"}, ErrDuplicateOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, b, _ := newTestManager()
			if _, err := m.Create("Color?", tt.options, 60); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if b.count("poll-created") != 0 {
				t.Error("rejected poll must not be broadcast")
			}
			if m.Current() != nil {
				t.Error("rejected poll must not become current")
			}
		})
	}
}

func TestCreateWhileActiveFails(t *testing.T) {
	m, _, _ := newTestManager()

	first, err := m.Create("Color?", []string{"Red", "Blue"}, 60)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := m.Create("Shape?", []string{"Square"}, 60); !errors.Is(err, ErrPollAlreadyActive) {
		t.Fatalf("expected ErrPollAlreadyActive, got %v", err)
	}

	current := m.Current()
	if current.ID != first.ID || current.Question != "Color?" {
		t.Error("failed create must leave the existing poll untouched")
	}
}

func TestSubmitErrors(t *testing.T) {
	m, _, reg := newTestManager()
	alice := reg.RegisterStudent("conn-1", "Alice")
	reg.RegisterStudent("conn-2", "Bob")

	if err := m.Submit(alice.ID, "Red"); !errors.Is(err, ErrNoActivePoll) {
		t.Errorf("expected ErrNoActivePoll before create, got %v", err)
	}

	if _, err := m.Create("Color?", []string{"Red", "Blue"}, 60); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := m.Submit(uuid.New(), "Red"); !errors.Is(err, ErrUnknownParticipant) {
		t.Errorf("expected ErrUnknownParticipant, got %v", err)
	}
	if err := m.Submit(alice.ID, "Green"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("expected ErrUnknownOption, got %v", err)
	}
	if err := m.Submit(alice.ID, "Red"); err != nil {
		t.Fatalf("first answer failed: %v", err)
	}
	if err := m.Submit(alice.ID, "Blue"); !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("expected ErrAlreadyAnswered, got %v", err)
	}

	current := m.Current()
	if current.Tally["Red"] != 1 || current.Tally["Blue"] != 0 {
		t.Errorf("rejected submissions must not change the tally: %v", current.Tally)
	}
}

func TestTallyMatchesAnswersAfterEverySubmit(t *testing.T) {
	m, _, reg := newTestManager()
	ids := make([]uuid.UUID, 0, 4)
	for _, name := range []string{"Alice", "Bob", "Carol", "Dave"} {
		ids = append(ids, reg.RegisterStudent("conn-"+name, name).ID)
	}
	if _, err := m.Create("Color?", []string{"Red", "Blue", "Green"}, 60); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	answers := []string{"Red", "Blue", "Red", "Green"}
	for i, id := range ids {
		if err := m.Submit(id, answers[i]); err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		p := m.Current()
		sum := 0
		for _, n := range p.Tally {
			sum += n
		}
		if sum != len(p.Answers) {
			t.Errorf("after submit %d: tally sum %d != %d answers", i, sum, len(p.Answers))
		}
		for _, opt := range p.Answers {
			if _, ok := p.Tally[opt]; !ok {
				t.Errorf("answer value %q missing from tally keys", opt)
			}
		}
	}
}

func TestAllAnsweredCompletesImmediately(t *testing.T) {
	m, b, reg := newTestManager()
	alice := reg.RegisterStudent("conn-1", "Alice")
	bob := reg.RegisterStudent("conn-2", "Bob")

	created, err := m.Create("Color?", []string{"Red", "Blue"}, 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := m.Submit(alice.ID, "Red"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if m.Current().IsComplete {
		t.Fatal("poll must stay open while Bob has not answered")
	}
	if err := m.Submit(bob.ID, "Blue"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	current := m.Current()
	if !current.IsComplete {
		t.Fatal("poll must complete as soon as every student answered")
	}
	if current.Tally["Red"] != 1 || current.Tally["Blue"] != 1 {
		t.Errorf("unexpected tally: %v", current.Tally)
	}

	history := m.History()
	if len(history) != 1 {
		t.Fatalf("expected exactly one history entry, got %d", len(history))
	}
	if history[0].TotalResponses != 2 {
		t.Errorf("expected totalResponses=2, got %d", history[0].TotalResponses)
	}
	if b.count("poll-ended") != 1 {
		t.Errorf("expected exactly one poll-ended broadcast, got %v", b.events)
	}

	// A stale close for the same poll id is a no-op.
	m.Close(created.ID)
	if len(m.History()) != 1 || b.count("poll-ended") != 1 {
		t.Error("closing a completed poll must be a no-op")
	}
}

func TestTimerClosesUnansweredPoll(t *testing.T) {
	m, b, reg := newTestManager()
	reg.RegisterStudent("conn-1", "Alice")
	reg.RegisterStudent("conn-2", "Bob")

	if _, err := m.Create("Color?", []string{"Red", "Blue"}, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for !m.Current().IsComplete {
		if time.Now().After(deadline) {
			t.Fatal("poll did not complete after its time limit")
		}
		time.Sleep(50 * time.Millisecond)
	}

	current := m.Current()
	if current.Tally["Red"] != 0 || current.Tally["Blue"] != 0 {
		t.Errorf("unanswered poll must keep a zero tally: %v", current.Tally)
	}
	history := m.History()
	if len(history) != 1 || history[0].TotalResponses != 0 {
		t.Fatalf("expected one history entry with totalResponses=0, got %+v", history)
	}
	if b.count("poll-ended") != 1 {
		t.Errorf("expected exactly one poll-ended broadcast, got %v", b.events)
	}
}

func TestStaleTimerFromReplacedPollIsNoOp(t *testing.T) {
	m, b, reg := newTestManager()
	alice := reg.RegisterStudent("conn-1", "Alice")

	first, err := m.Create("Color?", []string{"Red"}, 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	// Alice answers, completing the first poll, then a second poll opens.
	if err := m.Submit(alice.ID, "Red"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	second, err := m.Create("Shape?", []string{"Square", "Circle"}, 60)
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	// Even if the first poll's timer had fired now, it must not touch the
	// second poll.
	m.Close(first.ID)
	current := m.Current()
	if current.ID != second.ID || current.IsComplete {
		t.Error("stale close must not affect the current poll")
	}
	if len(m.History()) != 1 {
		t.Errorf("expected one history entry, got %d", len(m.History()))
	}
	if b.count("poll-ended") != 1 {
		t.Errorf("expected one poll-ended broadcast, got %v", b.events)
	}
}

func TestNewPollResetsAnsweredFlags(t *testing.T) {
	m, _, reg := newTestManager()
	alice := reg.RegisterStudent("conn-1", "Alice")
	bob := reg.RegisterStudent("conn-2", "Bob")

	if _, err := m.Create("Color?", []string{"Red"}, 60); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := m.Submit(alice.ID, "Red"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := m.Submit(bob.ID, "Red"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if _, err := m.Create("Shape?", []string{"Square"}, 60); err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if err := m.Submit(alice.ID, "Square"); err != nil {
		t.Errorf("answering a fresh poll must succeed, got %v", err)
	}
}

func TestCurrentAndHistoryStartEmpty(t *testing.T) {
	m, _, _ := newTestManager()
	if m.Current() != nil {
		t.Error("no poll should be current before create")
	}
	if len(m.History()) != 0 {
		t.Error("history should start empty")
	}
}
