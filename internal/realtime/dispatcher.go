package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/chat"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/poll"
	"github.com/classpulse/backend/internal/roster"
)

// Dispatcher routes inbound client events to the registry, poll manager, and
// chat log. Every handler runs to completion on the hub dispatch goroutine
// before the next event is taken, so no handler races another.
type Dispatcher struct {
	hub      *Hub
	registry *roster.Registry
	polls    *poll.Manager
	chat     *chat.Log
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher over the shared classroom state.
func NewDispatcher(hub *Hub, registry *roster.Registry, polls *poll.Manager, chatLog *chat.Log, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		hub:      hub,
		registry: registry,
		polls:    polls,
		chat:     chatLog,
		logger:   logger,
	}
}

type studentJoinRequest struct {
	Name string `json:"name"`
}

type createPollRequest struct {
	Question         string   `json:"question"`
	Options          []string `json:"options"`
	TimeLimitSeconds int      `json:"time_limit_seconds"`
}

type submitAnswerRequest struct {
	Option string `json:"option"`
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

type kickStudentRequest struct {
	StudentID string `json:"student_id"`
}

// HandleEvent implements EventHandler.
func (d *Dispatcher) HandleEvent(c *Client, msg WSMessage) {
	switch msg.Event {
	case "teacher-join":
		d.handleTeacherJoin(c)
	case "student-join":
		d.handleStudentJoin(c, msg.Data)
	case "create-poll":
		d.handleCreatePoll(c, msg.Data)
	case "submit-answer":
		d.handleSubmitAnswer(c, msg.Data)
	case "send-message":
		d.handleSendMessage(c, msg.Data)
	case "kick-student":
		d.handleKickStudent(c, msg.Data)
	case "get-current-poll":
		d.hub.SendToClient(c.ID, "current-poll", d.polls.Current())
	case "get-poll-history":
		d.hub.SendToClient(c.ID, "poll-history", d.polls.History())
	case "get-chat-messages":
		d.hub.SendToClient(c.ID, "chat-messages", d.chat.List())
	case "get-students":
		d.hub.SendToClient(c.ID, "student-list", d.registry.List())
	default:
		d.logger.Debug("ignoring unknown event",
			zap.String("event", msg.Event),
			zap.String("connection_id", c.ID))
	}
}

// HandleDisconnect implements EventHandler. Removing a connection that never
// registered a participant (a teacher, or a student that never joined) is a
// no-op and emits no roster update.
func (d *Dispatcher) HandleDisconnect(c *Client) {
	d.registry.Remove(c.ID)
}

func (d *Dispatcher) handleTeacherJoin(c *Client) {
	d.hub.JoinGroup(c, GroupTeachers)
	d.hub.SendToClient(c.ID, "teacher-joined", nil)
	d.logger.Info("teacher joined", zap.String("connection_id", c.ID))
}

func (d *Dispatcher) handleStudentJoin(c *Client, data json.RawMessage) {
	var req studentJoinRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Name == "" {
		d.hub.SendToClient(c.ID, "error", "a display name is required to join")
		return
	}
	p := d.registry.RegisterStudent(c.ID, req.Name)
	d.hub.JoinGroup(c, GroupStudents)
	d.hub.SendToClient(c.ID, "student-joined", map[string]string{
		"student_id":   p.ID.String(),
		"student_name": p.Name,
	})
}

func (d *Dispatcher) handleCreatePoll(c *Client, data json.RawMessage) {
	var req createPollRequest
	if err := json.Unmarshal(data, &req); err != nil {
		d.hub.SendToClient(c.ID, "poll-error", "invalid poll request")
		return
	}
	if _, err := d.polls.Create(req.Question, req.Options, req.TimeLimitSeconds); err != nil {
		d.hub.SendToClient(c.ID, "poll-error", err.Error())
	}
}

func (d *Dispatcher) handleSubmitAnswer(c *Client, data json.RawMessage) {
	var req submitAnswerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		d.hub.SendToClient(c.ID, "error", "invalid answer request")
		return
	}
	p, ok := d.registry.Get(c.ID)
	if !ok {
		d.hub.SendToClient(c.ID, "error", poll.ErrUnknownParticipant.Error())
		return
	}
	if err := d.polls.Submit(p.ID, req.Option); err != nil {
		d.hub.SendToClient(c.ID, "error", err.Error())
		return
	}
	d.hub.SendToClient(c.ID, "answer-submitted", nil)
}

func (d *Dispatcher) handleSendMessage(c *Client, data json.RawMessage) {
	var req sendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		d.hub.SendToClient(c.ID, "error", "invalid message request")
		return
	}
	sender := "Teacher"
	kind := models.SenderTeacher
	if p, ok := d.registry.Get(c.ID); ok {
		sender = p.Name
		kind = models.SenderStudent
	}
	msg := d.chat.Append(sender, kind, req.Body)
	d.hub.Broadcast("new-message", msg)
}

func (d *Dispatcher) handleKickStudent(c *Client, data json.RawMessage) {
	var req kickStudentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	identity, err := uuid.Parse(req.StudentID)
	if err != nil {
		d.logger.Debug("kick with malformed student id", zap.String("student_id", req.StudentID))
		return
	}
	p, ok := d.registry.ByIdentity(identity)
	if !ok {
		// Silent no-op toward the teacher, but leave a trace.
		d.logger.Info("kick requested for unknown student",
			zap.String("student_id", req.StudentID))
		return
	}
	d.hub.SendToClient(p.ConnectionID, "kicked", nil)
	d.hub.CloseClient(p.ConnectionID)
	d.registry.Remove(p.ConnectionID)
	d.logger.Info("student kicked",
		zap.String("student_id", req.StudentID),
		zap.String("name", p.Name))
}
