// Package session holds one user's upload/chat state and the conversation history.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/service"
)

// Phase is the screen a session is on.
type Phase int

const (
	UploadPhase Phase = 0
	ChatPhase   Phase = 1
)

func (p Phase) String() string {
	if p == ChatPhase {
		return "chat"
	}
	return "upload"
}

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Session is the per-user context. Messages are append-only.
type Session struct {
	mu       sync.RWMutex
	id       string
	phase    Phase
	messages []domain.Message
	closed   bool
}

// New starts a session in UploadPhase with the greeting as its only message.
func New(greeting string) *Session {
	return &Session{
		id:       uuid.NewString(),
		phase:    UploadPhase,
		messages: []domain.Message{{Role: domain.RoleAssistant, Text: greeting}},
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Messages returns a copy of the history.
func (s *Session) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.messages...)
}

// Close discards the history. Further operations fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.messages = nil
}

func (s *Session) append(role domain.Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, domain.Message{Role: role, Text: text})
}

func (s *Session) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = ChatPhase
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Pipeline is what the controller drives: the service's ingest and answer operations.
type Pipeline interface {
	Ingest(ctx context.Context, doc domain.Document) (service.IngestReport, error)
	Answer(ctx context.Context, question string) (string, error)
}

// Controller applies user actions to a session.
type Controller struct {
	sess             *Session
	pipeline         Pipeline
	advanceOnFailure bool
}

// NewController binds a session to a pipeline. With advanceOnFailure the
// session moves to ChatPhase after any submitted upload, even a failed one.
func NewController(sess *Session, pipeline Pipeline, advanceOnFailure bool) *Controller {
	return &Controller{sess: sess, pipeline: pipeline, advanceOnFailure: advanceOnFailure}
}

func (c *Controller) Session() *Session { return c.sess }

// SubmitResult reports what an upload did.
type SubmitResult struct {
	Report   service.IngestReport
	Advanced bool
}

// Submit runs the upload pipeline for doc. A missing or empty document is a
// validation error and leaves the session in UploadPhase.
func (c *Controller) Submit(ctx context.Context, doc *domain.Document) (SubmitResult, error) {
	var res SubmitResult
	if c.sess.isClosed() {
		return res, ErrClosed
	}
	if c.sess.Phase() != UploadPhase {
		return res, domain.E(domain.KindValidation, "submit", errors.New("document already uploaded"))
	}
	if doc == nil || doc.Name == "" {
		return res, domain.E(domain.KindValidation, "submit", domain.ErrNoFileSelected)
	}

	report, err := c.pipeline.Ingest(ctx, *doc)
	res.Report = report
	if err == nil || c.advanceOnFailure {
		c.sess.advance()
		res.Advanced = true
	}
	return res, err
}

// Ask appends question and the reply to the history. A failed answer is
// recorded as an assistant message with the failure text so every human
// message has a reply. Blank questions are ignored.
func (c *Controller) Ask(ctx context.Context, question string) error {
	if c.sess.isClosed() {
		return ErrClosed
	}
	if c.sess.Phase() != ChatPhase {
		return domain.E(domain.KindValidation, "ask", errors.New("no document uploaded yet"))
	}
	if strings.TrimSpace(question) == "" {
		return nil
	}
	c.sess.append(domain.RoleHuman, question)
	reply, err := c.pipeline.Answer(ctx, question)
	if err != nil {
		c.sess.append(domain.RoleAssistant, FailureText(err))
		return err
	}
	c.sess.append(domain.RoleAssistant, reply)
	return nil
}

// FailureText is the assistant message shown when answering fails.
func FailureText(err error) string {
	return "Sorry, something went wrong while answering: " + err.Error()
}
