// Package contact validates contact form submissions, relays them and
// keeps a record of every attempt.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/store"
)

// Submission is the posted contact form. Field names follow the form
// markup; binding tags are checked by gin.
type Submission struct {
	Name    string `form:"name" binding:"required,max=200"`
	Email   string `form:"email" binding:"required,email,max=320"`
	Message string `form:"message" binding:"required,max=5000"`
}

// Subject is the mail subject line for s.
func (s Submission) Subject() string {
	return "Portfolio Contact: " + s.Name
}

// Normalize trims surrounding whitespace and strips CR/LF from header-bound
// fields.
func (s Submission) Normalize() Submission {
	strip := strings.NewReplacer("\r", " ", "\n", " ")
	return Submission{
		Name:    strings.TrimSpace(strip.Replace(s.Name)),
		Email:   strings.TrimSpace(strip.Replace(s.Email)),
		Message: strings.TrimSpace(s.Message),
	}
}

// ErrIncomplete rejects a submission that is blank once normalized.
var ErrIncomplete = errors.New("contact: name, email and message are required")

// Validate checks what the binding tags cannot see: fields made only of
// whitespace. Call it on a normalized submission.
func (s Submission) Validate() error {
	if s.Name == "" || s.Email == "" || s.Message == "" {
		return ErrIncomplete
	}
	return nil
}

// Recorder stores submission outcomes.
type Recorder interface {
	SaveMessage(ctx context.Context, m store.Message) error
}

// Service relays submissions and records the outcome.
type Service struct {
	relay  Relay
	rec    Recorder
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a service. rec may be nil to skip recording.
func NewService(relay Relay, rec Recorder, logger *zap.Logger) *Service {
	return &Service{relay: relay, rec: rec, logger: logger, now: time.Now}
}

// Submit relays s. A relay failure is returned to the caller so the visitor
// sees that the message did not go out; the attempt is recorded either way.
// A submission that is blank after normalizing fails with ErrIncomplete and
// is neither relayed nor recorded.
func (svc *Service) Submit(ctx context.Context, s Submission) (store.Message, error) {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return store.Message{}, err
	}
	msg := store.Message{
		ID:        uuid.NewString(),
		Name:      s.Name,
		Email:     s.Email,
		Body:      s.Message,
		Relay:     svc.relay.Name(),
		Status:    store.StatusSent,
		CreatedAt: svc.now(),
	}

	sendErr := svc.relay.Send(ctx, s)
	if sendErr != nil {
		msg.Status = store.StatusFailed
		msg.Error = sendErr.Error()
		svc.logger.Error("contact relay failed",
			zap.String("id", msg.ID), zap.String("relay", msg.Relay), zap.Error(sendErr))
	} else {
		svc.logger.Info("contact message relayed",
			zap.String("id", msg.ID), zap.String("relay", msg.Relay))
	}

	if svc.rec != nil {
		// Record even if the request was canceled mid-relay.
		if err := svc.rec.SaveMessage(context.WithoutCancel(ctx), msg); err != nil {
			svc.logger.Error("recording contact message", zap.String("id", msg.ID), zap.Error(err))
		}
	}

	if sendErr != nil {
		return msg, fmt.Errorf("relaying message %s: %w", msg.ID, sendErr)
	}
	return msg, nil
}
