package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/mroshb/lid_lottery/internal/repositories"
	"github.com/mroshb/lid_lottery/internal/security"
	"github.com/mroshb/lid_lottery/pkg/logger"
)

type EventKind string

const (
	EventPlay   EventKind = "play"
	EventRedeem EventKind = "redeem"
)

// Event describes a finished play or redeem call. Result holds the play or
// redeem status string.
type Event struct {
	Kind   EventKind
	Result string
	CodeID *uint
	Code   string
	Input  string
	At     time.Time

	// Replayed is set on play events answered from an earlier play.
	Replayed bool
}

// EventSink receives events after the state change they describe has been
// committed. A failing sink never undoes that change.
type EventSink interface {
	Emit(ctx context.Context, event Event) error
}

// MultiSink delivers every event to all sinks and joins their errors.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// AttemptSink writes one audit row per play event.
type AttemptSink struct {
	attempts *repositories.AttemptRepository
}

func NewAttemptSink(attempts *repositories.AttemptRepository) *AttemptSink {
	return &AttemptSink{attempts: attempts}
}

func (s *AttemptSink) Emit(ctx context.Context, event Event) error {
	if event.Kind != EventPlay {
		return nil
	}
	return s.attempts.Append(ctx, &models.PlayAttempt{
		LidCodeID: event.CodeID,
		Result:    models.PlayResult(event.Result),
		Input:     security.SanitizeAuditInput(event.Input),
	})
}

func emit(ctx context.Context, sink EventSink, event Event) {
	if sink == nil {
		return
	}
	if err := sink.Emit(ctx, event); err != nil {
		logger.Error("Failed to record event",
			"kind", event.Kind,
			"result", event.Result,
			"code", event.Code,
			"error", err,
		)
	}
}
