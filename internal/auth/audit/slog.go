package audit

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
)

// SlogSink writes events as structured log records.
type SlogSink struct {
	log *slog.Logger
}

func NewSlogSink(log *slog.Logger) *SlogSink {
	return &SlogSink{log: log.With("component", "audit")}
}

func (s *SlogSink) Write(ctx context.Context, e domain.AuditEvent) error {
	attrs := []any{
		"event_id", e.ID,
		"action", e.Action,
		"status", e.Status,
		"account_id", e.AccountID,
		"ip", e.IP,
		"user_agent", e.UserAgent,
	}
	for k, v := range e.Metadata {
		attrs = append(attrs, "meta_"+k, v)
	}
	level := slog.LevelInfo
	if e.Status == domain.StatusFailure {
		level = slog.LevelWarn
	}
	s.log.Log(ctx, level, "audit", attrs...)
	return nil
}
