// Package alert reports conditions that halt ingestion and need an operator.
package alert

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
)

// Reporter receives fatal halts.
type Reporter interface {
	Fatal(err error, fields map[string]any)
	Flush(timeout time.Duration) bool
}

// Noop logs nothing and sends nothing.
type Noop struct{}

func (Noop) Fatal(error, map[string]any) {}

func (Noop) Flush(time.Duration) bool { return true }

// Sentry reports to a Sentry project through its own hub.
type Sentry struct {
	hub *sentry.Hub
	log *logger.Logger
}

// New returns a Sentry reporter when a DSN is configured and a Noop otherwise.
func New(cfg *config.AlertingConfig, log *logger.Logger) (Reporter, error) {
	if cfg == nil || cfg.SentryDSN == "" {
		return Noop{}, nil
	}
	return NewSentry(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
	}, log)
}

// NewSentry creates a reporter from explicit client options.
func NewSentry(opts sentry.ClientOptions, log *logger.Logger) (*Sentry, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	log.Infow("sentry alerting enabled", "environment", opts.Environment)

	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope()), log: log}, nil
}

// Fatal captures err at fatal level with fields attached as the "ingestion" context.
func (s *Sentry) Fatal(err error, fields map[string]any) {
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
		scope.SetContext("ingestion", sentry.Context(fields))
		for k, v := range fields {
			scope.SetTag(k, fmt.Sprint(v))
		}

		if id := s.hub.CaptureException(err); id != nil {
			s.log.Infow("fatal error reported", "event_id", string(*id))
		}
	})
}

// Flush waits for buffered events.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}
