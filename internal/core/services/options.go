package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// Option configures optional collaborators shared by the services.
type Option func(*serviceOptions)

type serviceOptions struct {
	now       func() time.Time
	logger    *slog.Logger
	snapshots ports.SnapshotReader
}

// WithNow overrides the clock used to stamp lifecycle events.
func WithNow(now func() time.Time) Option {
	return func(o *serviceOptions) {
		o.now = now
	}
}

// WithLogger sets the logger used by the service.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithSnapshots makes multi-query reads observe a single snapshot.
func WithSnapshots(reader ports.SnapshotReader) Option {
	return func(o *serviceOptions) {
		o.snapshots = reader
	}
}

type inlineSnapshots struct{}

func (inlineSnapshots) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func applyOptions(opts []Option) serviceOptions {
	o := serviceOptions{
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
		logger:    slog.Default(),
		snapshots: inlineSnapshots{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// requirePermission maps a missing permission to ErrForbidden.
func requirePermission(ctx context.Context, authzSvc ports.AuthorizationService, userID uuid.UUID, permission string) error {
	allowed, err := authzSvc.Can(ctx, userID, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrForbidden
	}
	return nil
}
