package email

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/mocks"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestNotifier(repo ports.UserRepository) (*LogNotifier, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewLogNotifier(repo, logger), &buf
}

func TestLogNotifier_Notify(t *testing.T) {
	t.Run("logs the message for an active recipient", func(t *testing.T) {
		repo := mocks.NewMockUserRepository()
		recipient := &domain.User{ID: uuid.New(), FullName: "Agent", Email: "agent@example.com", IsActive: true}
		repo.On("GetByID", mock.Anything, recipient.ID).Return(recipient, nil)

		notifier, buf := newTestNotifier(repo)
		notifier.Notify(context.Background(), ports.NotificationParams{
			RecipientUserID: recipient.ID,
			Subject:         "SLA RESOLUTION target breached on ticket #7",
			TicketID:        7,
		})

		assert.Contains(t, buf.String(), "mock email sent")
		assert.Contains(t, buf.String(), "agent@example.com")
	})

	t.Run("survives a cancelled request context", func(t *testing.T) {
		repo := mocks.NewMockUserRepository()
		recipient := &domain.User{ID: uuid.New(), Email: "agent@example.com", IsActive: true}
		repo.On("GetByID", mock.MatchedBy(func(ctx context.Context) bool {
			return ctx.Err() == nil
		}), recipient.ID).Return(recipient, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		notifier, buf := newTestNotifier(repo)
		notifier.Notify(ctx, ports.NotificationParams{RecipientUserID: recipient.ID, TicketID: 1})

		assert.Contains(t, buf.String(), "mock email sent")
	})

	t.Run("skips inactive recipients", func(t *testing.T) {
		repo := mocks.NewMockUserRepository()
		recipient := &domain.User{ID: uuid.New(), Email: "gone@example.com"}
		repo.On("GetByID", mock.Anything, recipient.ID).Return(recipient, nil)

		notifier, buf := newTestNotifier(repo)
		notifier.Notify(context.Background(), ports.NotificationParams{RecipientUserID: recipient.ID, TicketID: 1})

		assert.NotContains(t, buf.String(), "mock email sent")
	})

	t.Run("logs lookup failures", func(t *testing.T) {
		repo := mocks.NewMockUserRepository()
		repo.On("GetByID", mock.Anything, mock.Anything).Return(nil, apperrors.ErrUserNotFound)

		notifier, buf := newTestNotifier(repo)
		notifier.Notify(context.Background(), ports.NotificationParams{RecipientUserID: uuid.New(), TicketID: 1})

		assert.Contains(t, buf.String(), "failed to get user for notification")
	})
}
