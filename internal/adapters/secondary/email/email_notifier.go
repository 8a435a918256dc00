package email

import (
	"context"
	"log/slog"
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const lookupTimeout = 5 * time.Second

// LogNotifier is a secondary adapter that stands in for an SMTP relay.
// It resolves the recipient and logs the message it would have sent.
type LogNotifier struct {
	userRepo ports.UserRepository
	logger   *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier that reads recipients from userRepo.
func NewLogNotifier(userRepo ports.UserRepository, logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{
		userRepo: userRepo,
		logger:   logger.With("component", "email_notifier"),
	}
}

// Notify delivers params to its recipient. Failures are logged, never
// returned; callers run it after their transaction has committed.
func (n *LogNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	// Outlive the request that triggered the notification.
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
	defer cancel()

	user, err := n.userRepo.GetByID(lookupCtx, params.RecipientUserID)
	if err != nil {
		n.logger.Error("failed to get user for notification",
			"user_id", params.RecipientUserID,
			"ticket_id", params.TicketID,
			"error", err,
		)
		return
	}

	if !user.IsActive {
		n.logger.Debug("skipping notification for inactive user",
			"user_id", user.ID,
			"ticket_id", params.TicketID,
		)
		return
	}

	n.logger.Info("mock email sent",
		"to_name", user.FullName,
		"to_email", user.Email,
		"tenant_id", user.TenantID,
		"subject", params.Subject,
		"ticket_id", params.TicketID,
	)
}
