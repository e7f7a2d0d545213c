package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes invitation emails to the log instead of sending
// them. Used in dev and as the default until an email provider is wired.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) SendInvitation(ctx context.Context, inv Invitation) error {
	n.Logger.Info("invitation email",
		"email", inv.Email,
		"invitee", inv.InviteeName,
		"org", inv.OrgName,
		"inviter", inv.InviterName,
		"role", inv.Role,
		"accept_url", inv.AcceptURL,
		"expires_at", inv.ExpiresAt,
	)
	return nil
}
