package identity

import (
	"context"
	"log/slog"
)

// NoopProvisioner logs instead of calling an auth provider. Default
// wiring until the external provider credentials are configured.
type NoopProvisioner struct {
	Logger *slog.Logger
}

func (p *NoopProvisioner) Provision(ctx context.Context, email, invitationID string) error {
	p.Logger.Debug("identity provision skipped", "email", email, "invitation_id", invitationID)
	return nil
}

func (p *NoopProvisioner) Remove(ctx context.Context, email string) error {
	p.Logger.Debug("identity removal skipped", "email", email)
	return nil
}
