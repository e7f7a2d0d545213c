package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
	"github.com/chatforge/chatforge/internal/dashboard/notify"
	"github.com/chatforge/chatforge/internal/dashboard/store"
	"github.com/chatforge/chatforge/internal/dashboard/store/drivers/sqlite"
	"github.com/chatforge/chatforge/pkg/idx"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedOrg(t *testing.T, st store.Store, plan domain.Plan) domain.Organization {
	t.Helper()

	now := time.Now().UTC()
	org := domain.Organization{
		ID:        idx.New().String(),
		Name:      "Acme Support",
		Plan:      plan,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Organizations().CreateOrganization(context.Background(), org))
	return org
}

func seedUser(t *testing.T, st store.Store, orgID, email string, role domain.Role, status domain.UserStatus) domain.User {
	t.Helper()

	now := time.Now().UTC()
	u := domain.User{
		ID:        idx.New().String(),
		OrgID:     orgID,
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

// stubNotifier records sends and can be forced to fail.
type stubNotifier struct {
	err  error
	sent []notify.Invitation
}

func (n *stubNotifier) SendInvitation(_ context.Context, inv notify.Invitation) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, inv)
	return nil
}

// stubProvisioner is a controllable identity provider double.
type stubProvisioner struct {
	provisionErr error
	removeErr    error
	provisioned  []string
	removed      []string
}

func (p *stubProvisioner) Provision(_ context.Context, email, _ string) error {
	if p.provisionErr != nil {
		return p.provisionErr
	}
	p.provisioned = append(p.provisioned, email)
	return nil
}

func (p *stubProvisioner) Remove(_ context.Context, email string) error {
	if p.removeErr != nil {
		return p.removeErr
	}
	p.removed = append(p.removed, email)
	return nil
}

func newInviteService(st store.Store) (*InviteService, *stubNotifier, *stubProvisioner) {
	notifier := &stubNotifier{}
	provisioner := &stubProvisioner{}
	svc := &InviteService{
		Store:         st,
		Notifier:      notifier,
		Identity:      provisioner,
		AcceptBaseURL: "https://dash.example/accept",
	}
	return svc, notifier, provisioner
}
