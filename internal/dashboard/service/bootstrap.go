package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
	"github.com/chatforge/chatforge/internal/dashboard/store"
	"github.com/chatforge/chatforge/pkg/cryptox"
	"github.com/chatforge/chatforge/pkg/idx"
	"github.com/chatforge/chatforge/pkg/slogx"
)

var ErrAlreadyBootstrapped = errors.New("service already bootstrapped")

// BootstrapService provisions the first organization, its owner, and a
// widget API key. Only usable while the store holds no organizations.
type BootstrapService struct {
	Store store.Store
}

type BootstrapResult struct {
	Org    domain.Organization
	Owner  domain.User
	APIKey domain.APIKey
}

// Bootstrap creates the initial tenant atomically. The organization
// starts on the free tier; billing upgrades the plan later.
func (s *BootstrapService) Bootstrap(ctx context.Context, orgName, ownerEmail, firstName, lastName string) (BootstrapResult, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	empty, err := s.Store.Organizations().IsEmpty(ctx)
	if err != nil {
		log.Error("failed to check bootstrap state", slog.Any("error", err))
		return BootstrapResult{}, err
	}
	if !empty {
		return BootstrapResult{}, ErrAlreadyBootstrapped
	}

	org := domain.Organization{
		ID:        idx.New().String(),
		Name:      orgName,
		Plan:      domain.PlanNone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := domain.User{
		ID:        idx.New().String(),
		OrgID:     org.ID,
		Email:     ownerEmail,
		FirstName: firstName,
		LastName:  lastName,
		Role:      domain.RoleOwner,
		Status:    domain.UserActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apiKey := domain.APIKey{
		ID:        idx.New().String(),
		OrgID:     org.ID,
		Key:       "cf_" + cryptox.MustGenerateToken(cryptox.TokenSize256),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Organizations().CreateOrganization(ctx, org); err != nil {
			return err
		}
		if err := tx.Users().CreateUser(ctx, owner); err != nil {
			return err
		}
		return tx.APIKeys().CreateAPIKey(ctx, apiKey)
	})
	if err != nil {
		log.Error("bootstrap failed", slog.Any("error", err))
		return BootstrapResult{}, err
	}

	log.Info("bootstrap complete",
		slog.String("org_id", org.ID),
		slog.String("owner_id", owner.ID),
	)

	return BootstrapResult{Org: org, Owner: owner, APIKey: apiKey}, nil
}
