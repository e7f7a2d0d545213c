package sqlite

import (
	"context"
	"time"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
)

type organizationsRepo struct {
	q dbtx
}

func (r *organizationsRepo) GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, plan, created_at, updated_at
		FROM organizations WHERE id = ?`, id)

	var org domain.Organization
	var plan string
	if err := row.Scan(&org.ID, &org.Name, &plan, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return domain.Organization{}, mapNotFound(err)
	}
	org.Plan = domain.Plan(plan)
	return org, nil
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, org domain.Organization) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO organizations (id, name, plan, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		org.ID, org.Name, string(org.Plan), org.CreatedAt, org.UpdatedAt)
	return err
}

func (r *organizationsRepo) UpdatePlan(ctx context.Context, orgID string, plan domain.Plan) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE organizations SET plan = ?, updated_at = ? WHERE id = ?`,
		string(plan), time.Now().UTC(), orgID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *organizationsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}
