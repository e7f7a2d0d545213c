package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
	"github.com/chatforge/chatforge/internal/dashboard/store"
)

type invitationsRepo struct {
	q dbtx
}

const invitationColumns = `id, org_id, email, first_name, last_name, role, token_hash, status,
	invited_by, revoked_by, expires_at, accepted_at, revoked_at, created_at, updated_at`

func scanInvitation(row interface{ Scan(...any) error }) (domain.Invitation, error) {
	var inv domain.Invitation
	var role, status string
	var revokedBy sql.NullString
	var acceptedAt, revokedAt sql.NullTime
	err := row.Scan(
		&inv.ID, &inv.OrgID, &inv.Email, &inv.FirstName, &inv.LastName, &role,
		&inv.TokenHash, &status, &inv.InvitedBy, &revokedBy, &inv.ExpiresAt,
		&acceptedAt, &revokedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invitation{}, err
	}
	inv.Role = domain.Role(role)
	inv.Status = domain.InvitationStatus(status)
	inv.RevokedBy = mapNullString(revokedBy)
	inv.AcceptedAt = mapNullTime(acceptedAt)
	inv.RevokedAt = mapNullTime(revokedAt)
	return inv, nil
}

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO invitations (id, org_id, email, first_name, last_name, role, token_hash,
			status, invited_by, revoked_by, expires_at, accepted_at, revoked_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.OrgID, inv.Email, inv.FirstName, inv.LastName, string(inv.Role),
		inv.TokenHash, string(inv.Status), inv.InvitedBy, mapStringNull(inv.RevokedBy),
		inv.ExpiresAt, mapTimeNull(inv.AcceptedAt), mapTimeNull(inv.RevokedAt),
		inv.CreatedAt, inv.UpdatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *invitationsRepo) GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) GetPendingInvitationByEmail(ctx context.Context, orgID, email string, now time.Time) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE org_id = ? AND email = ? AND status = 'pending' AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`, orgID, email, now)
	inv, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE token_hash = ?`, hash)
	inv, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) ListPendingInvitationsByOrg(ctx context.Context, orgID string, now time.Time) ([]domain.Invitation, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE org_id = ? AND status = 'pending' AND expires_at > ?
		ORDER BY created_at DESC`, orgID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

func (r *invitationsRepo) CountPendingInvitationsByOrg(ctx context.Context, orgID string, now time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM invitations
		WHERE org_id = ? AND status = 'pending' AND expires_at > ?`, orgID, now).Scan(&n)
	return n, err
}

// MarkAccepted is a compare-and-set on status = pending. Under a
// concurrent double-accept only one caller observes an affected row.
func (r *invitationsRepo) MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE invitations SET status = 'accepted', accepted_at = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`, at, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *invitationsRepo) MarkRevoked(ctx context.Context, id, revokedBy string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE invitations SET status = 'revoked', revoked_by = ?, revoked_at = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`, revokedBy, at, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *invitationsRepo) MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE invitations SET status = 'expired', updated_at = ?
		WHERE status = 'pending' AND expires_at <= ?`, now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
