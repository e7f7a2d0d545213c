package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
	"github.com/chatforge/chatforge/internal/dashboard/store"
)

type usersRepo struct {
	q dbtx
}

const userColumns = `id, org_id, email, first_name, last_name, role, status, invited_by, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var role, status string
	var invitedBy sql.NullString
	err := row.Scan(
		&u.ID, &u.OrgID, &u.Email, &u.FirstName, &u.LastName,
		&role, &status, &invitedBy, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.Status = domain.UserStatus(status)
	u.InvitedBy = mapNullString(invitedBy)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetActiveUserByEmail(ctx context.Context, orgID, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE org_id = ? AND email = ? AND status = 'active'`, orgID, email)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, org_id, email, first_name, last_name, role, status, invited_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.OrgID, u.Email, u.FirstName, u.LastName,
		string(u.Role), string(u.Status), mapStringNull(u.InvitedBy), u.CreatedAt, u.UpdatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) UpdateUserRole(ctx context.Context, userID string, role domain.Role) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DemoteOwnerIfNotLast evaluates the owner count in the same statement as
// the update, so concurrent demotions serialize against each other at the
// database and can never leave an organization ownerless.
func (r *usersRepo) DemoteOwnerIfNotLast(ctx context.Context, orgID, userID string, newRole domain.Role) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET role = ?, updated_at = ?
		WHERE id = ? AND org_id = ? AND role = 'owner' AND status = 'active'
		  AND (SELECT COUNT(*) FROM users
		       WHERE org_id = ? AND role = 'owner' AND status = 'active') > 1`,
		string(newRole), time.Now().UTC(), userID, orgID, orgID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *usersRepo) ListActiveUsersByOrg(ctx context.Context, orgID string) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE org_id = ? AND status = 'active'
		ORDER BY created_at ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *usersRepo) ListRemovedUsersByOrg(ctx context.Context, orgID string) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE org_id = ? AND status = 'removed'
		ORDER BY updated_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *usersRepo) GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *usersRepo) CountActiveUsersByOrg(ctx context.Context, orgID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users WHERE org_id = ? AND status = 'active'`, orgID).Scan(&n)
	return n, err
}

func (r *usersRepo) CountActiveOwners(ctx context.Context, orgID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users
		WHERE org_id = ? AND role = 'owner' AND status = 'active'`, orgID).Scan(&n)
	return n, err
}

func collectUsers(rows *sql.Rows) ([]domain.User, error) {
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
