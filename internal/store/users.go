package store

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/erazemk/najdeno/internal/model"
)

const userColumns = `id, username, password_hash, role, email, created_at, deleted_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Email, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates a new account. A taken username yields ErrConflict.
func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash, role, email string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, email) VALUES (?, ?, ?, ?)`,
		username, passwordHash, role, email,
	)
	if isUniqueViolation(err) {
		return nil, model.Conflict("creating user", "username %q is taken", username)
	}
	if err != nil {
		return nil, model.Dependency("creating user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, model.Dependency("getting user id", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.Dependency("getting user", err)
	}
	return u, nil
}

// GetUserByUsername returns the active user with the given username.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.Dependency("getting user by username", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, model.Dependency("listing users", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, model.Dependency("scanning user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Dependency("listing users", err)
	}
	return users, nil
}

// UpdateUser changes a user's role and contact address.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, role, email string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET role = ?, email = ? WHERE id = ? AND deleted_at IS NULL`,
		role, email, id,
	)
	if err != nil {
		return model.Dependency("updating user", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return model.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return model.Dependency("updating user password", err)
	}
	return nil
}

// DeleteUser soft-deletes a user. Their lost reports stay in place.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return model.Dependency("deleting user", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return model.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}
