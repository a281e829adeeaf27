// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/videotube/internal/platform/database/schema"
	"github.com/taibuivan/videotube/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

var (
	account = schema.UserAccount
	history = schema.MediaWatchHistory

	// userColumns is the projection scanned by [scanUser]. The watch history is
	// folded into an array, newest first.
	userColumns = fmt.Sprintf(`
		a.%s::text, a.%s, a.%s, a.%s, a.%s, a.%s, a.%s, a.%s,
		ARRAY(SELECT w.%s::text FROM %s w WHERE w.%s = a.%s ORDER BY w.%s DESC),
		a.%s, a.%s`,
		account.ID, account.Username, account.Email, account.FullName, account.Avatar,
		account.CoverImage, account.PasswordHash, account.RefreshToken,
		history.Video, history.Table, history.User, account.ID, history.WatchedAt,
		account.CreatedAt, account.UpdatedAt,
	)
)

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.Avatar,
		&user.CoverImage,
		&user.PasswordHash,
		&user.RefreshToken,
		&user.WatchHistory,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

/*
FindByID retrieves a user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s a WHERE a.%s = $1`, userColumns, account.Table, account.ID)

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_id_failed", msgUserNotFound, "")
	}
	return user, nil
}

/*
FindByUsernameOrEmail retrieves the account matching either identifier.

Description: A single query covers both unique columns so registration can
check for duplicates and login can accept either identifier.

Parameters:
  - context: context.Context
  - username: string (normalized, "" never matches)
  - email: string (normalized, "" never matches)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByUsernameOrEmail(context context.Context, username, email string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s a
		WHERE (a.%s = $1 AND $1 <> '') OR (a.%s = $2 AND $2 <> '')
		ORDER BY a.%s
		LIMIT 1`,
		userColumns, account.Table, account.Username, account.Email, account.CreatedAt,
	)

	user, err := scanUser(repository.pool.QueryRow(context, query, username, email))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_identifier_failed", msgUserNotFound, "")
	}
	return user, nil
}

/*
Create persists a new user record into the users.account table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict on duplicate identifiers, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s, %s`,
		account.Table,
		account.ID, account.Username, account.Email, account.FullName,
		account.Avatar, account.CoverImage, account.PasswordHash,
		account.CreatedAt, account.UpdatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.Avatar,
		user.CoverImage,
		user.PasswordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_create_failed", msgUserNotFound, msgUserExists)
	}
	return nil
}

/*
Update applies the non-nil fields of patch and returns the updated record.

Description: Builds the SET clause from the patch so unrelated columns
(notably passwordhash) are never rewritten by an unrelated update.

Parameters:
  - context: context.Context
  - id: string
  - patch: UserPatch

Returns:
  - *User: Updated entity
  - error: apperr.NotFound, apperr.Conflict or execution errors
*/
func (repository *PostgresUserRepository) Update(context context.Context, id string, patch UserPatch) (*User, error) {
	if patch.IsEmpty() {
		return repository.FindByID(context, id)
	}

	args := []any{id}
	sets := make([]string, 0, 7)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.FullName != nil {
		set(account.FullName, *patch.FullName)
	}
	if patch.Email != nil {
		set(account.Email, *patch.Email)
	}
	if patch.Avatar != nil {
		set(account.Avatar, *patch.Avatar)
	}
	if patch.CoverImage != nil {
		set(account.CoverImage, *patch.CoverImage)
	}
	if patch.PasswordHash != nil {
		set(account.PasswordHash, *patch.PasswordHash)
	}
	switch {
	case patch.ClearRefreshToken:
		sets = append(sets, account.RefreshToken+" = NULL")
	case patch.RefreshToken != nil:
		set(account.RefreshToken, *patch.RefreshToken)
	}
	sets = append(sets, account.UpdatedAt+" = NOW()")

	query := fmt.Sprintf(`UPDATE %s AS a SET %s WHERE a.%s = $1 RETURNING %s`,
		account.Table, strings.Join(sets, ", "), account.ID, userColumns)

	user, err := scanUser(repository.pool.QueryRow(context, query, args...))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_update_failed", msgUserNotFound, msgUserExists)
	}
	return user, nil
}

/*
CompareAndSwapRefreshToken rotates the stored refresh token atomically.

Description: The WHERE clause carries the expected value, so of two
concurrent refreshes presenting the same token only one row update succeeds.

Parameters:
  - context: context.Context
  - id: string
  - expected: string
  - next: string

Returns:
  - bool: true if the row was updated
  - error: Execution errors
*/
func (repository *PostgresUserRepository) CompareAndSwapRefreshToken(context context.Context, id, expected, next string) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $3, %s = NOW() WHERE %s = $1 AND %s = $2`,
		account.Table, account.RefreshToken, account.UpdatedAt, account.ID, account.RefreshToken)

	tag, err := repository.pool.Exec(context, query, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("postgres_user_repo_swap_refresh_token_failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
