// Migrations init script: go run ./cmd/migrator --storage-path=./storage/sessiond.db --migrations-path=./migrations
// Test migrations init script: go run ./cmd/migrator --storage-path=./storage/sessiond.db --migrations-path=./tests/migrations --migrations-table=migrations_test
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"sessiond/internal/domain/models"
	"sessiond/internal/storage"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) SaveAccount(ctx context.Context, username, salt, passHash string) (int64, error) {
	const op = "storage.sqlite.SaveAccount"

	stmt, err := s.db.Prepare(`
		INSERT INTO login (username, salt, pass_hash)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, username, salt, passHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrAccountExists)
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) AccountByUsername(ctx context.Context, username string) (models.Account, error) {
	const op = "storage.sqlite.AccountByUsername"

	stmt, err := s.db.Prepare("SELECT id, username, salt, pass_hash, refresh_token FROM login WHERE username = ?")
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	return scanAccount(stmt.QueryRowContext(ctx, username), op)
}

func (s *Storage) AccountByRefreshToken(ctx context.Context, refreshToken string) (models.Account, error) {
	const op = "storage.sqlite.AccountByRefreshToken"

	stmt, err := s.db.Prepare("SELECT id, username, salt, pass_hash, refresh_token FROM login WHERE refresh_token = ?")
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	return scanAccount(stmt.QueryRowContext(ctx, refreshToken), op)
}

func scanAccount(row *sql.Row, op string) (models.Account, error) {
	var account models.Account
	var refreshToken sql.NullString

	err := row.Scan(&account.ID, &account.Username, &account.Salt, &account.PassHash, &refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, fmt.Errorf("%s: %w", op, storage.ErrAccountNotFound)
		}
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	account.RefreshToken = refreshToken.String

	return account, nil
}

func (s *Storage) Sessions(ctx context.Context, accountID int64) ([]models.Session, error) {
	const op = "storage.sqlite.Sessions"

	stmt, err := s.db.Prepare("SELECT account_id, session_token, expire_at FROM session WHERE account_id = ?")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(&session.AccountID, &session.SessionToken, &session.ExpireAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sessions, nil
}

func (s *Storage) DeleteSession(ctx context.Context, sessionToken string) error {
	const op = "storage.sqlite.DeleteSession"

	stmt, err := s.db.Prepare("DELETE FROM session WHERE session_token = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, sessionToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SaveSessionReplaceRefresh inserts a session row and overwrites the
// account's refresh token in one transaction. Used on login, where the
// previous refresh token is replaced unconditionally.
func (s *Storage) SaveSessionReplaceRefresh(ctx context.Context, accountID int64, sessionToken string, expireAt int64, refreshToken string) error {
	const op = "storage.sqlite.SaveSessionReplaceRefresh"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO session (account_id, session_token, expire_at) VALUES (?, ?, ?)",
		accountID, sessionToken, expireAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE login SET refresh_token = ? WHERE id = ?",
		refreshToken, accountID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SaveSessionRotateRefresh rotates the account's refresh token and inserts a
// session row in one transaction. The rotation is conditional on the stored
// token still equaling oldRefreshToken, so of two concurrent refreshes with
// the same token exactly one commits; the other gets ErrRefreshTokenStale.
func (s *Storage) SaveSessionRotateRefresh(ctx context.Context, accountID int64, sessionToken string, expireAt int64, oldRefreshToken, newRefreshToken string) error {
	const op = "storage.sqlite.SaveSessionRotateRefresh"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE login SET refresh_token = ? WHERE id = ? AND refresh_token = ?",
		newRefreshToken, accountID, oldRefreshToken,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrRefreshTokenStale)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO session (account_id, session_token, expire_at) VALUES (?, ?, ?)",
		accountID, sessionToken, expireAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
