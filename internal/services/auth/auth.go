package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"sessiond/internal/domain/models"
	"sessiond/internal/lib/hashing"
	"sessiond/internal/lib/logger/sl"
	"sessiond/internal/lib/token"
	"sessiond/internal/storage"
)

type Auth struct {
	log             *slog.Logger
	accountSaver    AccountSaver
	accountProvider AccountProvider
	sessionSaver    SessionSaver
	sessionProvider SessionProvider
	tokens          *token.Generator
	rnd             io.Reader
	sessionTTL      time.Duration
	rememberTTL     time.Duration
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
)

type AccountSaver interface {
	SaveAccount(ctx context.Context, username, salt, passHash string) (int64, error)
}

type AccountProvider interface {
	AccountByUsername(ctx context.Context, username string) (models.Account, error)
	AccountByRefreshToken(ctx context.Context, refreshToken string) (models.Account, error)
}

type SessionSaver interface {
	SaveSessionReplaceRefresh(ctx context.Context, accountID int64, sessionToken string, expireAt int64, refreshToken string) error
	SaveSessionRotateRefresh(ctx context.Context, accountID int64, sessionToken string, expireAt int64, oldRefreshToken, newRefreshToken string) error
	DeleteSession(ctx context.Context, sessionToken string) error
}

type SessionProvider interface {
	Sessions(ctx context.Context, accountID int64) ([]models.Session, error)
}

func New(
	log *slog.Logger,
	rnd io.Reader,
	accountSaver AccountSaver,
	accountProvider AccountProvider,
	sessionSaver SessionSaver,
	sessionProvider SessionProvider,
	sessionTTL time.Duration,
	rememberTTL time.Duration,
) *Auth {
	return &Auth{
		log:             log,
		accountSaver:    accountSaver,
		accountProvider: accountProvider,
		sessionSaver:    sessionSaver,
		sessionProvider: sessionProvider,
		tokens:          token.NewGenerator(rnd),
		rnd:             rnd,
		sessionTTL:      sessionTTL,
		rememberTTL:     rememberTTL,
	}
}

// Register provisions a new account with a fresh per-account salt and
// returns the account ID.
func (a *Auth) Register(ctx context.Context, username, password string) (int64, error) {
	const op = "Auth.Register"

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	log.Info("registering account")

	salt, err := hashing.NewSalt(a.rnd)
	if err != nil {
		log.Error("failed to generate salt", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	passHash := hashing.Sum([]byte(password + salt))

	id, err := a.accountSaver.SaveAccount(ctx, username, salt, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			log.Warn("account already exists", sl.Err(err))
			return 0, fmt.Errorf("%s: %w", op, ErrAccountExists)
		}

		log.Error("failed to save account", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("account registered", slog.Int64("account_id", id))

	return id, nil
}

// Login checks the username/password pair and mints a session token plus a
// refresh token. The previous refresh token for the account, if any, is
// replaced.
//
// Unknown username and wrong password collapse into the same
// ErrInvalidCredentials so callers cannot probe which usernames exist.
func (a *Auth) Login(ctx context.Context, username, password string, remember bool) (session string, refreshToken string, err error) {
	const op = "Auth.Login"

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	log.Info("attempting to login user")

	account, err := a.accountProvider.AccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			log.Warn("account not found", sl.Err(err))
			return "", "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		log.Error("failed to get account", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	if !hashing.Verify(account.PassHash, []byte(password+account.Salt)) {
		log.Info("invalid credentials")
		return "", "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	a.sweepExpired(ctx, log, account.ID)

	session, err = a.tokens.Generate(account.ID)
	if err != nil {
		log.Error("failed to generate session token", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	expireAt := time.Now().Add(a.sessionExpiry(remember)).Unix()

	refreshToken, err = a.tokens.Generate(account.ID)
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessionSaver.SaveSessionReplaceRefresh(ctx, account.ID, session, expireAt, refreshToken); err != nil {
		log.Error("failed to save session", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.Int64("expire_at", expireAt))

	return session, refreshToken, nil
}

// Refresh exchanges a valid refresh token for a new session token and a new
// refresh token. Rotation is single-use: the presented token stops working
// the instant the new one is stored, and a concurrent refresh with the same
// token succeeds for exactly one caller.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (session string, newRefreshToken string, err error) {
	const op = "Auth.Refresh"

	log := a.log.With(slog.String("op", op))

	log.Info("attempting to refresh session")

	account, err := a.accountProvider.AccountByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			log.Warn("refresh token not recognized", sl.Err(err))
			return "", "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		log.Error("failed to get account", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	session, err = a.tokens.Generate(account.ID)
	if err != nil {
		log.Error("failed to generate session token", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	// Refresh requests carry no remember flag; refreshed sessions always get
	// the long expiry.
	expireAt := time.Now().Add(a.rememberTTL).Unix()

	newRefreshToken, err = a.tokens.Generate(account.ID)
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessionSaver.SaveSessionRotateRefresh(ctx, account.ID, session, expireAt, refreshToken, newRefreshToken); err != nil {
		if errors.Is(err, storage.ErrRefreshTokenStale) {
			log.Warn("refresh token rotated by a concurrent request", sl.Err(err))
			return "", "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		log.Error("failed to rotate session", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("session refreshed successfully", slog.Int64("account_id", account.ID))

	return session, newRefreshToken, nil
}

func (a *Auth) sessionExpiry(remember bool) time.Duration {
	if remember {
		return a.rememberTTL
	}
	return a.sessionTTL
}

// sweepExpired lazily deletes the account's expired session rows. An expired
// row is inert whether or not the delete lands, so storage errors here are
// logged and never fail the login.
func (a *Auth) sweepExpired(ctx context.Context, log *slog.Logger, accountID int64) {
	sessions, err := a.sessionProvider.Sessions(ctx, accountID)
	if err != nil {
		log.Warn("failed to list sessions for cleanup", sl.Err(err))
		return
	}

	now := time.Now().Unix()
	for _, session := range sessions {
		if session.ExpireAt >= now {
			continue
		}
		if err := a.sessionSaver.DeleteSession(ctx, session.SessionToken); err != nil {
			log.Warn("failed to delete expired session", sl.Err(err))
		}
	}
}
