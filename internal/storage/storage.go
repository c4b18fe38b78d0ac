package storage

import "errors"

var (
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrRefreshTokenStale = errors.New("refresh token no longer current")
)
