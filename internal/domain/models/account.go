package models

// Account is a row in the login table. RefreshToken holds the single live
// refresh token for the account; empty means none has been issued yet.
type Account struct {
	ID           int64
	Username     string
	Salt         string
	PassHash     string
	RefreshToken string
}
