package models

// Session is a row in the session table. ExpireAt is an absolute
// epoch-seconds timestamp; the row is valid while now <= ExpireAt.
type Session struct {
	AccountID    int64
	SessionToken string
	ExpireAt     int64
}
