package domain

import "time"

// Challenge is the pending state between a successful password check and
// a verified second factor.
type Challenge struct {
	ID        string
	AccountID string
	TokenHash string
	Attempts  int
	IP        string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// MaxChallengeAttempts bounds wrong codes against one challenge.
const MaxChallengeAttempts = 5

// BackupCode is a single-use recovery code, stored hashed.
type BackupCode struct {
	ID        string
	AccountID string
	CodeHash  string
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Enrollment is returned when TOTP enrollment starts. Secret is shown once.
type Enrollment struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
}

// LoginResult is the outcome of the password step.
type LoginResult struct {
	Account           *Account
	RequiresTwoFactor bool
	ChallengeToken    string // plaintext; set only when RequiresTwoFactor
	ChallengeExpires  time.Time
	Session           *Session // set only when !RequiresTwoFactor
}
