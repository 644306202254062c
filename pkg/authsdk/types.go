package authsdk

// ============================================================================
// Wire Conventions
// ============================================================================

const (
	// CSRFHeader carries the anti-forgery token. The server sets it on
	// responses that issue a session; clients echo it on /auth/refresh.
	CSRFHeader = "X-CSRF-Token"

	// RefreshCookieName is the HTTP-only cookie holding the refresh token.
	RefreshCookieName = "refresh_token"

	// RefreshCookiePath scopes the refresh cookie to the auth endpoints.
	RefreshCookiePath = "/auth"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ============================================================================
// Accounts
// ============================================================================

// Admin is the public view of an administrator account.
type Admin struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	DisplayName      string `json:"displayName"`
	Role             string `json:"role"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

// ============================================================================
// Login and Sessions
// ============================================================================

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /auth/login and POST /auth/verify-2fa.
//
// When RequiresTwoFactor is set no session exists yet: AccessToken is empty
// and the caller must submit a code together with ChallengeToken.
type LoginResponse struct {
	AccessToken       string `json:"accessToken,omitempty"`
	ExpiresAt         int64  `json:"expiresAt,omitempty"` // unix seconds
	RequiresTwoFactor bool   `json:"requiresTwoFactor,omitempty"`
	ChallengeToken    string `json:"challengeToken,omitempty"`
	ChallengeExpires  int64  `json:"challengeExpiresAt,omitempty"` // unix seconds
	Admin             Admin  `json:"admin"`
}

// VerifyTwoFactorRequest is the body of POST /auth/verify-2fa. Code is
// either a six digit TOTP code or a backup code.
type VerifyTwoFactorRequest struct {
	AccountID      string `json:"accountId"`
	Code           string `json:"code"`
	ChallengeToken string `json:"challengeToken"`
}

// RefreshResponse is returned by POST /auth/refresh. The rotated refresh
// cookie and the new CSRF header travel alongside it.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
	Admin       Admin  `json:"admin"`
}

// VerifyResponse is returned by POST /auth/verify.
type VerifyResponse struct {
	Valid bool   `json:"valid"`
	Admin *Admin `json:"admin,omitempty"`
}

// SuccessResponse acknowledges an operation with nothing else to report.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// RevokeAllResponse is returned by POST /auth/sessions/revoke-all.
type RevokeAllResponse struct {
	Revoked int64 `json:"revoked"`
}

// ============================================================================
// Two-Factor Management
// ============================================================================

// EnrollResponse carries the new TOTP secret. It is shown exactly once.
type EnrollResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
}

// CodeRequest carries a current TOTP code for confirm, regenerate and disable.
type CodeRequest struct {
	Code string `json:"code"`
}

// BackupCodesResponse lists freshly generated backup codes in plaintext.
type BackupCodesResponse struct {
	BackupCodes []string `json:"backupCodes"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
	Limiter  string `json:"limiter,omitempty"`
}
