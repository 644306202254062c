/*
Package authsdk is a Go client for the admin authentication service.

# SDKClient vs Session

  - SDKClient: unauthenticated calls (login, second factor, health) and
    the cookie jar holding the refresh token
  - Session: calls that need a bearer access token

Logging in:

	client := authsdk.NewSDKClient("https://admin.example.com")

	session, challenge, err := client.Login(ctx, "ops@example.com", password)
	if err != nil {
		return err
	}
	if session == nil {
		// Two-factor is enabled. Code is a TOTP code or a backup code.
		session, err = client.VerifyTwoFactor(ctx, challenge, code)
		if err != nil {
			return err
		}
	}

# Refresh

The refresh token never leaves the cookie jar. A Session keeps the access
token and the anti-forgery token in memory; when a request comes back 401
it calls POST /auth/refresh once, then retries the request once. Concurrent
401s on one Session share a single refresh, because the server treats a
second use of the same refresh token as theft and revokes the whole chain.

When the refresh is refused the call returns ErrReauthenticate:

	if errors.Is(err, authsdk.ErrReauthenticate) {
		// send the user back to the login form
	}

# Errors

Server errors decode into *APIError. The predefined values compare by code:

	if errors.Is(err, authsdk.ErrRateLimited) { ... }

# Thread Safety

Sessions are safe for concurrent use.
*/
package authsdk
