package auth

// Client-visible descriptions. Upstream and store details never appear here.
const (
	descUnknownClient        = "unknown client_id"
	descStateMismatch        = "state mismatch"
	descMissingCallback      = "missing code or state"
	descIdPDenied            = "authorization was denied by the identity provider"
	descExchangeFailed       = "identity provider token exchange failed"
	descIdentityFailed       = "identity provider lookup failed"
	descNoEmail              = "identity provider did not return an email address"
	descEmailNotVerified     = "email address is not verified"
	descNotProvisioned       = "user is not provisioned"
	descStoreUnavailable     = "credential store unavailable"
	descGrantTypeRequired    = "grant_type is required"
	descUnsupportedGrantType = "unsupported grant_type"
	descRefreshNotEnabled    = "refresh_token grant is not implemented"
	descCodeRequired         = "code is required"
	descInvalidCode          = "invalid authorization code"
	descCodeExpired          = "authorization code expired"
	descClientMismatch       = "authorization code was issued to another client"
	descRedirectMismatch     = "redirect_uri does not match the authorization request"
	descVerifierMismatch     = "code_verifier does not match code_challenge"
	descRefreshRequired      = "refresh_token is required"
	descInvalidRefresh       = "invalid refresh token"
	descRefreshExpired       = "refresh token expired"
)
