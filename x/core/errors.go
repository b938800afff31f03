package core

import "errors"

// Error kinds of the authorization core. Provider and store failures are
// wrapped into these at the boundary; nothing above the boundary inspects
// raw error text.
var (
	// ErrNoIdentity means the credential is absent, unknown or expired.
	// It is an ordinary outcome, not a fault.
	ErrNoIdentity = errors.New("no identity")

	// ErrProviderUnavailable means the identity provider or the
	// authority-of-record could not be reached. The gate fails closed on it.
	ErrProviderUnavailable = errors.New("provider unavailable")
)
