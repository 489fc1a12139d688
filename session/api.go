package session

import (
	"context"

	"github.com/motrack/adminkit/principal"
)

// LoginResult is what a successful credential exchange yields.
type LoginResult struct {
	Token     string
	Principal *principal.Principal
}

// API is the remote admin backend as the session layer sees it. The real
// implementation lives in the restapi package; tests substitute a fake.
//
// Implementations map failures onto the internal/errors taxonomy:
// ErrInvalidCredentials, ErrTokenInvalid, ErrNetworkUnavailable,
// ErrServerError.
type API interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	VerifyToken(ctx context.Context, token string) error
	Profile(ctx context.Context, token string) (*principal.Principal, error)
	Logout(ctx context.Context, token string) error
}
