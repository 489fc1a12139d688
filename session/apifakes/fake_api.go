package apifakes

import (
	"context"
	"sync"

	"github.com/motrack/adminkit/principal"
	"github.com/motrack/adminkit/session"
)

var _ session.API = (*FakeAPI)(nil)

// FakeAPI is a scriptable session.API for Manager tests. Each operation
// delegates to its stub when set; otherwise it succeeds with the configured
// defaults.
type FakeAPI struct {
	lock sync.Mutex

	LoginStub   func(ctx context.Context, email, password string) (*session.LoginResult, error)
	VerifyStub  func(ctx context.Context, token string) error
	ProfileStub func(ctx context.Context, token string) (*principal.Principal, error)
	LogoutStub  func(ctx context.Context, token string) error

	DefaultPrincipal *principal.Principal
	DefaultToken     string

	LoginCalls   int
	VerifyCalls  int
	ProfileCalls int
	LogoutCalls  int
}

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{DefaultToken: "fake-token"}
}

func (f *FakeAPI) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	f.lock.Lock()
	f.LoginCalls++
	stub := f.LoginStub
	f.lock.Unlock()
	if stub != nil {
		return stub(ctx, email, password)
	}
	return &session.LoginResult{Token: f.DefaultToken, Principal: f.DefaultPrincipal}, nil
}

func (f *FakeAPI) VerifyToken(ctx context.Context, token string) error {
	f.lock.Lock()
	f.VerifyCalls++
	stub := f.VerifyStub
	f.lock.Unlock()
	if stub != nil {
		return stub(ctx, token)
	}
	return nil
}

func (f *FakeAPI) Profile(ctx context.Context, token string) (*principal.Principal, error) {
	f.lock.Lock()
	f.ProfileCalls++
	stub := f.ProfileStub
	f.lock.Unlock()
	if stub != nil {
		return stub(ctx, token)
	}
	return f.DefaultPrincipal, nil
}

func (f *FakeAPI) Logout(ctx context.Context, token string) error {
	f.lock.Lock()
	f.LogoutCalls++
	stub := f.LogoutStub
	f.lock.Unlock()
	if stub != nil {
		return stub(ctx, token)
	}
	return nil
}
