// Package session owns "who is logged in". The Manager is the single writer
// of the persistent session store; permission checks and route guards read
// its in-memory mirror only.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	errs "github.com/motrack/adminkit/internal/errors"
	"github.com/motrack/adminkit/principal"
)

// ErrSuperseded is returned when an operation's result was discarded because
// a later Login or Logout replaced the session while it was in flight.
var ErrSuperseded = errors.New("operation superseded by a later login or logout")

// Manager is the single source of truth for the authenticated session.
//
// Operations are serialized by a monotonic sequence number. Login and Logout
// raise a barrier equal to their own number; any operation that started
// before the barrier has its result discarded instead of applied, so a stale
// verify can never clobber a fresh login (last write wins).
type Manager struct {
	api          API
	store        Store
	log          zerolog.Logger
	now          func() time.Time
	strictVerify bool

	mu          sync.Mutex
	seq         uint64
	barrier     uint64
	inflight    int
	token       string
	principal   *principal.Principal
	authed      bool
	needsVerify bool
	verifiedAt  time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) { m.now = nowFunc }
}

// WithStrictVerify makes VerifySession tear the session down on transport
// failure instead of keeping the cached session optimistically.
func WithStrictVerify() Option {
	return func(m *Manager) { m.strictVerify = true }
}

// New constructs a Manager. A persisted session, if present and readable, is
// loaded into memory but the state stays Unauthenticated until VerifySession
// or Login succeeds. Corrupted persisted state is cleared, never fatal.
func New(api API, store Store, options ...Option) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[session.New] api is required")
	}
	if store == nil {
		return nil, errors.New("[session.New] store is required")
	}

	m := &Manager{
		api:   api,
		store: store,
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range options {
		opt(m)
	}

	snapshot, err := store.Load()
	if err != nil {
		// A store that cannot be read is treated as no session. Clear it so
		// the next write starts from a clean slate.
		m.log.Warn().Err(err).Msg("session store unreadable, clearing")
		if clearErr := store.Clear(); clearErr != nil {
			m.log.Warn().Err(clearErr).Msg("session store clear failed")
		}
	} else if snapshot != nil && SanitizeValue(snapshot.Token) != "" {
		m.token = snapshot.Token
		m.principal = snapshot.Principal
		m.needsVerify = true
	}

	return m, nil
}

// IsAuthenticated reports whether a verified session is active.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authed
}

// Principal returns the current principal, nil when unauthenticated.
func (m *Manager) Principal() *principal.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authed {
		return nil
	}
	return m.principal
}

// Token returns the bearer token of the active session, empty when none.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authed {
		return ""
	}
	return m.token
}

// Loading reports whether any session operation is in flight. UI gates on
// this; there is no richer externally visible "authenticating" state.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight > 0
}

// HasPersistedSession reports whether a token survived from a previous run
// and VerifySession should be called.
func (m *Manager) HasPersistedSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != ""
}

// VerifiedAt returns when the session last passed backend verification,
// zero when it never has.
func (m *Manager) VerifiedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifiedAt
}

// Login exchanges credentials for a new session, atomically replacing any
// prior one. A failed attempt leaves the manager unauthenticated: the old
// session is cleared rather than implicitly trusted.
func (m *Manager) Login(ctx context.Context, email, password string) (*principal.Principal, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		// Same generic error as a wrong password, nothing to enumerate.
		return nil, errs.ErrInvalidCredentials
	}

	op := m.begin(true)
	defer m.end()

	result, err := m.api.Login(ctx, email, password)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.supersededLocked(op) {
		return nil, ErrSuperseded
	}

	if err != nil {
		m.teardownLocked()
		return nil, errors.Wrap(err, "[Manager.Login] api.Login")
	}
	if result == nil || result.Token == "" || result.Principal == nil {
		m.teardownLocked()
		return nil, errors.Wrap(errs.ErrServerError, "[Manager.Login] malformed login response")
	}
	if !result.Principal.IsActive {
		// Inactive accounts authenticate like wrong credentials do.
		m.teardownLocked()
		return nil, errs.ErrInvalidCredentials
	}

	m.applyLocked(result.Token, result.Principal)
	return result.Principal, nil
}

// Logout clears the session. It always succeeds from the caller's point of
// view: local state and store are cleared first, and the remote invalidation
// call is best-effort.
func (m *Manager) Logout(ctx context.Context) error {
	m.begin(true)
	defer m.end()

	m.mu.Lock()
	token := m.token
	m.teardownLocked()
	m.mu.Unlock()

	if token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			m.log.Warn().Err(err).Msg("remote logout failed, session cleared locally")
		}
	}
	return nil
}

// VerifySession re-validates the persisted token against the backend and
// fetches a fresh principal. The locally cached principal is never trusted
// blindly.
//
// Policy for an unreachable backend (transport failure, not an auth
// rejection): the previously persisted session is kept optimistically and
// re-verification is forced on the next VerifySession or RefreshPrincipal
// call. WithStrictVerify switches this to a teardown.
func (m *Manager) VerifySession(ctx context.Context) (*principal.Principal, error) {
	op, token := m.beginWithToken(false)
	defer m.end()
	return m.verify(ctx, op, token)
}

// verify runs the token check and profile fetch for an already allocated
// operation number.
func (m *Manager) verify(ctx context.Context, op uint64, token string) (*principal.Principal, error) {
	if token == "" {
		return nil, errs.ErrNoSession
	}

	if err := m.api.VerifyToken(ctx, token); err != nil {
		return m.verifyFailed(op, err)
	}

	fresh, err := m.api.Profile(ctx, token)
	if err != nil {
		return m.verifyFailed(op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.supersededLocked(op) {
		return nil, ErrSuperseded
	}
	if fresh == nil {
		m.teardownLocked()
		return nil, errors.Wrap(errs.ErrTokenInvalid, "[Manager.VerifySession] empty profile")
	}
	if !fresh.IsActive {
		m.teardownLocked()
		return nil, errs.ErrAccountInactive
	}

	m.applyLocked(token, fresh)
	return fresh, nil
}

// verifyFailed applies the teardown-or-keep policy for a failed verification.
func (m *Manager) verifyFailed(op uint64, cause error) (*principal.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.supersededLocked(op) {
		return nil, ErrSuperseded
	}

	if errors.Is(cause, errs.ErrNetworkUnavailable) && !m.strictVerify &&
		m.principal != nil && m.principal.IsActive {
		// Backend unreachable, not a rejection: keep the cached session and
		// force a re-check on the next opportunity.
		m.authed = true
		m.needsVerify = true
		m.log.Warn().Err(cause).Msg("verify unreachable, keeping cached session")
		return m.principal, nil
	}

	m.teardownLocked()
	if errors.Is(cause, errs.ErrNetworkUnavailable) {
		return nil, errors.Wrap(cause, "[Manager.VerifySession] backend unreachable")
	}
	return nil, errors.Wrap(errs.ErrTokenInvalid, cause.Error())
}

// RefreshPrincipal re-fetches principal attributes with the existing token,
// picking up role changes made by another admin. A failed refresh never logs
// the session out: prior state stays in place and the error is informational.
func (m *Manager) RefreshPrincipal(ctx context.Context) (*principal.Principal, error) {
	// Operation number and state snapshot must come from one critical
	// section: a Logout completing in between would carry a lower number
	// than the refresh and the refresh could re-install the dead session.
	op, token, authed, needsVerify := m.beginRefresh()
	defer m.end()

	if token == "" || !authed {
		return nil, errs.ErrNoSession
	}
	if needsVerify {
		// A previous verify never completed against the backend; honor the
		// re-attempt obligation before trusting the token further.
		return m.verify(ctx, op, token)
	}

	fresh, err := m.api.Profile(ctx, token)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.supersededLocked(op) {
		return nil, ErrSuperseded
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("principal refresh failed, keeping prior principal")
		return m.principal, errors.Wrap(err, "[Manager.RefreshPrincipal] api.Profile")
	}
	if fresh == nil {
		m.log.Warn().Msg("principal refresh returned empty profile, keeping prior principal")
		return m.principal, errors.Wrap(errs.ErrServerError, "[Manager.RefreshPrincipal] empty profile")
	}
	if !fresh.IsActive {
		m.teardownLocked()
		return nil, errs.ErrAccountInactive
	}

	m.applyLocked(token, fresh)
	return fresh, nil
}

// begin allocates the next operation number. Login and Logout raise the
// barrier so results of every earlier in-flight operation get discarded.
func (m *Manager) begin(raiseBarrier bool) uint64 {
	op, _ := m.beginWithToken(raiseBarrier)
	return op
}

// beginWithToken allocates the operation number and reads the current token
// in one critical section.
func (m *Manager) beginWithToken(raiseBarrier bool) (uint64, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if raiseBarrier {
		m.barrier = m.seq
	}
	m.inflight++
	return m.seq, m.token
}

// beginRefresh is beginWithToken plus the authenticated/needs-verify flags a
// refresh dispatches on, all read under the same lock as the number
// allocation.
func (m *Manager) beginRefresh() (op uint64, token string, authed, needsVerify bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.inflight++
	return m.seq, m.token, m.authed, m.needsVerify
}

func (m *Manager) end() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
}

func (m *Manager) supersededLocked(op uint64) bool {
	return op < m.barrier
}

// applyLocked installs a verified token/principal pair and persists it.
func (m *Manager) applyLocked(token string, p *principal.Principal) {
	m.token = token
	m.principal = p
	m.authed = true
	m.needsVerify = false
	m.verifiedAt = m.now()
	if err := m.store.Save(&Snapshot{Token: token, Principal: p}); err != nil {
		m.log.Warn().Err(err).Msg("session store save failed")
	}
}

// teardownLocked clears memory and store.
func (m *Manager) teardownLocked() {
	m.clearMemoryLocked()
	if err := m.store.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("session store clear failed")
	}
}

func (m *Manager) clearMemoryLocked() {
	m.token = ""
	m.principal = nil
	m.authed = false
	m.needsVerify = false
}
