// Package backendtest is an in-process stand-in for the admin backend. It
// speaks the same handful of endpoints the restapi client knows, issues real
// signed bearer tokens over bcrypt-checked fixture accounts, and exposes
// knobs for failure injection. Round-trip tests and the mockapi binary run
// against it; it is a test double, not a product surface.
package backendtest

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/motrack/adminkit/principal"
)

const tokenTTL = time.Hour

type adminRecord struct {
	principal    principal.Principal
	passwordHash string
}

// Server implements the admin backend contract in memory.
type Server struct {
	router chi.Router
	secret []byte

	mu      sync.Mutex
	admins  map[string]*adminRecord // keyed by email
	revoked map[string]bool         // revoked token IDs
	data    map[string]json.RawMessage

	// Failure injection for best-effort-path tests.
	FailLogout bool // logout endpoint answers 500
	RejectAll  bool // every authenticated endpoint answers 401
}

// New builds an empty Server with a random signing secret.
func New() *Server {
	s := &Server{
		secret:  []byte(uuid.NewString()),
		admins:  make(map[string]*adminRecord),
		revoked: make(map[string]bool),
		data:    make(map[string]json.RawMessage),
	}

	r := chi.NewRouter()
	r.Post("/admin-auth/admin-login", s.handleLogin)
	r.Post("/auth/login", s.handleLegacyLogin)
	r.Get("/auth/verify-token", s.handleVerify)
	r.Get("/auth/profile", s.handleProfile)
	r.Post("/auth/logout", s.handleLogout)
	r.Get("/*", s.handleData)
	s.router = r

	return s
}

// Handler returns the HTTP handler, for httptest.NewServer or mockapi.
func (s *Server) Handler() http.Handler { return s.router }

// AddAdmin registers a fixture account. The password is stored bcrypt-hashed
// the way the production backend stores it.
func (s *Server) AddAdmin(p principal.Principal, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[p.Email] = &adminRecord{principal: p, passwordHash: string(hash)}
	return nil
}

// UpdateAdmin replaces a fixture account's principal, keeping its password.
// Lets tests change a role server-side between RefreshPrincipal calls.
func (s *Server) UpdateAdmin(p principal.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.admins[p.Email]; ok {
		rec.principal = p
	}
}

// SetData serves payload from the given GET path for the data endpoints.
func (s *Server) SetData(path string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = raw
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	rec, token, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user":    rec.principal,
	})
}

// handleLegacyLogin answers in the older wrapped shape so the client's
// tolerant decoder stays exercised.
func (s *Server) handleLegacyLogin(w http.ResponseWriter, r *http.Request) {
	rec, token, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"token": token,
			"admin": rec.principal,
		},
	})
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*adminRecord, string, bool) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed request"})
		return nil, "", false
	}

	s.mu.Lock()
	rec := s.admins[creds.Email]
	s.mu.Unlock()

	// One generic rejection for unknown email and wrong password alike.
	if rec == nil || bcrypt.CompareHashAndPassword([]byte(rec.passwordHash), []byte(creds.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return nil, "", false
	}

	token, err := s.issueToken(creds.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "token issue failed"})
		return nil, "", false
	}
	return rec, token, true
}

func (s *Server) issueToken(email string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// bearerSubject validates the Authorization header and returns the token's
// subject email.
func (s *Server) bearerSubject(r *http.Request) (string, bool) {
	if s.RejectAll {
		return "", false
	}
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return "", false
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false
	}

	s.mu.Lock()
	revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return "", false
	}
	return claims.Subject, true
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.bearerSubject(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := s.bearerSubject(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return
	}
	s.mu.Lock()
	rec := s.admins[email]
	s.mu.Unlock()
	if rec == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unknown account"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": rec.principal})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.FailLogout {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "backend down"})
		return
	}
	header := r.Header.Get("Authorization")
	if raw, found := strings.CutPrefix(header, "Bearer "); found {
		var claims jwt.RegisteredClaims
		if _, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})); err == nil {
			s.mu.Lock()
			s.revoked[claims.ID] = true
			s.mu.Unlock()
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.bearerSubject(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return
	}
	s.mu.Lock()
	raw, ok := s.data[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no such resource"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
