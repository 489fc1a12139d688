package restapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "github.com/motrack/adminkit/internal/errors"
	"github.com/motrack/adminkit/restapi"
)

const (
	testEmail    = "admin@motrack.io"
	testPassword = "Sup3rSecret"
	testToken    = "token-abc"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(payload))
}

func TestLoginFlatResponseShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin-auth/admin-login", r.URL.Path)
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, testEmail, creds["email"])

		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"token":   testToken,
			"user":    map[string]interface{}{"id": "adm-1", "email": testEmail, "isActive": true, "role": "admin"},
		})
	}))
	defer server.Close()

	client, err := restapi.New(server.URL)
	require.NoError(t, err)

	result, err := client.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, testToken, result.Token)
	require.Equal(t, testEmail, result.Principal.Email)
	// Legacy bare-string role is normalized on decode.
	require.Equal(t, "admin", result.Principal.Role.Name)
}

func TestLoginWrappedResponseShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"token": testToken,
				"admin": map[string]interface{}{"id": "adm-1", "email": testEmail, "isActive": true},
			},
		})
	}))
	defer server.Close()

	client, err := restapi.New(server.URL)
	require.NoError(t, err)

	result, err := client.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, testToken, result.Token)
	require.Equal(t, testEmail, result.Principal.Email)
}

func TestLoginMapsStatusOntoErrorTaxonomy(t *testing.T) {
	status := http.StatusUnauthorized
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, status, map[string]string{"message": "no"})
	}))
	defer server.Close()

	client, err := restapi.New(server.URL)
	require.NoError(t, err)

	_, err = client.Login(context.Background(), testEmail, "wrong")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	status = http.StatusInternalServerError
	_, err = client.Login(context.Background(), testEmail, testPassword)
	require.ErrorIs(t, err, errs.ErrServerError)

	// Only 401 means bad credentials; a 403 is some other server-side
	// refusal and surfaces as such.
	status = http.StatusForbidden
	_, err = client.Login(context.Background(), testEmail, testPassword)
	require.ErrorIs(t, err, errs.ErrServerError)
	require.NotErrorIs(t, err, errs.ErrInvalidCredentials)
}

func TestLoginFallsBackToLegacyEndpointOnTransportFailure(t *testing.T) {
	legacy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"token": testToken,
				"user":  map[string]interface{}{"id": "adm-1", "email": testEmail, "isActive": true},
			},
		})
	}))
	defer legacy.Close()

	// Primary points at a closed port.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	client, err := restapi.New(dead.URL, restapi.WithLegacyBaseURL(legacy.URL))
	require.NoError(t, err)

	result, err := client.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, testToken, result.Token)
}

func TestLoginRejectionDoesNotRetryLegacyEndpoint(t *testing.T) {
	legacyCalls := 0
	legacy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		legacyCalls++
	}))
	defer legacy.Close()

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "no"})
	}))
	defer primary.Close()

	client, err := restapi.New(primary.URL, restapi.WithLegacyBaseURL(legacy.URL))
	require.NoError(t, err)

	_, err = client.Login(context.Background(), testEmail, "wrong")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)
	// The fallback is a transport retry, never a credential retry.
	require.Equal(t, 0, legacyCalls)
}

func TestLoginTransportFailureWithoutLegacyIsNetworkUnavailable(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	client, err := restapi.New(dead.URL)
	require.NoError(t, err)

	_, err = client.Login(context.Background(), testEmail, testPassword)
	require.ErrorIs(t, err, errs.ErrNetworkUnavailable)
}

func TestVerifyTokenSendsBearerAndMapsStatuses(t *testing.T) {
	var gotAuth string
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/verify-token", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, status, map[string]bool{"valid": status == http.StatusOK})
	}))
	defer server.Close()

	client, err := restapi.New(server.URL)
	require.NoError(t, err)

	require.NoError(t, client.VerifyToken(context.Background(), testToken))
	require.Equal(t, "Bearer "+testToken, gotAuth)

	status = http.StatusUnauthorized
	require.ErrorIs(t, client.VerifyToken(context.Background(), testToken), errs.ErrTokenInvalid)

	status = http.StatusBadGateway
	require.ErrorIs(t, client.VerifyToken(context.Background(), testToken), errs.ErrServerError)
}

func TestProfileDecodesEveryShape(t *testing.T) {
	shapes := []interface{}{
		map[string]interface{}{"id": "adm-1", "email": testEmail, "isActive": true},
		map[string]interface{}{"user": map[string]interface{}{"id": "adm-1", "email": testEmail, "isActive": true}},
		map[string]interface{}{"data": map[string]interface{}{"id": "adm-1", "email": testEmail, "isActive": true}},
	}
	for _, shape := range shapes {
		payload := shape
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, payload)
		}))
		client, err := restapi.New(server.URL)
		require.NoError(t, err)

		p, err := client.Profile(context.Background(), testToken)
		require.NoError(t, err)
		require.Equal(t, testEmail, p.Email)
		server.Close()
	}
}

func TestFetchRawReturnsPayloadVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/trips", r.URL.Path)
		require.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, []map[string]string{{"id": "t-1"}})
	}))
	defer server.Close()

	client, err := restapi.New(server.URL)
	require.NoError(t, err)

	raw, err := client.FetchRaw(context.Background(), testToken, "/trips")
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":"t-1"}]`, string(raw))

	_, err = client.FetchRaw(context.Background(), testToken, "no-leading-slash")
	require.Error(t, err)
}

func TestTimeoutMapsToNetworkUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := restapi.New(server.URL, restapi.WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	err = client.VerifyToken(context.Background(), testToken)
	require.ErrorIs(t, err, errs.ErrNetworkUnavailable)
}
