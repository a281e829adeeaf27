// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/videotube/internal/platform/constants"
	"github.com/taibuivan/videotube/internal/platform/middleware"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

type testServer struct {
	*fixture
	router    http.Handler
	uploadDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	f := newFixture(t)
	uploadDir := t.TempDir()

	handler := NewHandler(f.service, HandlerConfig{
		CookieSecure:   true,
		AccessTTL:      testAccessTTL,
		RefreshTTL:     testRefreshTTL,
		UploadDir:      uploadDir,
		MaxUploadBytes: 1 << 20,
	})

	router := chi.NewRouter()
	router.Route("/api/v1/users", func(r chi.Router) {
		handler.RegisterRoutes(r, chi.Chain(middleware.Authenticate(f.service), middleware.RequireAuth).Handler)
	})
	return &testServer{fixture: f, router: router, uploadDir: uploadDir}
}

func (server *testServer) do(t *testing.T, request *http.Request, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, request)

	var body envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body), recorder.Body.String())
	assert.Equal(t, recorder.Code, body.StatusCode)
	assert.Equal(t, recorder.Code < http.StatusBadRequest, body.Success)
	return recorder, body
}

func jsonRequest(path string, payload any) *http.Request {
	raw, _ := json.Marshal(payload)
	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	request.Header.Set("Content-Type", "application/json")
	return request
}

func registerRequest(t *testing.T, fields map[string]string, withAvatar bool) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	if withAvatar {
		part, err := writer.CreateFormFile(FieldAvatar, "me.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	request := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	return request
}

func cookieNamed(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

var aliceFields = map[string]string{
	FieldFullName: "Alice A",
	FieldEmail:    "a@x.com",
	FieldUsername: "alice",
	FieldPassword: "p1",
}

/*
TestHandler_SessionLifecycle walks register, login, refresh, reuse and logout over HTTP.
*/
func TestHandler_SessionLifecycle(t *testing.T) {
	server := newTestServer(t)

	// ── Register ──────────────────────────────────────────────────────────
	recorder, body := server.do(t, registerRequest(t, aliceFields, true))
	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "User registered successfully", body.Message)
	assert.NotContains(t, string(body.Data), "password")
	assert.NotContains(t, string(body.Data), "refreshToken")

	var user User
	require.NoError(t, json.Unmarshal(body.Data, &user))
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, user.Avatar)

	staged, err := os.ReadDir(server.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, staged)

	// ── Login ─────────────────────────────────────────────────────────────
	recorder, body = server.do(t, jsonRequest("/api/v1/users/login", loginRequest{Username: "alice", Password: "p1"}))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "User logged in successfully", body.Message)

	var login LoginResult
	require.NoError(t, json.Unmarshal(body.Data, &login))
	assert.Equal(t, "alice", login.User.Username)

	access := cookieNamed(recorder, constants.AccessTokenCookie)
	refresh := cookieNamed(recorder, constants.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.Equal(t, login.AccessToken, access.Value)
	assert.Equal(t, login.RefreshToken, refresh.Value)
	for _, cookie := range []*http.Cookie{access, refresh} {
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, "/", cookie.Path)
	}

	// ── Refresh via cookie, with an expired access cookie alongside ───────
	server.clock.Advance(testAccessTTL + time.Second)
	recorder, body = server.do(t,
		httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil), access, refresh)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Access token refreshed", body.Message)

	var pair TokenPair
	require.NoError(t, json.Unmarshal(body.Data, &pair))
	assert.NotEqual(t, refresh.Value, pair.RefreshToken)
	assert.Equal(t, pair.AccessToken, cookieNamed(recorder, constants.AccessTokenCookie).Value)
	assert.Equal(t, pair.RefreshToken, cookieNamed(recorder, constants.RefreshTokenCookie).Value)

	// ── Reuse of the rotated token via body ───────────────────────────────
	recorder, body = server.do(t, jsonRequest("/api/v1/users/refresh-token", refreshRequest{RefreshToken: refresh.Value}))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, msgRefreshTokenReused, body.Message)

	// ── Logout ────────────────────────────────────────────────────────────
	logout := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	logout.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	recorder, body = server.do(t, logout)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "User logged out", body.Message)
	assert.JSONEq(t, `{}`, string(body.Data))

	for _, name := range []string{constants.AccessTokenCookie, constants.RefreshTokenCookie} {
		cleared := cookieNamed(recorder, name)
		require.NotNil(t, cleared, name)
		assert.Less(t, cleared.MaxAge, 0)
		assert.Empty(t, cleared.Value)
		assert.True(t, cleared.HttpOnly)
		assert.True(t, cleared.Secure)
	}

	// ── Refresh after logout ──────────────────────────────────────────────
	recorder, body = server.do(t, jsonRequest("/api/v1/users/refresh-token", refreshRequest{RefreshToken: pair.RefreshToken}))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, msgRefreshTokenReused, body.Message)
}

/*
TestHandler_RegisterErrors maps service failures to their status codes.
*/
func TestHandler_RegisterErrors(t *testing.T) {
	server := newTestServer(t)

	recorder, body := server.do(t, registerRequest(t, aliceFields, false))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, msgAvatarRequired, body.Message)

	missing := map[string]string{FieldEmail: "a@x.com", FieldUsername: "alice", FieldPassword: "p1"}
	recorder, body = server.do(t, registerRequest(t, missing, true))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, msgAllFieldsRequired, body.Message)

	recorder, _ = server.do(t, registerRequest(t, aliceFields, true))
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder, body = server.do(t, registerRequest(t, aliceFields, true))
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, msgUserExists, body.Message)

	staged, err := os.ReadDir(server.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

/*
TestHandler_ProtectedRoutes rejects anonymous and malformed credentials.
*/
func TestHandler_ProtectedRoutes(t *testing.T) {
	server := newTestServer(t)

	recorder, body := server.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, msgUnauthorized, body.Message)

	request := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	request.Header.Set("Authorization", "Token abc")
	recorder, _ = server.do(t, request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, body = server.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil),
		&http.Cookie{Name: constants.AccessTokenCookie, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, msgInvalidAccessToken, body.Message)

	recorder, body = server.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, msgUnauthorized, body.Message)
}

/*
TestHandler_ChangePassword requires the caller's current password.
*/
func TestHandler_ChangePassword(t *testing.T) {
	server := newTestServer(t)
	server.registerAlice(t)

	recorder, _ := server.do(t, jsonRequest("/api/v1/users/login", loginRequest{Email: "a@x.com", Password: "p1"}))
	require.Equal(t, http.StatusOK, recorder.Code)
	access := cookieNamed(recorder, constants.AccessTokenCookie)

	recorder, body := server.do(t,
		jsonRequest("/api/v1/users/change-password", changePasswordRequest{OldPassword: "bad", NewPassword: "p2"}), access)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, msgInvalidOldPassword, body.Message)

	recorder, body = server.do(t,
		jsonRequest("/api/v1/users/change-password", changePasswordRequest{OldPassword: "p1", NewPassword: "p2"}), access)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Password changed successfully", body.Message)

	recorder, _ = server.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
		strings.NewReader(`{"username":"alice","password":"p1"}`)))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
