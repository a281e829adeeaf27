// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/videotube/internal/platform/constants"
	requestutil "github.com/taibuivan/videotube/internal/platform/request"
	"github.com/taibuivan/videotube/internal/platform/respond"
)

// # Definitions & Constructors

// HandlerConfig carries the transport settings of the session endpoints.
type HandlerConfig struct {
	// CookieSecure sets the Secure flag. Only local development turns it off.
	CookieSecure bool
	AccessTTL    time.Duration
	RefreshTTL   time.Duration

	// UploadDir is where multipart files are staged before upload.
	UploadDir      string
	MaxUploadBytes int64
}

// Handler implements the session HTTP endpoints.
//
// This layer owns cookies and body decoding. Every rule about credentials
// lives in [Service].
type Handler struct {
	authService *Service
	config      HandlerConfig
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, config HandlerConfig) *Handler {
	return &Handler{authService: service, config: config}
}

// RegisterRoutes attaches the session endpoints to router.
//
// # Endpoints
//   - POST /register        : Multipart account creation.
//   - POST /login           : Starts a session and sets both cookies.
//   - POST /refresh-token   : Rotates the session.
//   - POST /logout          : Ends the session (authenticated).
//   - POST /change-password : Replaces the password (authenticated).
//
// authenticated must reject anonymous callers.
func (handler *Handler) RegisterRoutes(router chi.Router, authenticated func(http.Handler) http.Handler) {
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh-token", handler.refresh)

	router.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/logout", handler.logout)
		r.Post("/change-password", handler.changePassword)
	})
}

// # Request Payloads

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

/*
Register handles the creation of a new user account.

POST /api/v1/users/register

Request:
  - Body: multipart form (fullName, email, username, password, avatar, coverImage)

Response:
  - 201: User: Sanitized account
  - 400: Missing fields or avatar
  - 409: Username or email taken
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	if err := requestutil.ParseMultipart(writer, request, handler.config.MaxUploadBytes); err != nil {
		respond.Error(writer, request, err)
		return
	}

	avatarPath, err := requestutil.SaveFormFile(request, FieldAvatar, handler.config.UploadDir)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer discard(avatarPath)

	coverImagePath, err := requestutil.SaveFormFile(request, FieldCoverImage, handler.config.UploadDir)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer discard(coverImagePath)

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		FullName:       requestutil.FormValue(request, FieldFullName),
		Email:          requestutil.FormValue(request, FieldEmail),
		Username:       requestutil.FormValue(request, FieldUsername),
		Password:       requestutil.FormValue(request, FieldPassword),
		AvatarPath:     avatarPath,
		CoverImagePath: coverImagePath,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user, "User registered successfully")
}

/*
Login authenticates a user and starts a session.

POST /api/v1/users/login

Response:
  - 200: LoginResult, with accessToken and refreshToken cookies set
  - 401: Wrong password
  - 404: Unknown user
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, &result.TokenPair)
	respond.OK(writer, result, "User logged in successfully")
}

/*
Logout ends the caller's session.

POST /api/v1/users/logout

Response:
  - 200: Empty data, both cookies cleared
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearSessionCookies(writer)
	respond.OK(writer, nil, "User logged out")
}

/*
Refresh exchanges a refresh token for a new pair.

POST /api/v1/users/refresh-token

Request:
  - Cookie 'refreshToken', or Body: {"refreshToken": "..."}

Response:
  - 200: TokenPair, with both cookies replaced
  - 401: Missing, invalid, expired or already rotated token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	token := ""
	if cookie, err := request.Cookie(constants.RefreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" && request.ContentLength != 0 {
		var input refreshRequest
		if err := requestutil.DecodeJSON(request, &input); err == nil {
			token = input.RefreshToken
		}
	}

	pair, err := handler.authService.Refresh(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, pair)
	respond.OK(writer, pair, "Access token refreshed")
}

/*
ChangePassword replaces the caller's password.

POST /api/v1/users/change-password

Response:
  - 200: Empty data
  - 400: Old password does not match
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ChangePassword(request.Context(), userID, input.OldPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, nil, "Password changed successfully")
}

// # Cookies

func (handler *Handler) setSessionCookies(writer http.ResponseWriter, pair *TokenPair) {
	http.SetCookie(writer, handler.cookie(constants.AccessTokenCookie, pair.AccessToken, handler.config.AccessTTL))
	http.SetCookie(writer, handler.cookie(constants.RefreshTokenCookie, pair.RefreshToken, handler.config.RefreshTTL))
}

// clearSessionCookies expires both cookies with the attributes they were set with.
func (handler *Handler) clearSessionCookies(writer http.ResponseWriter) {
	for _, name := range []string{constants.AccessTokenCookie, constants.RefreshTokenCookie} {
		cookie := handler.cookie(name, "", 0)
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		http.SetCookie(writer, cookie)
	}
}

func (handler *Handler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     constants.SessionCookiePath,
		MaxAge:   int(ttl / time.Second),
		Secure:   handler.config.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// discard removes a staged upload left behind by an early return.
func discard(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
