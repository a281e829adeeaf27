// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/videotube/internal/platform/request"
	"github.com/taibuivan/videotube/internal/platform/respond"
	"github.com/taibuivan/videotube/internal/users/auth"
)

// HandlerConfig carries the upload staging settings.
type HandlerConfig struct {
	UploadDir      string
	MaxUploadBytes int64
}

// Handler implements the HTTP layer for user account management.
//
// # Security
//
// Every endpoint requires an authenticated caller.
type Handler struct {
	accountService *Service
	config         HandlerConfig
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service, config HandlerConfig) *Handler {
	return &Handler{accountService: service, config: config}
}

// RegisterRoutes attaches the account endpoints to router behind authenticated.
func (handler *Handler) RegisterRoutes(router chi.Router, authenticated func(http.Handler) http.Handler) {
	router.Group(func(r chi.Router) {
		r.Use(authenticated)

		// Account Management
		r.Get("/current-user", handler.getCurrentUser)
		r.Patch("/update-account", handler.updateAccount)
		r.Patch("/avatar", handler.updateAvatar)
		r.Patch("/cover-image", handler.updateCoverImage)

		// Social Graph
		r.Get("/c/{username}", handler.getChannelProfile)
		r.Get("/history", handler.getWatchHistory)
	})
}

// # Profile Endpoints

/*
GET /api/v1/users/current-user.

Response:
  - 200: User: Sanitized record of the caller
  - 401: Authentication required
*/
func (handler *Handler) getCurrentUser(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetCurrentUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user, "Current user fetched successfully")
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

/*
PATCH /api/v1/users/update-account.

Request:
  - body: {"fullName": "...", "email": "..."}

Response:
  - 200: User: The updated record
  - 400: Missing fields
  - 409: Email already used by another account
*/
func (handler *Handler) updateAccount(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateAccountRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateAccountDetails(request.Context(), userID, input.FullName, input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user, "Account details updated successfully")
}

/*
PATCH /api/v1/users/avatar.

Request:
  - multipart field 'avatar'
*/
func (handler *Handler) updateAvatar(writer http.ResponseWriter, request *http.Request) {
	handler.replaceImage(writer, request, auth.FieldAvatar, handler.accountService.UpdateAvatar, "Avatar image updated successfully")
}

/*
PATCH /api/v1/users/cover-image.

Request:
  - multipart field 'coverImage'
*/
func (handler *Handler) updateCoverImage(writer http.ResponseWriter, request *http.Request) {
	handler.replaceImage(writer, request, auth.FieldCoverImage, handler.accountService.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdater func(ctx context.Context, userID, localPath string) (*auth.User, error)

func (handler *Handler) replaceImage(writer http.ResponseWriter, request *http.Request, field string, update imageUpdater, message string) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := requestutil.ParseMultipart(writer, request, handler.config.MaxUploadBytes); err != nil {
		respond.Error(writer, request, err)
		return
	}

	localPath, err := requestutil.SaveFormFile(request, field, handler.config.UploadDir)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer func() {
		if localPath != "" {
			_ = os.Remove(localPath)
		}
	}()

	user, err := update(request.Context(), userID, localPath)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user, message)
}

// # Social Graph Endpoints

/*
GET /api/v1/users/c/{username}.

Response:
  - 200: ChannelProfile: Counts and the caller's subscription flag
  - 404: Unknown channel
*/
func (handler *Handler) getChannelProfile(writer http.ResponseWriter, request *http.Request) {
	viewerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.accountService.GetChannelProfile(request.Context(), requestutil.Param(request, "username"), viewerID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile, "User channel fetched successfully")
}

/*
GET /api/v1/users/history.

Response:
  - 200: []WatchedVideo, newest first
*/
func (handler *Handler) getWatchHistory(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	history, err := handler.accountService.GetWatchHistory(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, history, "Watch history fetched successfully")
}
