// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/videotube/internal/platform/apperr"
	"github.com/taibuivan/videotube/internal/platform/validate"
	"github.com/taibuivan/videotube/internal/users/auth"
	"github.com/taibuivan/videotube/pkg/normalize"
)

const (
	msgAllFieldsRequired  = "All fields are required"
	msgAvatarMissing      = "Avatar file is missing"
	msgCoverImageMissing  = "Cover image file is missing"
	msgAvatarUploadFailed = "Error while uploading avatar"
	msgCoverUploadFailed  = "Error while uploading cover image"
	msgUsernameMissing    = "username is missing"
	msgChannelNotFound    = "Channel does not exist"
)

// anonymousViewer keys the cached profile seen by unauthenticated callers.
const anonymousViewer = "anonymous"

// # Service Layer

// Service orchestrates profile updates and read queries for user accounts.
type Service struct {
	accountRepository AccountRepository
	channelRepository ChannelRepository
	cache             ProfileCache
	uploader          Uploader
	logger            *slog.Logger
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	accountRepo AccountRepository,
	channelRepo ChannelRepository,
	cache ProfileCache,
	uploader Uploader,
	logger *slog.Logger,
) *Service {
	return &Service{
		accountRepository: accountRepo,
		channelRepository: channelRepo,
		cache:             cache,
		uploader:          uploader,
		logger:            logger,
	}
}

// # Profile Management

/*
GetCurrentUser returns the sanitized record of the caller.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *auth.User: Sanitized user
  - error: Not found or execution failures
*/
func (service *Service) GetCurrentUser(context context.Context, userID string) (*auth.User, error) {
	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

/*
UpdateAccountDetails replaces the full name and email of the caller.

Description: Both fields are required. The email is normalized like at
registration, so the unique constraint keeps catching duplicates.

Parameters:
  - context: context.Context
  - userID: string
  - fullName: string
  - email: string

Returns:
  - *auth.User: The updated, sanitized user
  - error: Validation, Conflict or storage failures
*/
func (service *Service) UpdateAccountDetails(context context.Context, userID, fullName, email string) (*auth.User, error) {
	validator := &validate.Validator{}
	validator.Required(auth.FieldFullName, fullName).Required(auth.FieldEmail, email)
	if err := validator.ErrWithMessage(msgAllFieldsRequired); err != nil {
		return nil, err
	}

	email = normalize.Email(email)
	fullName = strings.TrimSpace(fullName)
	validator.
		Email(auth.FieldEmail, email).
		MaxLen(auth.FieldEmail, email, auth.MaxEmailLen).
		MaxLen(auth.FieldFullName, fullName, auth.MaxFullNameLen)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	user, err := service.accountRepository.Update(context, userID, auth.UserPatch{
		FullName: &fullName,
		Email:    &email,
	})
	if err != nil {
		return nil, err
	}

	service.invalidate(context, user.Username)
	service.logger.InfoContext(context, "user_account_updated", slog.String("user_id", userID))
	return user.Sanitized(), nil
}

/*
UpdateAvatar uploads a new avatar and stores its URL.

Parameters:
  - context: context.Context
  - userID: string
  - localPath: string (staged file, "" if none was sent)

Returns:
  - *auth.User: The updated, sanitized user
  - error: Validation, Dependency or storage failures
*/
func (service *Service) UpdateAvatar(context context.Context, userID, localPath string) (*auth.User, error) {
	return service.replaceImage(context, userID, localPath, imageAvatar)
}

/*
UpdateCoverImage uploads a new cover image and stores its URL.

Parameters:
  - context: context.Context
  - userID: string
  - localPath: string (staged file, "" if none was sent)

Returns:
  - *auth.User: The updated, sanitized user
  - error: Validation, Dependency or storage failures
*/
func (service *Service) UpdateCoverImage(context context.Context, userID, localPath string) (*auth.User, error) {
	return service.replaceImage(context, userID, localPath, imageCover)
}

type imageKind int

const (
	imageAvatar imageKind = iota
	imageCover
)

func (service *Service) replaceImage(context context.Context, userID, localPath string, kind imageKind) (*auth.User, error) {
	missing, failed := msgAvatarMissing, msgAvatarUploadFailed
	if kind == imageCover {
		missing, failed = msgCoverImageMissing, msgCoverUploadFailed
	}

	if localPath == "" {
		return nil, apperr.ValidationError(missing)
	}

	uploaded, err := service.uploader.Upload(context, localPath)
	if err != nil || uploaded.SecureURL == "" {
		service.logger.WarnContext(context, "image_upload_failed",
			slog.String("user_id", userID), slog.Any("error", err))
		return nil, apperr.Dependency(http.StatusBadRequest, failed)
	}

	patch := auth.UserPatch{Avatar: &uploaded.SecureURL}
	if kind == imageCover {
		patch = auth.UserPatch{CoverImage: &uploaded.SecureURL}
	}

	user, err := service.accountRepository.Update(context, userID, patch)
	if err != nil {
		return nil, err
	}

	service.invalidate(context, user.Username)
	return user.Sanitized(), nil
}

// # Channel Queries

/*
GetChannelProfile returns the channel named username as seen by viewerID.

Description: Reads through the profile cache. Cache failures are logged and
the query falls back to the database.

Parameters:
  - context: context.Context
  - username: string
  - viewerID: string

Returns:
  - *ChannelProfile: Aggregated profile
  - error: Validation, NotFound or retrieval failures
*/
func (service *Service) GetChannelProfile(context context.Context, username, viewerID string) (*ChannelProfile, error) {
	username = normalize.Username(username)
	if username == "" {
		return nil, apperr.ValidationError(msgUsernameMissing)
	}

	cacheViewer := viewerID
	if cacheViewer == "" {
		cacheViewer = anonymousViewer
	}

	cached, err := service.cache.Get(context, username, cacheViewer)
	if err != nil {
		service.logger.WarnContext(context, "channel_cache_read_failed", slog.Any("error", err))
	}
	if cached != nil {
		return cached, nil
	}

	profile, err := service.channelRepository.FindChannelProfile(context, username, viewerID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound(msgChannelNotFound)
		}
		return nil, err
	}

	if err := service.cache.Set(context, username, cacheViewer, profile); err != nil {
		service.logger.WarnContext(context, "channel_cache_write_failed", slog.Any("error", err))
	}
	return profile, nil
}

/*
GetWatchHistory lists the videos the caller watched, newest first.
*/
func (service *Service) GetWatchHistory(context context.Context, userID string) ([]WatchedVideo, error) {
	history, err := service.channelRepository.FindWatchHistory(context, userID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []WatchedVideo{}
	}
	return history, nil
}

func (service *Service) invalidate(context context.Context, username string) {
	if err := service.cache.Invalidate(context, username); err != nil {
		service.logger.WarnContext(context, "channel_cache_invalidate_failed",
			slog.String("username", username), slog.Any("error", err))
	}
}
