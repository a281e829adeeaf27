// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/videotube/internal/platform/apperr"
	"github.com/taibuivan/videotube/internal/platform/metrics"
	"github.com/taibuivan/videotube/internal/platform/sec"
	"github.com/taibuivan/videotube/internal/platform/storage"
	"github.com/taibuivan/videotube/internal/platform/validate"
	"github.com/taibuivan/videotube/pkg/normalize"
	"github.com/taibuivan/videotube/pkg/pointer"
	"github.com/taibuivan/videotube/pkg/uuid"
)

// # Contracts & Types

// PasswordHasher hashes and checks user passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashed string) bool
}

// TokenIssuer signs and verifies access and refresh tokens.
type TokenIssuer interface {
	IssueAccess(identity sec.Identity) (string, error)
	IssueRefresh(userID string) (string, error)
	Verify(raw string, domain sec.Domain) (*sec.Claims, error)
}

// Uploader moves a staged local file to the image host and removes the local copy.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*storage.UploadResult, error)
}

// EventRecorder counts session lifecycle outcomes.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

// Service is the session coordinator.
//
// # Review Process
//
// This service is critical for security. Any change to the refresh-token
// rotation must keep the single-active-token invariant described on the package.
type Service struct {
	users    UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	uploader Uploader
	recorder EventRecorder
	logger   *slog.Logger
}

// NewService constructs a new [Service] with its collaborators.
func NewService(
	users UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	uploader Uploader,
	recorder EventRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		uploader: uploader,
		recorder: recorder,
		logger:   logger,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
//
// AvatarPath and CoverImagePath point at staged local files, "" when absent.
type RegisterInput struct {
	FullName       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Checks identifiers for conflicts, pushes the avatar (mandatory)
and the cover image (optional) to the image host, then stores the account
and returns it as re-read from the store.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity, sanitized
  - error: Validation, Conflict, Dependency or Internal errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	user, err := service.register(context, input)
	service.record(eventRegister, err)
	return user, err
}

func (service *Service) register(context context.Context, input RegisterInput) (*User, error) {
	validator := &validate.Validator{}
	validator.
		Required(FieldFullName, input.FullName).
		Required(FieldEmail, input.Email).
		Required(FieldUsername, input.Username).
		Required(FieldPassword, input.Password)
	if err := validator.ErrWithMessage(msgAllFieldsRequired); err != nil {
		return nil, err
	}

	username := normalize.Username(input.Username)
	email := normalize.Email(input.Email)
	fullName := strings.TrimSpace(input.FullName)

	validator.
		Username(FieldUsername, username).
		MaxLen(FieldUsername, username, MaxUsernameLen).
		Email(FieldEmail, email).
		MaxLen(FieldEmail, email, MaxEmailLen).
		MaxLen(FieldFullName, fullName, MaxFullNameLen).
		MaxBytes(FieldPassword, input.Password, sec.MaxPasswordBytes)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Identifier uniqueness. The unique constraints still catch a concurrent insert.
	_, err := service.users.FindByUsernameOrEmail(context, username, email)
	if err == nil {
		return nil, apperr.Conflict(msgUserExists)
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("auth_service_lookup_failed: %w", err)
	}

	if input.AvatarPath == "" {
		return nil, apperr.ValidationError(msgAvatarRequired)
	}

	avatar, err := service.uploader.Upload(context, input.AvatarPath)
	if err != nil || avatar.SecureURL == "" {
		service.logger.WarnContext(context, "avatar_upload_failed", slog.Any("error", err))
		return nil, apperr.Dependency(http.StatusInternalServerError, msgAvatarUploadFailed)
	}

	// A failed cover upload leaves the field empty rather than failing the registration.
	uploaded := []string{avatar.Key}
	coverImage := ""
	if input.CoverImagePath != "" {
		cover, err := service.uploader.Upload(context, input.CoverImagePath)
		if err != nil || cover.SecureURL == "" {
			service.logger.WarnContext(context, "cover_image_upload_failed", slog.Any("error", err))
		} else {
			coverImage = cover.SecureURL
			uploaded = append(uploaded, cover.Key)
		}
	}

	passwordHash, err := service.hasher.Hash(input.Password)
	if err != nil {
		service.warnOrphaned(context, uploaded, err)
		return nil, apperr.InternalMessage(msgCreateUserFailed, err)
	}

	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatar.SecureURL,
		CoverImage:   coverImage,
		PasswordHash: passwordHash,
	}
	if err := service.users.Create(context, user); err != nil {
		service.warnOrphaned(context, uploaded, err)
		return nil, err
	}

	created, err := service.users.FindByID(context, user.ID)
	if err != nil {
		service.logger.WarnContext(context, "user_refetch_failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, apperr.InternalMessage(msgCreateUserFailed, err)
	}

	service.logger.InfoContext(context, "user_registered", slog.String("user_id", created.ID))
	return created.Sanitized(), nil
}

// warnOrphaned logs the objects uploaded for a registration that was never persisted.
func (service *Service) warnOrphaned(context context.Context, keys []string, cause error) {
	service.logger.WarnContext(context, "registration_uploads_orphaned",
		slog.Any("object_keys", keys), slog.Any("error", cause))
}

// # Session Management

// LoginInput carries the credentials of a login attempt. Either identifier may be empty.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

/*
Login authenticates a user and starts a new session.

Description: Issuing the new refresh token overwrites the stored one, so any
session started before this login stops being refreshable.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Sanitized user and the new token pair
  - error: Validation, NotFound, Unauthorized or Internal errors
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginResult, error) {
	result, err := service.login(context, input)
	service.record(eventLogin, err)
	return result, err
}

func (service *Service) login(context context.Context, input LoginInput) (*LoginResult, error) {
	username := normalize.Username(input.Username)
	email := normalize.Email(input.Email)
	if username == "" && email == "" {
		return nil, apperr.ValidationError(msgIdentifierRequired)
	}

	user, err := service.users.FindByUsernameOrEmail(context, username, email)
	if err != nil {
		return nil, err
	}

	if !service.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	pair, err := service.issuePair(user)
	if err != nil {
		return nil, err
	}

	updated, err := service.users.Update(context, user.ID, UserPatch{RefreshToken: pointer.To(pair.RefreshToken)})
	if err != nil {
		return nil, apperr.InternalMessage(msgTokenIssueFailed, err)
	}

	service.logger.InfoContext(context, "user_logged_in", slog.String("user_id", user.ID))
	return &LoginResult{User: updated.Sanitized(), TokenPair: *pair}, nil
}

/*
Refresh rotates the session held by the presented refresh token.

Description: The token must verify under the refresh domain and equal the
value currently stored for its user. The stored value is swapped for the new
one in a single conditional write, so two concurrent refreshes with the same
token cannot both succeed.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *TokenPair: New credentials
  - error: Unauthorized or Internal errors
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := service.refresh(context, refreshToken)
	service.record(eventRefresh, err)
	return pair, err
}

func (service *Service) refresh(context context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized(msgUnauthorized)
	}

	claims, err := service.tokens.Verify(refreshToken, sec.DomainRefresh)
	if err != nil {
		service.logTokenFailure(context, sec.DomainRefresh, err)
		return nil, apperr.Unauthorized(msgInvalidRefreshToken)
	}

	user, err := service.users.FindByID(context, claims.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized(msgInvalidRefreshToken)
		}
		return nil, err
	}

	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		service.logger.WarnContext(context, "refresh_token_reuse_detected", slog.String("user_id", user.ID))
		return nil, apperr.Unauthorized(msgRefreshTokenReused)
	}

	pair, err := service.issuePair(user)
	if err != nil {
		return nil, err
	}

	swapped, err := service.users.CompareAndSwapRefreshToken(context, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, apperr.InternalMessage(msgTokenIssueFailed, err)
	}
	if !swapped {
		service.logger.WarnContext(context, "refresh_token_reuse_detected",
			slog.String("user_id", user.ID), slog.Bool("concurrent", true))
		return nil, apperr.Unauthorized(msgRefreshTokenReused)
	}

	return pair, nil
}

/*
Logout ends the session of the given user by unsetting the stored refresh token.

Access tokens already issued stay valid until they expire.
*/
func (service *Service) Logout(context context.Context, userID string) error {
	_, err := service.users.Update(context, userID, UserPatch{ClearRefreshToken: true})
	service.record(eventLogout, err)
	if err != nil {
		return err
	}
	service.logger.InfoContext(context, "user_logged_out", slog.String("user_id", userID))
	return nil
}

/*
ChangePassword replaces the password after checking the current one.

Parameters:
  - context: context.Context
  - userID: string
  - oldPassword: string
  - newPassword: string

Returns:
  - error: Validation, NotFound or Internal errors
*/
func (service *Service) ChangePassword(context context.Context, userID, oldPassword, newPassword string) error {
	err := service.changePassword(context, userID, oldPassword, newPassword)
	service.record(eventChangePassword, err)
	return err
}

func (service *Service) changePassword(context context.Context, userID, oldPassword, newPassword string) error {
	validator := &validate.Validator{}
	validator.
		Required(FieldOldPassword, oldPassword).
		Required(FieldNewPassword, newPassword).
		MaxBytes(FieldNewPassword, newPassword, sec.MaxPasswordBytes)
	if err := validator.Err(); err != nil {
		return err
	}

	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return err
	}

	if !service.hasher.Verify(oldPassword, user.PasswordHash) {
		return apperr.ValidationError(msgInvalidOldPassword)
	}

	passwordHash, err := service.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}

	_, err = service.users.Update(context, userID, UserPatch{PasswordHash: &passwordHash})
	return err
}

// # Identity Resolution

/*
ResolveIdentity turns an access token into the claims of a live account.

It backs the authentication middleware: the token must verify under the
access domain and its subject must still exist.

Returns:
  - *sec.Claims: Verified claims
  - error: apperr.Unauthorized on any failure of the token or the lookup
*/
func (service *Service) ResolveIdentity(context context.Context, accessToken string) (*sec.Claims, error) {
	claims, err := service.tokens.Verify(accessToken, sec.DomainAccess)
	if err != nil {
		service.logTokenFailure(context, sec.DomainAccess, err)
		return nil, apperr.Unauthorized(msgInvalidAccessToken)
	}

	if _, err := service.users.FindByID(context, claims.UserID); err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized(msgInvalidAccessToken)
		}
		return nil, err
	}
	return claims, nil
}

// # Helpers

func (service *Service) issuePair(user *User) (*TokenPair, error) {
	access, err := service.tokens.IssueAccess(user.Identity())
	if err != nil {
		return nil, apperr.InternalMessage(msgTokenIssueFailed, err)
	}
	refresh, err := service.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, apperr.InternalMessage(msgTokenIssueFailed, err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (service *Service) logTokenFailure(context context.Context, domain sec.Domain, err error) {
	reason := sec.TokenInvalid.String()
	if errors.Is(err, sec.ErrTokenExpired) {
		reason = sec.TokenExpired.String()
	}
	service.logger.WarnContext(context, "token_verification_failed",
		slog.String("domain", string(domain)), slog.String("reason", reason))
}

func (service *Service) record(event string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	service.recorder.RecordAuthEvent(event, outcome)
}
