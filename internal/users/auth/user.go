// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session management layer.

It owns the account record, credential checks and the refresh-token
lifecycle: registration, login, rotation on refresh, and logout.

# Architecture

  - Entities: [User] and the [UserPatch] used for partial updates.
  - Repository: [UserRepository], implemented on PostgreSQL.
  - Service: the session coordinator, built on [sec.PasswordHasher] and [sec.TokenService].
  - Handler: the HTTP delivery layer with cookie handling.

Invariant: a user holds at most one live refresh token. Issuing a new one
overwrites the stored value, so every earlier token fails the next refresh.
*/
package auth

import (
	"time"

	"github.com/taibuivan/videotube/internal/platform/sec"
)

// # Domain Entities

// User represents a registered videotube account.
//
// PasswordHash and RefreshToken never leave the service: they are tagged
// out of JSON and cleared by [User.Sanitized].
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	WatchHistory []string  `json:"watchHistory"`
	PasswordHash string    `json:"-"`
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Sanitized returns a copy without credential material.
func (user *User) Sanitized() *User {
	clone := *user
	clone.PasswordHash = ""
	clone.RefreshToken = nil
	if clone.WatchHistory == nil {
		clone.WatchHistory = []string{}
	}
	return &clone
}

// Identity projects the fields embedded into access tokens.
func (user *User) Identity() sec.Identity {
	return sec.Identity{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
	}
}

// UserPatch lists the fields an update sets. Nil pointers are left untouched.
//
// PasswordHash must already be hashed: the repository never hashes.
type UserPatch struct {
	FullName     *string
	Email        *string
	Avatar       *string
	CoverImage   *string
	PasswordHash *string
	RefreshToken *string

	// ClearRefreshToken unsets the stored refresh token. It wins over RefreshToken.
	ClearRefreshToken bool
}

// IsEmpty reports whether the patch changes nothing.
func (patch UserPatch) IsEmpty() bool {
	return patch.FullName == nil && patch.Email == nil && patch.Avatar == nil &&
		patch.CoverImage == nil && patch.PasswordHash == nil && patch.RefreshToken == nil &&
		!patch.ClearRefreshToken
}

// TokenPair is the credential pair handed to a client after login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User *User `json:"user"`
	TokenPair
}

// # Field Identifiers

// Field names for validation in the authentication domain.
const (
	FieldUsername    = "username"
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldFullName    = "fullName"
	FieldAvatar      = "avatar"
	FieldCoverImage  = "coverImage"
	FieldOldPassword = "oldPassword"
	FieldNewPassword = "newPassword"
)

// Column limits of users.account, counted in characters.
const (
	MaxUsernameLen = 64
	MaxEmailLen    = 320
	MaxFullNameLen = 128
)
