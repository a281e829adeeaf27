// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/videotube/internal/platform/apperr"
	"github.com/taibuivan/videotube/internal/platform/metrics"
	"github.com/taibuivan/videotube/internal/platform/sec"
)

func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr, "expected an AppError, got %v", err)
	assert.Equal(t, status, appErr.HTTPStatus)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

// # Registration

/*
TestRegister_Success stores a hashed password and returns a sanitized record.
*/
func TestRegister_Success(t *testing.T) {
	f := newFixture(t)

	input := aliceInput()
	input.Username = "  Alice "
	input.Email = "A@X.com"
	input.CoverImagePath = "cover.png"

	user, err := f.service.Register(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "https://img.test/avatar.png", user.Avatar)
	assert.Equal(t, "https://img.test/cover.png", user.CoverImage)
	assert.Empty(t, user.PasswordHash)
	assert.Nil(t, user.RefreshToken)
	assert.NotNil(t, user.WatchHistory)

	stored := f.users.stored(t, "alice")
	assert.NotEqual(t, "p1", stored.PasswordHash)
	assert.True(t, f.hasher.Verify("p1", stored.PasswordHash))
	assert.Nil(t, stored.RefreshToken)
	assert.Equal(t, 1, f.recorder.count(eventRegister, metrics.OutcomeSuccess))
}

/*
TestRegister_Rejections covers every client-side failure of registration.
*/
func TestRegister_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RegisterInput)
		status  int
		message string
	}{
		{"blank_full_name", func(in *RegisterInput) { in.FullName = "  " }, http.StatusBadRequest, msgAllFieldsRequired},
		{"missing_password", func(in *RegisterInput) { in.Password = "" }, http.StatusBadRequest, msgAllFieldsRequired},
		{"missing_avatar", func(in *RegisterInput) { in.AvatarPath = "" }, http.StatusBadRequest, msgAvatarRequired},
		{"bad_email", func(in *RegisterInput) { in.Email = "not-an-email" }, http.StatusBadRequest, ""},
		{"bad_username", func(in *RegisterInput) { in.Username = "al ice" }, http.StatusBadRequest, ""},
		{"password_too_long", func(in *RegisterInput) { in.Password = string(make([]byte, 73)) + "x" }, http.StatusBadRequest, ""},
		{"email_with_display_name", func(in *RegisterInput) { in.Email = "Mallory <a@x.com>" }, http.StatusBadRequest, ""},
		{"username_too_long", func(in *RegisterInput) { in.Username = strings.Repeat("a", MaxUsernameLen+1) }, http.StatusBadRequest, ""},
		{"email_too_long", func(in *RegisterInput) { in.Email = strings.Repeat("a", MaxEmailLen) + "@x.com" }, http.StatusBadRequest, ""},
		{"full_name_too_long", func(in *RegisterInput) { in.FullName = strings.Repeat("é", MaxFullNameLen+1) }, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			input := aliceInput()
			tt.mutate(&input)

			_, err := f.service.Register(context.Background(), input)
			requireAppError(t, err, tt.status, tt.message)

			_, lookupErr := f.users.FindByUsernameOrEmail(context.Background(), "alice", "a@x.com")
			assert.True(t, apperr.IsNotFound(lookupErr))
		})
	}
}

/*
TestRegister_ColumnLimits accepts identifiers exactly at the column limits.
*/
func TestRegister_ColumnLimits(t *testing.T) {
	f := newFixture(t)
	input := aliceInput()
	input.Username = strings.Repeat("a", MaxUsernameLen)
	input.FullName = strings.Repeat("é", MaxFullNameLen)

	user, err := f.service.Register(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, user.Username, MaxUsernameLen)
}

/*
TestRegister_TrimsFullName stores the full name without surrounding spaces.
*/
func TestRegister_TrimsFullName(t *testing.T) {
	f := newFixture(t)
	input := aliceInput()
	input.FullName = "  Alice A \t"

	user, err := f.service.Register(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Alice A", user.FullName)
	assert.Equal(t, "Alice A", f.users.stored(t, "alice").FullName)
}

/*
TestRegister_Conflict rejects a taken username or email, whatever its case.
*/
func TestRegister_Conflict(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	sameEmail := aliceInput()
	sameEmail.Username = "bob"
	sameEmail.Email = "A@X.COM"
	_, err := f.service.Register(context.Background(), sameEmail)
	requireAppError(t, err, http.StatusConflict, msgUserExists)

	sameName := aliceInput()
	sameName.Email = "b@x.com"
	sameName.Username = "ALICE"
	_, err = f.service.Register(context.Background(), sameName)
	requireAppError(t, err, http.StatusConflict, msgUserExists)

	assert.Equal(t, 2, f.recorder.count(eventRegister, metrics.OutcomeFailure))
}

/*
TestRegister_AvatarUploadFailure creates nothing when the avatar cannot be stored.
*/
func TestRegister_AvatarUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.uploader.failing["avatar.png"] = true

	_, err := f.service.Register(context.Background(), aliceInput())
	requireAppError(t, err, http.StatusInternalServerError, msgAvatarUploadFailed)
	assert.Equal(t, "DEPENDENCY_FAILED", apperr.As(err).Code)

	_, lookupErr := f.users.FindByUsernameOrEmail(context.Background(), "alice", "")
	assert.True(t, apperr.IsNotFound(lookupErr))
}

/*
TestRegister_AvatarWithoutURL treats an upload that returned no URL as failed.
*/
func TestRegister_AvatarWithoutURL(t *testing.T) {
	f := newFixture(t)
	f.uploader.blank["avatar.png"] = true

	_, err := f.service.Register(context.Background(), aliceInput())
	requireAppError(t, err, http.StatusInternalServerError, msgAvatarUploadFailed)

	_, lookupErr := f.users.FindByUsernameOrEmail(context.Background(), "alice", "")
	assert.True(t, apperr.IsNotFound(lookupErr))
}

/*
TestRegister_CreateFailureLogsOrphanedUploads names the stored objects left behind.
*/
func TestRegister_CreateFailureLogsOrphanedUploads(t *testing.T) {
	f := newFixture(t)
	f.users.failCreate = apperr.Conflict(msgUserExists)

	input := aliceInput()
	input.CoverImagePath = "cover.png"

	_, err := f.service.Register(context.Background(), input)
	requireAppError(t, err, http.StatusConflict, msgUserExists)

	logs := f.logs.String()
	assert.Contains(t, logs, `"msg":"registration_uploads_orphaned"`)
	assert.Contains(t, logs, `"object_keys":["avatar.png","cover.png"]`)
}

/*
TestRegister_CoverUploadFailure still registers, with an empty cover image.
*/
func TestRegister_CoverUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.uploader.failing["cover.png"] = true

	input := aliceInput()
	input.CoverImagePath = "cover.png"

	user, err := f.service.Register(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, user.CoverImage)
}

/*
TestRegister_RefetchFailure reports an internal error after the record was committed.
*/
func TestRegister_RefetchFailure(t *testing.T) {
	f := newFixture(t)
	f.users.failRefetch = true

	_, err := f.service.Register(context.Background(), aliceInput())
	requireAppError(t, err, http.StatusInternalServerError, msgCreateUserFailed)

	_, lookupErr := f.users.FindByUsernameOrEmail(context.Background(), "alice", "")
	assert.NoError(t, lookupErr)
}

// # Login

/*
TestLogin_Success issues a pair and persists exactly the returned refresh token.
*/
func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	for _, input := range []LoginInput{
		{Username: "alice", Password: "p1"},
		{Email: "A@x.com", Password: "p1"},
	} {
		result, err := f.service.Login(context.Background(), input)
		require.NoError(t, err)

		assert.Equal(t, "alice", result.User.Username)
		assert.Empty(t, result.User.PasswordHash)
		assert.Nil(t, result.User.RefreshToken)

		stored := f.users.stored(t, "alice")
		require.NotNil(t, stored.RefreshToken)
		assert.Equal(t, result.RefreshToken, *stored.RefreshToken)

		claims, err := f.tokens.Verify(result.AccessToken, sec.DomainAccess)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, claims.UserID)
		assert.Equal(t, "a@x.com", claims.Email)
		assert.Equal(t, "Alice A", claims.FullName)
	}
}

/*
TestLogin_Failures distinguishes missing identifiers, unknown users and bad passwords.
*/
func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	_, err := f.service.Login(context.Background(), LoginInput{Password: "p1"})
	requireAppError(t, err, http.StatusBadRequest, msgIdentifierRequired)

	_, err = f.service.Login(context.Background(), LoginInput{Username: "carol", Password: "p1"})
	requireAppError(t, err, http.StatusNotFound, msgUserNotFound)

	_, err = f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "wrong"})
	requireAppError(t, err, http.StatusUnauthorized, msgInvalidCredentials)

	assert.Nil(t, f.users.stored(t, "alice").RefreshToken)
	assert.Equal(t, 3, f.recorder.count(eventLogin, metrics.OutcomeFailure))
}

/*
TestLogin_SupersedesPreviousSession leaves only the newest refresh token usable.
*/
func TestLogin_SupersedesPreviousSession(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	first, err := f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)
	second, err := f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.service.Refresh(context.Background(), first.RefreshToken)
	requireAppError(t, err, http.StatusUnauthorized, msgRefreshTokenReused)

	_, err = f.service.Refresh(context.Background(), second.RefreshToken)
	assert.NoError(t, err)
}

// # Refresh

/*
TestRefresh_Rotation replaces the stored token and rejects the presented one afterwards.
*/
func TestRefresh_Rotation(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	login, err := f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	pair, err := f.service.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	stored := f.users.stored(t, "alice")
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)

	_, err = f.service.Refresh(context.Background(), login.RefreshToken)
	requireAppError(t, err, http.StatusUnauthorized, msgRefreshTokenReused)

	// Reuse does not revoke the live token.
	_, err = f.service.Refresh(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)
}

/*
TestRefresh_InvalidTokens covers missing, foreign, cross-domain and expired tokens.
*/
func TestRefresh_InvalidTokens(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	login, err := f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	_, err = f.service.Refresh(context.Background(), "")
	requireAppError(t, err, http.StatusUnauthorized, msgUnauthorized)

	_, err = f.service.Refresh(context.Background(), "garbage")
	requireAppError(t, err, http.StatusUnauthorized, msgInvalidRefreshToken)

	_, err = f.service.Refresh(context.Background(), login.AccessToken)
	requireAppError(t, err, http.StatusUnauthorized, msgInvalidRefreshToken)

	f.clock.Advance(testRefreshTTL + time.Second)
	_, err = f.service.Refresh(context.Background(), login.RefreshToken)
	requireAppError(t, err, http.StatusUnauthorized, msgInvalidRefreshToken)
}

/*
TestRefresh_DeletedUser treats a token of a vanished account as invalid.
*/
func TestRefresh_DeletedUser(t *testing.T) {
	f := newFixture(t)
	user := f.registerAlice(t)

	login, err := f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	f.users.delete(user.ID)
	_, err = f.service.Refresh(context.Background(), login.RefreshToken)
	requireAppError(t, err, http.StatusUnauthorized, msgInvalidRefreshToken)
}

/*
TestRefresh_Concurrent lets exactly one of two simultaneous refreshes win.
*/
func TestRefresh_Concurrent(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	login, err := f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Refresh(context.Background(), login.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		requireAppError(t, err, http.StatusUnauthorized, msgRefreshTokenReused)
	}
	assert.Equal(t, 1, succeeded)
}

// # Logout

/*
TestLogout_UnsetsRefreshToken makes the last issued refresh token unusable.
*/
func TestLogout_UnsetsRefreshToken(t *testing.T) {
	f := newFixture(t)
	user := f.registerAlice(t)

	login, err := f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(context.Background(), user.ID))
	assert.Nil(t, f.users.stored(t, "alice").RefreshToken)

	_, err = f.service.Refresh(context.Background(), login.RefreshToken)
	requireAppError(t, err, http.StatusUnauthorized, msgRefreshTokenReused)

	// Access tokens stay valid until they expire.
	_, err = f.service.ResolveIdentity(context.Background(), login.AccessToken)
	assert.NoError(t, err)
}

// # Password Change

/*
TestChangePassword verifies the old password and stores a fresh hash.
*/
func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	user := f.registerAlice(t)

	err := f.service.ChangePassword(context.Background(), user.ID, "nope", "p2")
	requireAppError(t, err, http.StatusBadRequest, msgInvalidOldPassword)

	require.NoError(t, f.service.ChangePassword(context.Background(), user.ID, "p1", "p2"))

	_, err = f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	requireAppError(t, err, http.StatusUnauthorized, msgInvalidCredentials)
	_, err = f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "p2"})
	assert.NoError(t, err)
}

// # Identity Resolution

/*
TestResolveIdentity accepts access tokens of live accounts only.
*/
func TestResolveIdentity(t *testing.T) {
	f := newFixture(t)
	user := f.registerAlice(t)

	login, err := f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	claims, err := f.service.ResolveIdentity(context.Background(), login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	_, err = f.service.ResolveIdentity(context.Background(), login.RefreshToken)
	requireAppError(t, err, http.StatusUnauthorized, msgInvalidAccessToken)

	f.clock.Advance(testAccessTTL + time.Second)
	_, err = f.service.ResolveIdentity(context.Background(), login.AccessToken)
	requireAppError(t, err, http.StatusUnauthorized, msgInvalidAccessToken)

	f.clock.Advance(-testAccessTTL)
	f.users.delete(user.ID)
	_, err = f.service.ResolveIdentity(context.Background(), login.AccessToken)
	requireAppError(t, err, http.StatusUnauthorized, msgInvalidAccessToken)
}
