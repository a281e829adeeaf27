// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/videotube/internal/platform/apperr"
	"github.com/taibuivan/videotube/internal/platform/sec"
	"github.com/taibuivan/videotube/internal/platform/storage"
)

// # In-Memory Record Store

type memoryUsers struct {
	mu    sync.Mutex
	byID  map[string]*User
	order []string

	// failRefetch makes FindByID fail for ids created through Create.
	failRefetch bool
	created     map[string]bool

	// failCreate, when set, is returned by Create.
	failCreate error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*User{}, created: map[string]bool{}}
}

func (store *memoryUsers) FindByID(_ context.Context, id string) (*User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.failRefetch && store.created[id] {
		return nil, errors.New("connection reset")
	}
	user, ok := store.byID[id]
	if !ok {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	return clone(user), nil
}

func (store *memoryUsers) FindByUsernameOrEmail(_ context.Context, username, email string) (*User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, id := range store.order {
		user := store.byID[id]
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return clone(user), nil
		}
	}
	return nil, apperr.NotFound(msgUserNotFound)
}

func (store *memoryUsers) Create(_ context.Context, user *User) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.failCreate != nil {
		return store.failCreate
	}
	for _, existing := range store.byID {
		if existing.Username == user.Username || existing.Email == user.Email {
			return apperr.Conflict(msgUserExists)
		}
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	store.byID[user.ID] = clone(user)
	store.order = append(store.order, user.ID)
	store.created[user.ID] = true
	return nil
}

func (store *memoryUsers) Update(_ context.Context, id string, patch UserPatch) (*User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.byID[id]
	if !ok {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if patch.FullName != nil {
		user.FullName = *patch.FullName
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.Avatar != nil {
		user.Avatar = *patch.Avatar
	}
	if patch.CoverImage != nil {
		user.CoverImage = *patch.CoverImage
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	switch {
	case patch.ClearRefreshToken:
		user.RefreshToken = nil
	case patch.RefreshToken != nil:
		token := *patch.RefreshToken
		user.RefreshToken = &token
	}
	user.UpdatedAt = time.Now()
	return clone(user), nil
}

func (store *memoryUsers) CompareAndSwapRefreshToken(_ context.Context, id, expected, next string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.byID[id]
	if !ok || user.RefreshToken == nil || *user.RefreshToken != expected {
		return false, nil
	}
	user.RefreshToken = &next
	return true, nil
}

func (store *memoryUsers) stored(t *testing.T, username string) *User {
	t.Helper()
	user, err := store.FindByUsernameOrEmail(context.Background(), username, "")
	require.NoError(t, err)
	return user
}

func (store *memoryUsers) delete(id string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.byID, id)
}

func clone(user *User) *User {
	copied := *user
	if user.RefreshToken != nil {
		token := *user.RefreshToken
		copied.RefreshToken = &token
	}
	copied.WatchHistory = append([]string(nil), user.WatchHistory...)
	return &copied
}

// # Collaborators

type fakeUploader struct {
	mu       sync.Mutex
	failing  map[string]bool
	blank    map[string]bool
	uploaded []string
}

func (uploader *fakeUploader) Upload(_ context.Context, localPath string) (*storage.UploadResult, error) {
	uploader.mu.Lock()
	defer uploader.mu.Unlock()

	if uploader.failing[localPath] {
		return nil, errors.New("image host unavailable")
	}
	uploader.uploaded = append(uploader.uploaded, localPath)
	if uploader.blank[localPath] {
		return &storage.UploadResult{Key: localPath}, nil
	}
	return &storage.UploadResult{Key: localPath, SecureURL: "https://img.test/" + localPath}, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events map[string]int
}

func (recorder *fakeRecorder) RecordAuthEvent(event, outcome string) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.events == nil {
		recorder.events = map[string]int{}
	}
	recorder.events[event+"/"+outcome]++
}

func (recorder *fakeRecorder) count(event, outcome string) int {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return recorder.events[event+"/"+outcome]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (clock *testClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *testClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(d)
}

// # Fixture

type fixture struct {
	service  *Service
	users    *memoryUsers
	uploader *fakeUploader
	recorder *fakeRecorder
	tokens   *sec.TokenService
	hasher   *sec.PasswordHasher
	clock    *testClock
	logs     *lockedBuffer
}

// lockedBuffer collects log output from concurrent requests.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (buffer *lockedBuffer) Write(p []byte) (int, error) {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return buffer.buf.Write(p)
}

func (buffer *lockedBuffer) String() string {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return buffer.buf.String()
}

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 240 * time.Hour
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{now: time.Now()}
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     testAccessTTL,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    testRefreshTTL,
		Issuer:        "videotube-test",
	}, sec.WithClock(clock.Now))
	require.NoError(t, err)

	f := &fixture{
		users:    newMemoryUsers(),
		uploader: &fakeUploader{failing: map[string]bool{}, blank: map[string]bool{}},
		recorder: &fakeRecorder{},
		tokens:   tokens,
		hasher:   sec.NewPasswordHasher(bcrypt.MinCost),
		clock:    clock,
		logs:     &lockedBuffer{},
	}
	logger := slog.New(slog.NewJSONHandler(f.logs, nil))
	f.service = NewService(f.users, f.hasher, f.tokens, f.uploader, f.recorder, logger)
	return f
}

func aliceInput() RegisterInput {
	return RegisterInput{
		FullName:   "Alice A",
		Email:      "a@x.com",
		Username:   "alice",
		Password:   "p1",
		AvatarPath: "avatar.png",
	}
}

func (f *fixture) registerAlice(t *testing.T) *User {
	t.Helper()
	user, err := f.service.Register(context.Background(), aliceInput())
	require.NoError(t, err)
	return user
}
