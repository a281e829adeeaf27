// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles profile management and the social-graph read queries.

It lets an authenticated user view and update their own record, replace
their images, look at a channel, and list their watch history.

# Architecture

  - Entities: [ChannelProfile] and [WatchedVideo] read models.
  - Domain: This package depends on the auth package for the User entity and its repository.
  - Cache: Channel profiles are cached per viewer in Redis behind [ProfileCache].
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/videotube/internal/platform/storage"
	"github.com/taibuivan/videotube/internal/users/auth"
)

// # Read Models

// ChannelProfile is the public view of a channel as seen by one viewer.
type ChannelProfile struct {
	ID                        string `json:"_id"`
	FullName                  string `json:"fullName"`
	Username                  string `json:"username"`
	Email                     string `json:"email"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

// VideoOwner is the owner projection attached to each watched video.
type VideoOwner struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// WatchedVideo is one entry of a user's watch history.
type WatchedVideo struct {
	ID          string     `json:"_id"`
	VideoFile   string     `json:"videoFile"`
	Thumbnail   string     `json:"thumbnail"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Duration    float64    `json:"duration"`
	Views       int64      `json:"views"`
	IsPublished bool       `json:"isPublished"`
	CreatedAt   time.Time  `json:"createdAt"`
	WatchedAt   time.Time  `json:"watchedAt"`
	Owner       VideoOwner `json:"owner"`
}

// # Repository Contracts

// AccountRepository is the subset of [auth.UserRepository] used for profile updates.
type AccountRepository interface {
	FindByID(context context.Context, id string) (*auth.User, error)
	Update(context context.Context, id string, patch auth.UserPatch) (*auth.User, error)
}

// ChannelRepository serves the aggregate read queries.
type ChannelRepository interface {
	/*
		FindChannelProfile loads the channel named username with its
		subscription counts, as seen by viewerID.

		Parameters:
		  - context: context.Context
		  - username: string (normalized)
		  - viewerID: string ("" for nobody)

		Returns:
		  - *ChannelProfile: Aggregated profile
		  - error: apperr.NotFound or retrieval failures
	*/
	FindChannelProfile(context context.Context, username, viewerID string) (*ChannelProfile, error)

	/*
		FindWatchHistory lists the videos watched by userID, newest first.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []WatchedVideo: Possibly empty, never nil
		  - error: Retrieval failures
	*/
	FindWatchHistory(context context.Context, userID string) ([]WatchedVideo, error)
}

// ProfileCache stores channel profiles per (username, viewer).
//
// A miss is reported as (nil, nil).
type ProfileCache interface {
	Get(context context.Context, username, viewerID string) (*ChannelProfile, error)
	Set(context context.Context, username, viewerID string, profile *ChannelProfile) error
	Invalidate(context context.Context, username string) error
}

// Uploader moves a staged local file to the image host.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*storage.UploadResult, error)
}
