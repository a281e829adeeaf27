// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/videotube/internal/platform/database/schema"
	"github.com/taibuivan/videotube/internal/platform/dberr"
)

// # Repository Implementations

// PostgresChannelRepository implements [ChannelRepository] using pgx.
type PostgresChannelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository creates a new Postgres implementation of the channel read queries.
func NewChannelRepository(pool *pgxpool.Pool) *PostgresChannelRepository {
	return &PostgresChannelRepository{pool: pool}
}

var (
	account      = schema.UserAccount
	subscription = schema.UserSubscription
	video        = schema.MediaVideo
	history      = schema.MediaWatchHistory
)

/*
FindChannelProfile aggregates a channel and its subscription counts.

Description: The viewer id is compared as text, so an anonymous viewer ("")
simply never matches instead of failing the UUID cast.

Parameters:
  - context: context.Context
  - username: string
  - viewerID: string

Returns:
  - *ChannelProfile: Aggregated profile
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresChannelRepository) FindChannelProfile(context context.Context, username, viewerID string) (*ChannelProfile, error) {
	query := fmt.Sprintf(`
		SELECT a.%[2]s::text, a.%[3]s, a.%[4]s, a.%[5]s, a.%[6]s, a.%[7]s,
		       (SELECT COUNT(*) FROM %[8]s s WHERE s.%[9]s = a.%[2]s),
		       (SELECT COUNT(*) FROM %[8]s s WHERE s.%[10]s = a.%[2]s),
		       EXISTS (SELECT 1 FROM %[8]s s WHERE s.%[9]s = a.%[2]s AND s.%[10]s::text = $2)
		FROM %[1]s a
		WHERE a.%[4]s = $1`,
		account.Table, account.ID, account.FullName, account.Username, account.Email,
		account.Avatar, account.CoverImage,
		subscription.Table, subscription.Channel, subscription.Subscriber,
	)

	profile := &ChannelProfile{}
	err := repository.pool.QueryRow(context, query, username, viewerID).Scan(
		&profile.ID,
		&profile.FullName,
		&profile.Username,
		&profile.Email,
		&profile.Avatar,
		&profile.CoverImage,
		&profile.SubscribersCount,
		&profile.ChannelsSubscribedToCount,
		&profile.IsSubscribed,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_channel_repo_find_profile_failed", msgChannelNotFound, "")
	}
	return profile, nil
}

/*
FindWatchHistory lists watched videos with their owner projection, newest first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []WatchedVideo: Ordered history
  - error: Database execution failure
*/
func (repository *PostgresChannelRepository) FindWatchHistory(context context.Context, userID string) ([]WatchedVideo, error) {
	query := fmt.Sprintf(`
		SELECT v.%[1]s::text, v.%[2]s, v.%[3]s, v.%[4]s, v.%[5]s, v.%[6]s, v.%[7]s, v.%[8]s, v.%[9]s,
		       w.%[10]s,
		       o.%[11]s::text, o.%[12]s, o.%[13]s, o.%[14]s
		FROM %[15]s w
		JOIN %[16]s v ON v.%[1]s = w.%[17]s
		JOIN %[18]s o ON o.%[11]s = v.%[19]s
		WHERE w.%[20]s = $1
		ORDER BY w.%[10]s DESC`,
		video.ID, video.VideoFile, video.Thumbnail, video.Title, video.Description,
		video.Duration, video.Views, video.IsPublished, video.CreatedAt,
		history.WatchedAt,
		account.ID, account.FullName, account.Username, account.Avatar,
		history.Table, video.Table, history.Video, account.Table, video.Owner, history.User,
	)

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_channel_repo_watch_history_failed: %w", err)
	}

	videos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (WatchedVideo, error) {
		var item WatchedVideo
		err := row.Scan(
			&item.ID,
			&item.VideoFile,
			&item.Thumbnail,
			&item.Title,
			&item.Description,
			&item.Duration,
			&item.Views,
			&item.IsPublished,
			&item.CreatedAt,
			&item.WatchedAt,
			&item.Owner.ID,
			&item.Owner.FullName,
			&item.Owner.Username,
			&item.Owner.Avatar,
		)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres_channel_repo_watch_history_scan_failed: %w", err)
	}
	return videos, nil
}
