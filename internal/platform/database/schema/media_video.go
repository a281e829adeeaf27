// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// MediaVideoTable represents the 'media.video' table
type MediaVideoTable struct {
	Table       string
	ID          string
	Owner       string
	Title       string
	Description string
	VideoFile   string
	Thumbnail   string
	Duration    string
	Views       string
	IsPublished string
	CreatedAt   string
}

// MediaVideo is the schema definition for media.video
var MediaVideo = MediaVideoTable{
	Table:       "media.video",
	ID:          "id",
	Owner:       "ownerid",
	Title:       "title",
	Description: "description",
	VideoFile:   "videofile",
	Thumbnail:   "thumbnail",
	Duration:    "duration",
	Views:       "views",
	IsPublished: "ispublished",
	CreatedAt:   "createdat",
}

// MediaWatchHistoryTable represents the 'media.watchhistory' table
type MediaWatchHistoryTable struct {
	Table     string
	User      string
	Video     string
	WatchedAt string
}

// MediaWatchHistory is the schema definition for media.watchhistory
var MediaWatchHistory = MediaWatchHistoryTable{
	Table:     "media.watchhistory",
	User:      "userid",
	Video:     "videoid",
	WatchedAt: "watchedat",
}
