// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey holds the typed keys for request-scoped values.
//
// Only ctxutil reads and writes them; handlers go through its accessors.
package ctxkey

// key is unexported so no other package can mint a colliding key.
type key string

const (
	// KeyRequestID carries the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyUser carries the [sec.Claims] of the authenticated caller.
	KeyUser key = "user"

	// KeyLogger carries the request-scoped [*log/slog.Logger].
	KeyLogger key = "logger"
)
