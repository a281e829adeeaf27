// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pointer builds optional fields for record patches.
package pointer

// To returns a pointer to v.
func To[T any](v T) *T {
	return &v
}
