// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package normalize canonicalizes account identifiers before they are
// compared or stored.
//
// # Transformation Pipeline
//
// 1. Unicode NFKC (folds compatibility forms: full-width "ａ" → "a").
// 2. Trim surrounding whitespace.
// 3. Lowercase.
//
// Applying the same pipeline at every uniqueness check, lookup and write
// keeps "Alice", " alice " and "ＡＬＩＣＥ" pointing at one record.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Username returns the canonical form of a channel handle.
func Username(s string) string {
	return fold(s)
}

// Email returns the canonical form of an email address.
func Email(s string) string {
	return fold(s)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}
