// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Username and email arguments are expected in normalized form.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByUsernameOrEmail returns the first account whose username equals
		username or whose email equals email. Empty arguments never match.

		Parameters:
		  - context: context.Context
		  - username: string
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByUsernameOrEmail(context context.Context, username, email string) (*User, error)

	/*
		Create persists a brand-new user account.

		Parameters:
		  - context: context.Context
		  - user: *User (PasswordHash already set)

		Returns:
		  - error: apperr.Conflict on a duplicate username or email, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		Update applies patch to the account and returns the updated record.

		Parameters:
		  - context: context.Context
		  - id: string
		  - patch: UserPatch

		Returns:
		  - *User: The record after the update
		  - error: apperr.NotFound, apperr.Conflict or persistence failures
	*/
	Update(context context.Context, id string, patch UserPatch) (*User, error)

	/*
		CompareAndSwapRefreshToken replaces the stored refresh token with next
		only if it currently equals expected.

		Parameters:
		  - context: context.Context
		  - id: string
		  - expected: string
		  - next: string

		Returns:
		  - bool: false if the stored value no longer matched
		  - error: Persistence failures
	*/
	CompareAndSwapRefreshToken(context context.Context, id, expected, next string) (bool, error)
}
