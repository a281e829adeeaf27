// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Client Messages

const (
	msgAllFieldsRequired   = "All fields are required"
	msgUserExists          = "User with email or username already exists"
	msgAvatarRequired      = "Avatar file is required"
	msgAvatarUploadFailed  = "Failed to upload avatar"
	msgCreateUserFailed    = "Something went wrong while registering the user"
	msgIdentifierRequired  = "Username or email is required"
	msgUserNotFound        = "User does not exist"
	msgInvalidCredentials  = "Invalid user credentials"
	msgTokenIssueFailed    = "Something went wrong while generating access and refresh token"
	msgUnauthorized        = "Unauthorized request"
	msgInvalidRefreshToken = "Invalid refresh token"
	msgRefreshTokenReused  = "Refresh token is expired or used"
	msgInvalidAccessToken  = "Invalid access token"
	msgInvalidOldPassword  = "Invalid old password"
)

// # Metric Events

const (
	eventRegister       = "register"
	eventLogin          = "login"
	eventRefresh        = "refresh"
	eventLogout         = "logout"
	eventChangePassword = "change_password"
)
