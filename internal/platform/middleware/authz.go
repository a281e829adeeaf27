// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taibuivan/videotube/internal/platform/apperr"
	"github.com/taibuivan/videotube/internal/platform/constants"
	"github.com/taibuivan/videotube/internal/platform/ctxutil"
	"github.com/taibuivan/videotube/internal/platform/respond"
	"github.com/taibuivan/videotube/internal/platform/sec"
)

// IdentityResolver turns a raw access token into verified claims.
//
// # Why an interface?
//
// Defining IdentityResolver here decouples the middleware from the session
// service, allowing tests to inject a stub.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, accessToken string) (*sec.Claims, error)
}

// Authenticate resolves the caller's access token, if any.
//
// # Flow
//  1. Read the 'accessToken' cookie, falling back to 'Authorization: Bearer <token>'.
//  2. If neither is present, the request proceeds as anonymous.
//  3. If present, verify through [IdentityResolver]; failures abort with 401.
//  4. Inject [*sec.Claims] into the request context for downstream use.
//
// # Parameters
//   - resolver: The IdentityResolver instance.
//
// # Returns
//   - An [http.Handler] middleware.
func Authenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Extraction ───────────────────────────────────────────
			token, err := accessToken(request)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── 2. Anonymous Access ───────────────────────────────────────────
			if token == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			claims, err := resolver.ResolveIdentity(request.Context(), token)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			if slot, ok := request.Context().Value(identitySlotKey{}).(*identitySlot); ok {
				slot.userID = claims.UserID
			}
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Unauthorized request"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// accessToken returns the bearer credential carried by request, or "".
func accessToken(request *http.Request) (string, error) {
	if cookie, err := request.Cookie(constants.AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	authHeader := request.Header.Get(constants.HeaderAuthorization)
	if authHeader == "" {
		return "", nil
	}

	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", apperr.Unauthorized("Invalid authorization format")
	}
	return strings.TrimSpace(token), nil
}

// # Identity Slot

// identitySlot lets [StructuredLogger] learn the user id resolved further
// down the chain.
type identitySlot struct {
	userID string
}

type identitySlotKey struct{}

func withIdentitySlot(ctx context.Context, slot *identitySlot) context.Context {
	return context.WithValue(ctx, identitySlotKey{}, slot)
}
