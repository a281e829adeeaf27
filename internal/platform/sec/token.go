// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/videotube/pkg/uuid"
)

// Domain selects the signing key and audience of a token.
type Domain string

const (
	// DomainAccess covers short-lived bearer tokens sent on every request.
	DomainAccess Domain = "access"
	// DomainRefresh covers long-lived tokens exchanged for a new pair.
	DomainRefresh Domain = "refresh"
)

// # Errors

// TokenErrorKind distinguishes why verification failed.
type TokenErrorKind int

const (
	// TokenInvalid covers malformed tokens, bad signatures and wrong domains.
	TokenInvalid TokenErrorKind = iota + 1
	// TokenExpired means the signature is valid but the expiry has passed.
	TokenExpired
)

func (kind TokenErrorKind) String() string {
	switch kind {
	case TokenExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// TokenError is returned by [TokenService.Verify].
//
// Callers log Kind but must answer every failure with the same 401.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// Is matches any [*TokenError] of the same kind, so the sentinels below work
// with [errors.Is].
func (e *TokenError) Is(target error) bool {
	other, ok := target.(*TokenError)
	return ok && other.Kind == e.Kind
}

var (
	ErrTokenInvalid = &TokenError{Kind: TokenInvalid}
	ErrTokenExpired = &TokenError{Kind: TokenExpired}
)

// # Claims

// Identity is the user projection embedded into access tokens.
type Identity struct {
	ID       string
	Email    string
	Username string
	FullName string
}

// Claims is the payload of both token kinds.
//
// Refresh tokens carry only the user id (plus a unique jti); the profile
// fields stay empty and are omitted from the encoded payload.
type Claims struct {
	jwt.RegisteredClaims

	UserID   string `json:"_id"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// # Service

// TokenConfig holds the signing material and lifetimes for both domains.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenService issues and verifies HS256 tokens for the access and refresh domains.
type TokenService struct {
	keys   map[Domain][]byte
	ttls   map[Domain]time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption customises a [TokenService].
type TokenOption func(*TokenService)

// WithClock replaces the wall clock used for issuing and verifying tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(service *TokenService) { service.now = now }
}

// NewTokenService validates cfg and builds a [TokenService].
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token_service: signing secrets must not be empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token_service: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token_service: token lifetimes must be positive")
	}

	service := &TokenService{
		keys: map[Domain][]byte{
			DomainAccess:  []byte(cfg.AccessSecret),
			DomainRefresh: []byte(cfg.RefreshSecret),
		},
		ttls: map[Domain]time.Duration{
			DomainAccess:  cfg.AccessTTL,
			DomainRefresh: cfg.RefreshTTL,
		},
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// IssueAccess signs an access token carrying the full identity.
func (service *TokenService) IssueAccess(identity Identity) (string, error) {
	return service.sign(DomainAccess, Claims{
		UserID:   identity.ID,
		Email:    identity.Email,
		Username: identity.Username,
		FullName: identity.FullName,
	})
}

// IssueRefresh signs a refresh token carrying only the user id.
func (service *TokenService) IssueRefresh(userID string) (string, error) {
	claims := Claims{UserID: userID}
	claims.ID = uuid.New()
	return service.sign(DomainRefresh, claims)
}

func (service *TokenService) sign(domain Domain, claims Claims) (string, error) {
	issuedAt := service.now()

	claims.Subject = claims.UserID
	claims.Issuer = service.issuer
	claims.Audience = jwt.ClaimStrings{string(domain)}
	claims.IssuedAt = jwt.NewNumericDate(issuedAt)
	claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(service.ttls[domain]))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(service.keys[domain])
	if err != nil {
		return "", fmt.Errorf("token_sign_failed: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, audience and expiry of raw under domain.
//
// It returns a [*TokenError] of kind [TokenExpired] when only the expiry is
// wrong and [TokenInvalid] for everything else.
func (service *TokenService) Verify(raw string, domain Domain) (*Claims, error) {
	key, ok := service.keys[domain]
	if !ok {
		return nil, &TokenError{Kind: TokenInvalid, Err: fmt.Errorf("unknown domain %q", domain)}
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(domain)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	}
	if service.issuer != "" {
		options = append(options, jwt.WithIssuer(service.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &TokenError{Kind: TokenExpired, Err: err}
		}
		return nil, &TokenError{Kind: TokenInvalid, Err: err}
	}

	if claims.UserID == "" {
		return nil, &TokenError{Kind: TokenInvalid, Err: errors.New("missing user id")}
	}
	return claims, nil
}
