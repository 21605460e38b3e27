package authenticator

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/bytedance/sonic"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Authenticator verifies caller tokens. Locally issued HS256 tokens are always
// accepted; RS256 access tokens of the external OIDC provider are accepted
// when AUTH0_DOMAIN is configured.
type Authenticator struct {
	*oidc.Provider
	oauth2.Config

	jwtSecret    []byte
	localIssuer  string
	tokenTTL     time.Duration
	stateSecret  string
	issuer       string
	jwksProvider *jwks.CachingProvider
	audience     string
	oidcEnabled  bool
	now          func() time.Time
}

// UserClaims are the claims of a locally issued token.
type UserClaims struct {
	TokenIdentifier string `json:"tid"`
	Email           string `json:"email,omitempty"`
	Name            string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// providerClaims are the custom claims read from provider access tokens.
type providerClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (c *providerClaims) Validate(context.Context) error {
	return nil
}

func New(conf *config.Config) (*Authenticator, error) {
	a := &Authenticator{
		jwtSecret:   []byte(conf.JWT_SECRET),
		localIssuer: conf.TOKEN_ISSUER,
		tokenTTL:    conf.TOKEN_TTL,
		stateSecret: conf.STATE_SECRET,
		audience:    conf.AUTH0_AUDIENCE,
		now:         time.Now,
	}

	if len(a.jwtSecret) == 0 {
		slog.Warn("JWT_SECRET is not set, using a random secret; issued tokens will not survive a restart")
		a.jwtSecret = make([]byte, 32)
		if _, err := rand.Read(a.jwtSecret); err != nil {
			return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
		}
	}
	if a.stateSecret == "" {
		a.stateSecret = string(a.jwtSecret)
	}

	if conf.AUTH0_DOMAIN == "" {
		return a, nil
	}

	issuer := "https://" + conf.AUTH0_DOMAIN + "/"

	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		return nil, err
	}

	issuerURL, err := url.Parse(issuer)
	if err != nil {
		return nil, err
	}

	a.Provider = provider
	a.Config = oauth2.Config{
		ClientID:     conf.AUTH0_CLIENT_ID,
		ClientSecret: conf.AUTH0_CLIENT_SECRET,
		RedirectURL:  conf.AUTH0_CALLBACK_URL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	a.issuer = issuer
	a.jwksProvider = jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	a.oidcEnabled = true

	return a, nil
}

func (a *Authenticator) OIDCEnabled() bool {
	return a.oidcEnabled
}

func (a *Authenticator) Audience() string {
	return a.audience
}

// TokenTTL is the lifetime of locally issued tokens.
func (a *Authenticator) TokenTTL() time.Duration {
	return a.tokenTTL
}

// GenerateToken issues a local access token for u. The token carries the
// user's stored token identifier so linked external identities resolve to
// the same user.
func (a *Authenticator) GenerateToken(u *user.User) (string, error) {
	tid := user.TokenIdentifierFor(a.localIssuer, u.ID.String())
	if u.TokenIdentifier != nil && *u.TokenIdentifier != "" {
		tid = *u.TokenIdentifier
	}

	now := a.now()
	claims := UserClaims{
		TokenIdentifier: tid,
		Email:           u.Email,
		Name:            u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.localIssuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// VerifyAccessToken validates a bearer token and returns the caller identity.
func (a *Authenticator) VerifyAccessToken(ctx context.Context, raw string) (*identity.Token, error) {
	var claims UserClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.localIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err == nil {
		if claims.TokenIdentifier == "" {
			return nil, errors.New("token has no identifier")
		}
		return &identity.Token{Identifier: claims.TokenIdentifier, Email: claims.Email, Name: claims.Name}, nil
	}

	if !a.oidcEnabled {
		return nil, err
	}
	return a.verifyProviderToken(ctx, raw)
}

func (a *Authenticator) verifyProviderToken(ctx context.Context, raw string) (*identity.Token, error) {
	jwtValidator, err := validator.New(
		a.jwksProvider.KeyFunc,
		validator.RS256,
		a.issuer,
		[]string{a.Audience()},
		validator.WithCustomClaims(func() validator.CustomClaims { return &providerClaims{} }),
	)
	if err != nil {
		return nil, err
	}

	payload, err := jwtValidator.ValidateToken(ctx, raw)
	if err != nil {
		return nil, err
	}

	validated, ok := payload.(*validator.ValidatedClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}

	token := &identity.Token{
		Identifier: user.TokenIdentifierFor(validated.RegisteredClaims.Issuer, validated.RegisteredClaims.Subject),
	}
	if custom, ok := validated.CustomClaims.(*providerClaims); ok {
		token.Email = custom.Email
		token.Name = custom.Name
	}
	return token, nil
}

// VerifyIDToken verifies that an *oauth2.Token is a valid *oidc.IDToken.
func (a *Authenticator) VerifyIDToken(ctx context.Context, token *oauth2.Token) (*oidc.IDToken, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token field in oauth2 token")
	}

	oidcConfig := &oidc.Config{
		ClientID: a.ClientID,
	}

	return a.Verifier(oidcConfig).Verify(ctx, rawIDToken)
}

// IdentityFromIDToken maps a verified ID token to the caller identity.
func IdentityFromIDToken(idToken *oidc.IDToken) (*identity.Token, error) {
	var profile struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&profile); err != nil {
		return nil, fmt.Errorf("failed to read id token claims: %w", err)
	}

	return &identity.Token{
		Identifier: user.TokenIdentifierFor(idToken.Issuer, idToken.Subject),
		Email:      profile.Email,
		Name:       profile.Name,
	}, nil
}

type OAuthState struct {
	CSRF      string `json:"csrf"`
	Redirect  string `json:"redirect"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func (a *Authenticator) GetSignedState(state OAuthState) (string, error) {
	payload, err := sonic.Marshal(state)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(a.stateSecret))
	mac.Write(payload)
	sig := mac.Sum(nil)

	combined := append(payload, sig...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

func (a *Authenticator) VerifySignedState(encodedState string) (*OAuthState, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedState)
	if err != nil {
		return nil, errors.New("invalid base64")
	}

	if len(raw) < sha256.Size {
		return nil, errors.New("state too short")
	}

	payload := raw[:len(raw)-sha256.Size]
	sig := raw[len(raw)-sha256.Size:]

	mac := hmac.New(sha256.New, []byte(a.stateSecret))
	mac.Write(payload)
	expectedSig := mac.Sum(nil)
	if !hmac.Equal(sig, expectedSig) {
		return nil, errors.New("invalid state signature")
	}

	var state OAuthState
	if err := sonic.Unmarshal(payload, &state); err != nil {
		return nil, errors.New("invalid state payload")
	}

	if a.now().Unix() > state.ExpiresAt {
		return nil, errors.New("state expired")
	}

	return &state, nil
}
