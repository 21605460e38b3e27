package controllers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/curaious/workboard/internal/api/authenticator"
	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"golang.org/x/oauth2"
)

const accessTokenCookie = "access_token"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

func RegisterAuthRoutes(r *router.Router, svc *services.Services, auth *authenticator.Authenticator, conf *config.Config) {
	r.GET("/api/auth/enabled", func(ctx *fasthttp.RequestCtx) {
		writeOK(ctx, requestContext(ctx), "success", map[string]any{
			"oidcEnabled": auth.OIDCEnabled(),
		})
	})

	r.POST("/api/auth/register", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req user.RegisterRequest
		if !decodeBody(ctx, stdCtx, &req) {
			return
		}

		u, err := svc.User.Register(stdCtx, &req)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to register", err)
			return
		}

		issueSession(ctx, stdCtx, auth, conf, u)
	})

	// Login with email/password
	r.POST("/api/auth/login", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req LoginRequest
		if !decodeBody(ctx, stdCtx, &req) {
			return
		}

		if req.Email == "" || req.Password == "" {
			writeError(ctx, stdCtx, "Email and password are required", perrors.NewErrInvalidRequest("Email and password are required", errors.New("missing credentials")))
			return
		}

		u, err := svc.User.Authenticate(stdCtx, req.Email, req.Password)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid credentials", err)
			return
		}

		issueSession(ctx, stdCtx, auth, conf, u)
	})

	r.GET("/api/auth/me", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		u, err := svc.Identity.Current(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		writeOK(ctx, stdCtx, "success", u)
	})

	r.POST("/api/auth/logout", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var cookie fasthttp.Cookie
		cookie.SetKey(accessTokenCookie)
		cookie.SetValue("")
		cookie.SetPath("/")
		cookie.SetHTTPOnly(true)
		cookie.SetExpire(time.Now().Add(-1 * time.Hour))
		ctx.Response.Header.SetCookie(&cookie)

		writeOK(ctx, stdCtx, "Logged out successfully", nil)
	})

	r.PUT("/api/users/{id}/role", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var req user.UpdateRoleRequest
		if !decodeBody(ctx, stdCtx, &req) {
			return
		}

		actor, err := svc.Identity.Current(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		updated, err := svc.User.UpdateRole(stdCtx, actor, id, req.Role)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to update role", err)
			return
		}

		writeOK(ctx, stdCtx, "Role updated successfully", updated)
	})

	if !auth.OIDCEnabled() {
		return
	}

	r.GET("/api/auth/oidc/login", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		csrf := make([]byte, 16)
		if _, err := rand.Read(csrf); err != nil {
			writeError(ctx, stdCtx, "Failed to create state", err)
			return
		}

		redirect := conf.APP_BASE_URL
		if target := optionalStringQuery(ctx, "redirect"); target != nil && isSameOrigin(*target, conf.APP_BASE_URL) {
			redirect = *target
		}

		state := authenticator.OAuthState{
			CSRF:      base64.RawURLEncoding.EncodeToString(csrf),
			Redirect:  redirect,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
		}

		encodedState, err := auth.GetSignedState(state)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create signed state", err)
			return
		}

		url := auth.AuthCodeURL(encodedState, oauth2.SetAuthURLParam("audience", auth.Audience()))
		ctx.Redirect(url, fasthttp.StatusTemporaryRedirect)
	})

	r.GET("/api/auth/oidc/callback", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		encodedState := ctx.URI().QueryArgs().Peek("state")
		code := ctx.URI().QueryArgs().Peek("code")

		if encodedState == nil || code == nil {
			writeError(ctx, stdCtx, "Missing parameters", perrors.NewErrInvalidRequest("Missing parameters", errors.New("state and code are required")))
			return
		}

		state, err := auth.VerifySignedState(string(encodedState))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to decode state", perrors.NewErrInvalidRequest("Failed to decode state", err))
			return
		}

		token, err := auth.Exchange(stdCtx, string(code))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to exchange token", perrors.NewErrExternalService("Failed to exchange token", err))
			return
		}

		idToken, err := auth.VerifyIDToken(stdCtx, token)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to verify ID token", perrors.NewErrUnauthorized("Failed to verify ID token", err))
			return
		}

		caller, err := authenticator.IdentityFromIDToken(idToken)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to get claims", perrors.NewErrUnauthorized("Failed to get claims", err))
			return
		}

		u, err := svc.User.LinkIdentity(stdCtx, caller.Identifier, caller.Email, caller.Name)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to link identity", err)
			return
		}

		local, err := auth.GenerateToken(u)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to generate token", err)
			return
		}

		setSessionCookie(ctx, conf, local, auth.TokenTTL())
		ctx.Redirect(state.Redirect, fasthttp.StatusFound)
	})
}

func issueSession(ctx *fasthttp.RequestCtx, stdCtx context.Context, auth *authenticator.Authenticator, conf *config.Config, u *user.User) {
	token, err := auth.GenerateToken(u)
	if err != nil {
		writeError(ctx, stdCtx, "Failed to generate token", err)
		return
	}

	setSessionCookie(ctx, conf, token, auth.TokenTTL())
	writeOK(ctx, stdCtx, "success", LoginResponse{Token: token, User: u})
}

func setSessionCookie(ctx *fasthttp.RequestCtx, conf *config.Config, token string, ttl time.Duration) {
	var cookie fasthttp.Cookie
	cookie.SetKey(accessTokenCookie)
	cookie.SetValue(token)
	cookie.SetPath("/")
	cookie.SetHTTPOnly(true)
	cookie.SetSecure(conf.IsProduction())
	cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	cookie.SetExpire(time.Now().Add(ttl))
	ctx.Response.Header.SetCookie(&cookie)
}
