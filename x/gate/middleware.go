// Package gate decides, per request, whether the caller may pass
package gate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gatehousehq/gatehouse/x/bootstrap"
	"github.com/gatehousehq/gatehouse/x/core"
	"github.com/gatehousehq/gatehouse/x/identity"
	"github.com/gatehousehq/gatehouse/x/route"
	"github.com/gatehousehq/gatehouse/x/util"
)

var tracer = otel.Tracer("gate")

// Gate is the per-request session gate. Stateless across requests: every
// decision derives from the route table and one fresh provider query.
type Gate struct {
	table     *route.Table
	provider  identity.Provider
	bootstrap bootstrap.Service
	config    util.Config
}

// NewGate creates a new gate
func NewGate(table *route.Table, provider identity.Provider, bootstrap bootstrap.Service, config util.Config) *Gate {
	return &Gate{table: table, provider: provider, bootstrap: bootstrap, config: config}
}

// Middleware authorizes every request. Public routes pass without the
// credential being inspected at all, AuthFlow routes pass unconditionally,
// and Protected routes require a currently valid identity. Anything else
// redirects to the login surface; faults never fall open.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "Gate.Authorize")
			defer span.End()
			c.SetRequest(c.Request().WithContext(ctx))

			class := g.table.Classify(c.Request().URL.Path)
			c.Set(core.RouteClassCtxKey, class)
			span.SetAttributes(attribute.String("routeClass", class.String()))

			switch class {
			case route.Public, route.AuthFlow:
				// no identity lookup on purpose: public routes must not leak
				// credential-validity timing, and the login surface has to be
				// reachable without one
				return next(c)
			}

			credential := ExtractCredential(c)

			vctx, cancel := context.WithTimeout(ctx, g.config.Gate.ProviderTimeout())
			defer cancel()

			actor, err := g.provider.Validate(vctx, credential)
			if err != nil {
				if errors.Is(err, core.ErrNoIdentity) {
					// ordinary unauthenticated access, redirect silently
					return g.redirectToLogin(c)
				}

				span.RecordError(err)
				if g.config.Gate.AllowDegraded {
					slog.WarnContext(ctx, "identity provider unavailable, degraded mode allow",
						slog.String("path", c.Request().URL.Path),
						slog.String("error", err.Error()),
					)
					return next(c)
				}

				slog.ErrorContext(ctx, "identity provider unavailable, failing closed",
					slog.String("path", c.Request().URL.Path),
					slog.String("error", err.Error()),
				)
				return g.redirectToLogin(c)
			}

			c.Set(core.IdentityCtxKey, actor)
			span.SetAttributes(attribute.String("actor", actor.ID))
			return next(c)
		}
	}
}

// RequireAdmin guards admin-only routes. Chained after Middleware; the role
// is re-read from the authority-of-record on every request, never taken from
// session state.
func (g *Gate) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "Gate.RequireAdmin")
			defer span.End()
			c.SetRequest(c.Request().WithContext(ctx))

			actor, _ := c.Get(core.IdentityCtxKey).(*core.Identity)
			if actor == nil {
				return g.redirectToLogin(c)
			}

			role, err := g.bootstrap.RoleOf(ctx, actor)
			if err != nil {
				span.RecordError(err)
				slog.ErrorContext(ctx, "role lookup failed, failing closed",
					slog.String("actor", actor.ID),
					slog.String("error", err.Error()),
				)
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}

			if role != core.RoleAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}

			return next(c)
		}
	}
}

func (g *Gate) redirectToLogin(c echo.Context) error {
	return c.Redirect(http.StatusSeeOther, g.config.Gate.LoginPath)
}

// ExtractCredential pulls the session cookie or bearer token off a request.
// Empty string when the request carries neither.
func ExtractCredential(c echo.Context) string {
	if cookie, err := c.Cookie(core.SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	split := strings.SplitN(header, " ", 2)
	if len(split) != 2 || !strings.EqualFold(split[0], "Bearer") {
		return ""
	}
	return split[1]
}
