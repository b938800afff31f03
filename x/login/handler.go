// Package login orchestrates credential submission and the bootstrap flow
package login

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gatehousehq/gatehouse/x/bootstrap"
	"github.com/gatehousehq/gatehouse/x/core"
	"github.com/gatehousehq/gatehouse/x/gate"
	"github.com/gatehousehq/gatehouse/x/identity"
	"github.com/gatehousehq/gatehouse/x/util"
)

var tracer = otel.Tracer("login")

const adminLanding = "/admin/dashboard"

// Handler is the interface for handling HTTP requests
type Handler interface {
	Login(c echo.Context) error
	Logout(c echo.Context) error
	Bootstrap(c echo.Context) error
	Status(c echo.Context) error
	CreateUser(c echo.Context) error
}

type handler struct {
	provider  identity.Provider
	bootstrap bootstrap.Service
	config    util.Config
}

// NewHandler creates a new handler
func NewHandler(provider identity.Provider, bootstrap bootstrap.Service, config util.Config) Handler {
	return &handler{provider: provider, bootstrap: bootstrap, config: config}
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type createUserRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Tags     []string `json:"tags"`
}

// Login authenticates a credential pair, opens a session, and reports
// whether the one-time bootstrap action is currently on offer.
func (h handler) Login(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Handler.Login")
	defer span.End()

	var request loginRequest
	err := c.Bind(&request)
	if err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	session, err := h.provider.Authenticate(ctx, request.Username, request.Password)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, core.ErrNoIdentity) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		slog.ErrorContext(ctx, "authentication backend unavailable",
			slog.String("error", err.Error()),
		)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "authentication is temporarily unavailable, try again"})
	}

	h.setSessionCookie(c, session)

	// advisory read, only decides whether the promote action is shown
	offered, err := h.bootstrap.Offer(ctx)
	if err != nil {
		span.RecordError(err)
		offered = false
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": echo.Map{
		"bootstrapAvailable": offered,
	}})
}

// Logout revokes the current session.
func (h handler) Logout(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Handler.Logout")
	defer span.End()

	credential := gate.ExtractCredential(c)
	if credential != "" {
		if err := h.provider.Revoke(ctx, credential); err != nil {
			span.RecordError(err)
		}
	}

	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Bootstrap invokes the one-time admin promotion for the calling identity and
// surfaces the terminal outcome as an explicit message. Promotion requires an
// established identity; raw credentials are never accepted here.
func (h handler) Bootstrap(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Handler.Bootstrap")
	defer span.End()

	actor, err := h.resolveActor(ctx, c)
	if err != nil && !errors.Is(err, core.ErrNoIdentity) {
		span.RecordError(err)
		slog.ErrorContext(ctx, "identity provider unavailable during bootstrap",
			slog.String("error", err.Error()),
		)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"outcome": bootstrap.Failed.String(),
			"message": "could not verify your session, try again",
		})
	}

	outcome, err := h.bootstrap.Attempt(ctx, actor)
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "bootstrap attempt failed",
			slog.String("error", err.Error()),
		)
	}
	span.SetAttributes(attribute.String("outcome", outcome.String()))

	switch outcome {
	case bootstrap.Promoted:
		return c.JSON(http.StatusOK, echo.Map{
			"outcome":  outcome.String(),
			"message":  "you are now the administrator",
			"redirect": adminLanding,
		})
	case bootstrap.AlreadyBootstrapped:
		return c.JSON(http.StatusConflict, echo.Map{
			"outcome": outcome.String(),
			"message": "an administrator already exists",
		})
	case bootstrap.ActorUnknown:
		return c.JSON(http.StatusForbidden, echo.Map{
			"outcome": outcome.String(),
			"message": "sign in before requesting promotion",
		})
	default:
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"outcome": bootstrap.Failed.String(),
			"message": "promotion failed, try again",
		})
	}
}

// Status reports who the caller is and whether bootstrap is on offer, both
// re-derived from fresh queries for the login page to render on load.
func (h handler) Status(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Handler.Status")
	defer span.End()

	content := echo.Map{}

	actor, err := h.resolveActor(ctx, c)
	if err == nil && actor != nil {
		content["identity"] = actor
	}

	offered, err := h.bootstrap.Offer(ctx)
	if err != nil {
		span.RecordError(err)
		offered = false
	}
	content["bootstrapAvailable"] = offered

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": content})
}

// CreateUser registers a user. Admin-gated in the route table.
func (h handler) CreateUser(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Handler.CreateUser")
	defer span.End()

	var request createUserRequest
	err := c.Bind(&request)
	if err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	user, err := h.provider.Register(ctx, request.Username, request.Password, request.Tags)
	if err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, echo.Map{"status": "ok", "content": user})
}

func (h handler) setSessionCookie(c echo.Context, session core.Session) {
	c.SetCookie(&http.Cookie{
		Name:     core.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h handler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     core.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h handler) resolveActor(ctx context.Context, c echo.Context) (*core.Identity, error) {
	credential := gate.ExtractCredential(c)
	if credential == "" {
		return nil, nil
	}

	vctx, cancel := context.WithTimeout(ctx, h.config.Gate.ProviderTimeout())
	defer cancel()

	actor, err := h.provider.Validate(vctx, credential)
	if err != nil {
		if errors.Is(err, core.ErrNoIdentity) {
			return nil, nil
		}
		return nil, err
	}
	return actor, nil
}
