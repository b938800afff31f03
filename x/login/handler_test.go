package login

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/gatehousehq/gatehouse/x/bootstrap"
	mock_bootstrap "github.com/gatehousehq/gatehouse/x/bootstrap/mock"
	"github.com/gatehousehq/gatehouse/x/core"
	mock_identity "github.com/gatehousehq/gatehouse/x/identity/mock"
	"github.com/gatehousehq/gatehouse/x/util"
)

func testConfig() util.Config {
	return util.Config{
		Gate: util.Gate{
			LoginPath:         "/auth/login",
			ProviderTimeoutMs: 100,
		},
	}
}

func postJSON(h func(echo.Context) error, path, body string, decorate func(*http.Request)) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestLoginSuccessOffersBootstrap(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockProvider := mock_identity.NewMockProvider(ctrl)
	mockProvider.EXPECT().Authenticate(gomock.Any(), "alice", "secret").Return(core.Session{
		Token:     "tok-1",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)

	mockService := mock_bootstrap.NewMockService(ctrl)
	mockService.EXPECT().Offer(gomock.Any()).Return(true, nil)

	h := NewHandler(mockProvider, mockService, testConfig())

	rec := postJSON(h.Login, "/auth/login", `{"username":"alice","password":"secret"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bootstrapAvailable":true`)

	cookies := rec.Result().Cookies()
	var found bool
	for _, cookie := range cookies {
		if cookie.Name == core.SessionCookieName {
			found = true
			assert.Equal(t, "tok-1", cookie.Value)
			assert.True(t, cookie.HttpOnly)
		}
	}
	assert.True(t, found)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockProvider := mock_identity.NewMockProvider(ctrl)
	mockProvider.EXPECT().Authenticate(gomock.Any(), "alice", "wrong").
		Return(core.Session{}, core.ErrNoIdentity)

	mockService := mock_bootstrap.NewMockService(ctrl)

	h := NewHandler(mockProvider, mockService, testConfig())

	rec := postJSON(h.Login, "/auth/login", `{"username":"alice","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBootstrapFirstActorPromotedSecondRefused(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockProvider := mock_identity.NewMockProvider(ctrl)
	mockProvider.EXPECT().Validate(gomock.Any(), "tok-u1").Return(&core.Identity{ID: "u1"}, nil)
	mockProvider.EXPECT().Validate(gomock.Any(), "tok-u2").Return(&core.Identity{ID: "u2"}, nil)

	mockService := mock_bootstrap.NewMockService(ctrl)
	gomock.InOrder(
		mockService.EXPECT().Attempt(gomock.Any(), &core.Identity{ID: "u1"}).Return(bootstrap.Promoted, nil),
		mockService.EXPECT().Attempt(gomock.Any(), &core.Identity{ID: "u2"}).Return(bootstrap.AlreadyBootstrapped, nil),
	)

	h := NewHandler(mockProvider, mockService, testConfig())

	rec := postJSON(h.Bootstrap, "/auth/bootstrap", "", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: core.SessionCookieName, Value: "tok-u1"})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Promoted")
	assert.Contains(t, rec.Body.String(), "/admin/dashboard")

	rec = postJSON(h.Bootstrap, "/auth/bootstrap", "", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: core.SessionCookieName, Value: "tok-u2"})
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "AlreadyBootstrapped")
}

func TestBootstrapWithoutSessionIsActorUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no credential on the request: the provider is never consulted and no
	// write happens
	mockProvider := mock_identity.NewMockProvider(ctrl)
	mockProvider.EXPECT().Validate(gomock.Any(), gomock.Any()).Times(0)

	mockService := mock_bootstrap.NewMockService(ctrl)
	mockService.EXPECT().Attempt(gomock.Any(), nil).Return(bootstrap.ActorUnknown, nil)

	h := NewHandler(mockProvider, mockService, testConfig())

	rec := postJSON(h.Bootstrap, "/auth/bootstrap", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "ActorUnknown")
}

func TestBootstrapSurfacesRetryableFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockProvider := mock_identity.NewMockProvider(ctrl)
	mockProvider.EXPECT().Validate(gomock.Any(), "tok-u1").Return(&core.Identity{ID: "u1"}, nil)

	mockService := mock_bootstrap.NewMockService(ctrl)
	mockService.EXPECT().Attempt(gomock.Any(), gomock.Any()).
		Return(bootstrap.Failed, core.ErrProviderUnavailable)

	h := NewHandler(mockProvider, mockService, testConfig())

	rec := postJSON(h.Bootstrap, "/auth/bootstrap", "", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: core.SessionCookieName, Value: "tok-u1"})
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "try again")
}

func TestStatusReportsFreshState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockProvider := mock_identity.NewMockProvider(ctrl)
	mockProvider.EXPECT().Validate(gomock.Any(), "tok-u1").Return(&core.Identity{ID: "u1"}, nil)

	mockService := mock_bootstrap.NewMockService(ctrl)
	mockService.EXPECT().Offer(gomock.Any()).Return(false, nil)

	h := NewHandler(mockProvider, mockService, testConfig())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: core.SessionCookieName, Value: "tok-u1"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, h.Status(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bootstrapAvailable":false`)
	assert.Contains(t, rec.Body.String(), "u1")
}

func TestLogoutRevokesSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockProvider := mock_identity.NewMockProvider(ctrl)
	mockProvider.EXPECT().Revoke(gomock.Any(), "tok-u1").Return(nil)

	mockService := mock_bootstrap.NewMockService(ctrl)

	h := NewHandler(mockProvider, mockService, testConfig())

	rec := postJSON(h.Logout, "/auth/logout", "", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: core.SessionCookieName, Value: "tok-u1"})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
