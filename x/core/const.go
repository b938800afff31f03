package core

const (
	IdentityCtxKey   = "gh-identity"
	RouteClassCtxKey = "gh-routeClass"
)

const (
	SessionCookieName = "gh_session"
)
