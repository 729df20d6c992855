package server

import "net/url"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHome = "/"

	// Member routes
	RouteLogin  = "/users/login"
	RouteSignup = "/users/signup"
	RouteLogout = "/users/logout"

	// Monologue routes
	RouteMonologues          = "/monologues"
	RouteMonologueWrite      = "/monologues/write"
	RouteMonologueRandom     = "/monologues/random"
	RouteMonologueDetail     = "/monologues/{id}"
	RouteMonologueEdit       = "/monologues/edit/{id}"
	RouteMonologueDelete     = "/monologues/delete/{id}"
	RouteMonologueAttachment = "/monologues/attachment/{id}"

	// Preferences
	RouteThemeToggle = "/theme/toggle"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
	RouteStaticJS  = "/js/{file}"
)

func monologuePath(id string) string {
	return RouteMonologues + "/" + url.PathEscape(id)
}

func monologueEditPath(id string) string {
	return RouteMonologues + "/edit/" + url.PathEscape(id)
}

func monologueDeletePath(id string) string {
	return RouteMonologues + "/delete/" + url.PathEscape(id)
}

func monologueAttachmentPath(id string) string {
	return RouteMonologues + "/attachment/" + url.PathEscape(id)
}
