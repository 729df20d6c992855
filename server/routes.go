package server

import (
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// MEMBERS
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare(s.RedirectIfLoggedIn)...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.RedirectIfLoggedIn)...))
	s.RegisterRouteHandler("GET "+RouteSignup, ChainMiddleware(s.SignupGetHandler(), s.HTMLMiddleWare(s.RedirectIfLoggedIn)...))
	s.RegisterRouteHandler("POST "+RouteSignup, ChainMiddleware(s.SignupPostHandler(), s.HTMLMiddleWare(s.RedirectIfLoggedIn)...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// MONOLOGUES (all require a logged in session)
	s.RegisterRouteHandler("GET "+RouteMonologues, ChainMiddleware(s.MonologueListHandler(), s.HTMLMiddleWare(s.RequireLogin)...))
	s.RegisterRouteHandler("GET "+RouteMonologueWrite, ChainMiddleware(s.WriteGetHandler(), s.HTMLMiddleWare(s.RequireLogin)...))
	s.RegisterRouteHandler("POST "+RouteMonologueWrite, ChainMiddleware(s.WritePostHandler(), s.HTMLMiddleWare(s.RequireLogin)...))
	s.RegisterRouteHandler("GET "+RouteMonologueRandom, ChainMiddleware(s.RandomMonologueHandler(), s.HTMLMiddleWare(s.RequireLogin)...))
	s.RegisterRouteHandler("GET "+RouteMonologueDetail, ChainMiddleware(s.MonologueDetailHandler(), s.HTMLMiddleWare(s.RequireLogin)...))
	s.RegisterRouteHandler("GET "+RouteMonologueEdit, ChainMiddleware(s.EditGetHandler(), s.HTMLMiddleWare(s.RequireLogin)...))
	s.RegisterRouteHandler("POST "+RouteMonologueEdit, ChainMiddleware(s.EditPostHandler(), s.HTMLMiddleWare(s.RequireLogin)...))
	s.RegisterRouteHandler("GET "+RouteMonologueDelete, ChainMiddleware(s.DeleteGetHandler(), s.HTMLMiddleWare(s.RequireLogin)...))
	s.RegisterRouteHandler("POST "+RouteMonologueDelete, ChainMiddleware(s.DeletePostHandler(), s.HTMLMiddleWare(s.RequireLogin)...))
	s.RegisterRouteHandler("GET "+RouteMonologueAttachment, ChainMiddleware(s.AttachmentHandler(), s.HTMLMiddleWare(s.RequireLogin)...))

	// PREFERENCES
	s.RegisterRouteHandler("POST "+RouteThemeToggle, ChainMiddleware(s.ThemeToggleHandler(), s.HTMLMiddleWare()...))

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.AssetHandler(), s.StaticMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteStaticJS, ChainMiddleware(s.AssetHandler(), s.StaticMiddleware()...))

	s.RegisterRouteHandler("/", ChainMiddleware(s.NotFoundHandler(), s.HTMLMiddleWare()...))
}

func logError(method, path, error string) {
	log.Warn().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+error+ResetColor)
}
