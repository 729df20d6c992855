package server

import (
	"fmt"
	"html/template"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-monologue/apiclient"
	"github.com/jrsteele09/go-monologue/internal/config"
	"github.com/jrsteele09/go-monologue/localstore"
	"github.com/jrsteele09/go-monologue/monologues"
	"github.com/jrsteele09/go-monologue/sessions"
	"github.com/rs/zerolog/log"
)

// ServiceFactory builds the monologue service for a session-bound API client.
type ServiceFactory func(api *apiclient.Client) monologues.Service

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	api      *apiclient.Client
	sessions *sessions.Provider
	services ServiceFactory
	intn     func(int) int
	pages    map[string]*template.Template
	assets   map[string]asset
}

type Option func(*Server)

// WithServiceFactory replaces the REST backed monologue service, e.g. with a fake.
func WithServiceFactory(f ServiceFactory) Option {
	return func(s *Server) {
		s.services = f
	}
}

// WithRandom overrides the index picker used by the random page.
func WithRandom(intn func(int) int) Option {
	return func(s *Server) {
		s.intn = intn
	}
}

func New(config config.Config, api *apiclient.Client, store localstore.Repo, opts ...Option) (*Server, error) {
	if api == nil {
		return nil, fmt.Errorf("[Server New] api client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[Server New] browser storage is required")
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		api:      api,
		sessions: sessions.NewProvider(store),
		services: func(api *apiclient.Client) monologues.Service {
			return monologues.NewClient(api)
		},
		intn: rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}
	s.pages = pages

	assets, err := loadAssets()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to load static assets: %w", err)
	}
	s.assets = assets

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) isDev() bool {
	return strings.EqualFold(s.env, "DEV")
}

func (s *Server) logRoutes() {
	if !s.isDev() {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
