package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/onlyoffice-confluence/callback"
	"github.com/jrsteele09/onlyoffice-confluence/confluence"
	"github.com/jrsteele09/onlyoffice-confluence/editor"
	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/config"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
	"github.com/jrsteele09/onlyoffice-confluence/token"
)

// Deps are the collaborators the server cannot build from config alone.
type Deps struct {
	Tenants    tenants.Repo
	Hosts      confluence.Provider
	Forge      *hostauth.ForgeVerifier // nil disables the Forge routes
	Downloader callback.Downloader
	Now        func() time.Time
}

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	tenants tenants.Repo
	hosts   confluence.Provider
	connect *hostauth.ConnectAuthenticator
	forge   *hostauth.ForgeVerifier

	codec    *token.Codec
	issuer   *editor.Issuer
	opener   *editor.Opener
	callback *callback.Handler
	pages    *template.Template
}

func New(config config.Config, deps Deps) (*Server, error) {
	if deps.Tenants == nil || deps.Hosts == nil || deps.Downloader == nil {
		return nil, fmt.Errorf("[Server New] tenants, hosts and downloader are required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	pages, err := ParseTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	baseURL := config.GetBaseURL()
	codec := token.NewCodec(now)
	builder := editor.NewBuilder(codec, baseURL, config.GetDownloadTokenTTL(), config.GetCallbackTokenTTL(), now)

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		tenants:  deps.Tenants,
		hosts:    deps.Hosts,
		connect:  hostauth.NewConnectAuthenticator(deps.Tenants, baseURL, now),
		forge:    deps.Forge,
		codec:    codec,
		issuer:   editor.NewIssuer(codec, deps.Hosts, baseURL, config.GetSessionTTL(), now),
		opener:   editor.NewOpener(deps.Hosts, builder, codec),
		callback: callback.NewHandler(deps.Tenants, deps.Hosts, deps.Downloader, codec),
		pages:    pages,
	}

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

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
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
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
