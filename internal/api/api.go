// Package api serves the JSON:API endpoints for every registered resource type.
//
// Each handler runs an ordered pipeline of validation steps followed by store
// calls; the first failing step short-circuits the request with its error.
// Handlers hold no per-request state.
package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-cms/inkwell/internal/metrics"
	"github.com/inkwell-cms/inkwell/internal/resource"
	"github.com/inkwell-cms/inkwell/internal/store"
	"github.com/inkwell-cms/inkwell/internal/web/middleware"
	"github.com/inkwell-cms/inkwell/internal/web/response"
	"github.com/inkwell-cms/inkwell/internal/web/router"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured
const DefaultMaxBodyBytes = 1 << 20

// Collections hands out collection handles by resource type
type Collections interface {
	Collection(ctx context.Context, name string) (store.Collection, error)
}

// Options configures the API
type Options struct {
	Registry *resource.Registry
	Store    Collections
	Logger   *zap.Logger
	Metrics  *metrics.Metrics

	// Prefix is the mount point of the resource endpoints, e.g. "/api"
	Prefix string
	// TrustProxy honours X-Forwarded-Proto and X-Forwarded-Host when building links
	TrustProxy     bool
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	CORSOrigins    []string
}

// API is the complete HTTP handler: middleware, resource endpoints,
// health and metrics.
type API struct {
	registry     *resource.Registry
	store        Collections
	logger       *zap.Logger
	prefix       string
	trustProxy   bool
	maxBodyBytes int64

	router *router.Router
}

// New builds the API and its routes
func New(opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	a := &API{
		registry:     opts.Registry,
		store:        opts.Store,
		logger:       logger,
		prefix:       normalizePrefix(opts.Prefix),
		trustProxy:   opts.TrustProxy,
		maxBodyBytes: maxBody,
		router:       router.NewRouter(),
	}

	a.router.Use(
		middleware.RequestID(),
		middleware.AccessLog(middleware.AccessLogConfig{
			Logger:    logger,
			Metrics:   opts.Metrics,
			SkipPaths: []string{"/healthz", "/metrics"},
		}),
		middleware.Recovery(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(middleware.DefaultCORSConfig(opts.CORSOrigins...)),
		middleware.Compression(middleware.DefaultCompressionConfig()),
		middleware.Timeout(opts.RequestTimeout),
	)

	a.router.Get("/healthz", a.health).Describe("Liveness probe")
	if opts.Metrics != nil {
		a.router.Handle(http.MethodGet, "/metrics", opts.Metrics.Handler()).Describe("Prometheus metrics")
	}
	a.router.Group(a.prefix, a.routes)
	return a
}

// routes registers the resource endpoints on the prefixed sub-router
func (a *API) routes(r *router.Router) {
	r.Get("/", a.index).Named("index").Describe("Map of resource types to collection links")

	r.Get("/{type}", a.list).Named("list").Describe("List all records of a type")
	r.Post("/{type}", a.create).Named("create").Describe("Create a record")

	r.Get("/{type}/{id}", a.show).Named("show").Describe("Fetch a record")
	r.Patch("/{type}/{id}", a.update).Named("update").Describe("Update a record")
	r.Delete("/{type}/{id}", a.remove).Named("delete").Describe("Delete a record")

	r.Get("/{type}/{id}/relationships/{key}", a.relationship).Named("relationship").Describe("Resolve a relationship")

	r.Get("/{type}/{id}/{key}", a.relationship).Named("related").Describe("Resolve a related link")
	r.Post("/{type}/{id}/{key}", a.notImplemented).Describe("Not implemented")
	r.Patch("/{type}/{id}/{key}", a.notImplemented).Describe("Not implemented")
}

// ServeHTTP implements http.Handler
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Routes returns the route table
func (a *API) Routes() []router.RouteInfo {
	return a.router.Routes()
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	_ = response.RenderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func normalizePrefix(prefix string) string {
	if prefix == "" || prefix == "/" {
		return "/api"
	}
	if prefix[0] != '/' {
		prefix = "/" + prefix
	}
	for len(prefix) > 1 && prefix[len(prefix)-1] == '/' {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}
