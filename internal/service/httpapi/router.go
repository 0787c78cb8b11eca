// Package httpapi реализует HTTP API items поверх chi.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/items/internal/domain"
	"github.com/vladislavdragonenkov/items/internal/metrics"
)

type options struct {
	logger  *log.Entry
	metrics *metrics.HTTPMetrics
	cors    *CORSOptions
}

// Option настраивает роутер.
type Option func(*options)

// WithLogger задаёт logger для access log и ошибок.
func WithLogger(logger *log.Entry) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics включает HTTP-метрики.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithCORS переопределяет настройки CORS.
func WithCORS(cors CORSOptions) Option {
	return func(o *options) {
		o.cors = &cors
	}
}

// NewRouter собирает роутер items API.
func NewRouter(repo domain.ItemRepository, opts ...Option) http.Handler {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.WithField("component", "http-api")
	}
	cors := DefaultCORSOptions()
	if o.cors != nil {
		cors = *o.cors
	}

	h := &handler{items: repo, logger: o.logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(o.logger))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cors))
	if o.metrics != nil {
		r.Use(o.metrics.Middleware)
	}

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed)

	r.Get("/", h.welcome)
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.createItem)
		r.Get("/", h.listItems)
		r.Get("/{id}", h.getItem)
		r.Put("/{id}", h.updateItem)
		r.Patch("/{id}", h.updateItem)
		r.Delete("/{id}", h.deleteItem)
	})

	return r
}
