// Package httpapi exposes the engine over HTTP with a chi router.
package httpapi

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/metrics/export/prometheus"
	authmw "github.com/MrEthical07/eduAuth/middleware"
	"github.com/MrEthical07/eduAuth/response"
)

// Options wires the router. Prometheus, OTelReader and UploadDir are
// optional; their routes are only mounted when set.
type Options struct {
	Engine         *eduAuth.Engine
	Logger         *zap.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration

	UploadDir    string
	UploadPrefix string

	Prometheus *prometheus.Exporter
	OTelReader *sdkmetric.ManualReader
}

// NewRouter builds the full route tree.
func NewRouter(opts Options) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handler{engine: opts.Engine, logger: logger}
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(requestLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(timeout))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(clientContext)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Write(w, response.Message("ok"))
	})

	if opts.Prometheus != nil {
		router.Method(http.MethodGet, "/metrics", opts.Prometheus.Handler())
	}
	if opts.OTelReader != nil {
		router.Get("/metrics/otel", otelHandler(opts.OTelReader, logger))
	}
	if opts.UploadDir != "" {
		prefix := "/" + strings.Trim(opts.UploadPrefix, "/")
		if prefix == "/" {
			prefix = "/uploads"
		}
		router.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(opts.UploadDir))))
	}

	router.Route("/api", func(r chi.Router) {
		h.mount(r, eduAuth.RoleAdmin)
		h.mount(r, eduAuth.RoleUser)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Write(w, response.Fail("endpoint not found", http.StatusNotFound))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Write(w, response.Fail("method not allowed", http.StatusMethodNotAllowed))
	})

	return router
}

func (h *handler) mount(r chi.Router, role eduAuth.Role) {
	session := authmw.RequireSession(h.engine, role)

	r.Route("/"+string(role), func(r chi.Router) {
		r.Post("/login", h.login(role))
		r.Post("/verify-otp", h.verifyOTP(role))
		r.Post("/register", h.register(role))
		r.Post("/forget-password", h.forgetPassword(role))
		r.With(authmw.RequireTemp(h.engine, role)).Post("/reset-password", h.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(session)
			r.Post("/change-password", h.changePassword)
			r.Get("/details", h.details)

			if role != eduAuth.RoleAdmin {
				return
			}
			r.Put("/profile", h.updateProfile)
			r.Patch("/users/{id}/status", h.setUserStatus)
			r.Delete("/users/{id}", h.deleteUser)
		})
	})
}

// requestLogger logs one line per request once the handler has returned.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", chimw.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// clientContext copies caller details onto the request context for throttles
// and audit events.
func clientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := eduAuth.WithClientIP(r.Context(), ip)
		ctx = eduAuth.WithUserAgent(ctx, r.UserAgent())
		if id := chimw.GetReqID(ctx); id != "" {
			ctx = eduAuth.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
