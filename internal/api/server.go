package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"roomfinder/internal/availability"
)

// Endpoint names, used as metric labels and log fields.
const (
	EndpointRoomAvailability = "room-availability"
	EndpointRoomsInBuilding  = "rooms-in-building"
	EndpointBuildings        = "buildings"
)

// Options configures the HTTP surface.
type Options struct {
	Address           string
	ReadTimeout       time.Duration
	APIKeys           []string
	AllowedOrigins    []string
	RequestsPerSecond int
}

// HTTPServer exposes the availability engine over HTTP GET.
type HTTPServer struct {
	engine  *availability.Engine
	logger  *zerolog.Logger
	apiKeys map[string]struct{}
	server  *http.Server
}

func NewHTTPServer(engine *availability.Engine, opts Options, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		engine:  engine,
		logger:  logger,
		apiKeys: make(map[string]struct{}, len(opts.APIKeys)),
	}
	for _, k := range opts.APIKeys {
		if k != "" {
			s.apiKeys[k] = struct{}{}
		}
	}

	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	s.server = &http.Server{
		Addr:              opts.Address,
		Handler:           s.routes(opts),
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
	}
	return s
}

// Handler returns the routed handler with all middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) routes(opts Options) http.Handler {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderAPIKey, HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         300,
	}))
	if opts.RequestsPerSecond > 0 {
		r.Use(httprate.Limit(opts.RequestsPerSecond, time.Second,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			}),
		))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.With(countRequests(EndpointRoomAvailability)).Get("/room-availability", s.handleRoomAvailability)
		r.With(countRequests(EndpointRoomsInBuilding)).Get("/rooms-in-building", s.handleRoomsInBuilding)
		r.With(countRequests(EndpointBuildings)).Get("/buildings", s.handleBuildings)
	})

	return r
}

// Start serves until ctx is done, then shuts down within 3 seconds.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("api server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
