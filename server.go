package storywall

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/storywall/storywall/metrics"
)

// ServerConfig holds the parameters of a Server.
type ServerConfig struct {
	Addr string
	// StoriesPerPage is the listing page size used when the client doesn't
	// ask for one.
	StoriesPerPage int
	// MaxStoriesPerPage caps the limit a client may ask for.
	MaxStoriesPerPage int
}

// Server ties the router, the store and the metrics collector together and
// owns the HTTP lifecycle.
type Server struct {
	Logger          zerolog.Logger
	config          *ServerConfig
	store           Store
	router          *httprouter.Router
	metrics         *metrics.Collector
	done            chan struct{}
	idleConnsClosed chan struct{}
}

func NewServer(config *ServerConfig, logger zerolog.Logger, store Store, collector *metrics.Collector) *Server {
	return &Server{
		Logger:          logger,
		config:          config,
		store:           store,
		router:          httprouter.New(),
		metrics:         collector,
		done:            make(chan struct{}),
		idleConnsClosed: make(chan struct{}),
	}
}

// Prepare connects the store and declares the routes. It must be called
// before Start.
func (s *Server) Prepare() error {
	err := s.store.Connect()
	if err != nil {
		return err
	}

	withMiddlewares(func(wrap middleware) {
		s.router.GET("/stories", wrap(s.HandleListStories()))
		s.router.POST("/submit", wrap(s.HandleSubmitAction()))
		s.router.POST("/vote", wrap(s.HandleVoteAction()))
		s.router.GET("/stats", wrap(s.HandleStats()))
		s.router.GET("/healthz", wrap(s.HandleHealth()))
	}, s.recordMetricsMiddleware())

	s.router.Handler(http.MethodGet, "/metrics", s.metrics.Handler())

	return nil
}

// Start serves until Stop is called, then shuts down gracefully.
func (s *Server) Start() error {
	httpServer := http.Server{Addr: s.config.Addr, Handler: s}

	go func() {
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-s.done

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return err
	}
	close(s.idleConnsClosed)

	return nil
}

func (s *Server) Stop() {
	close(s.done)
	<-s.idleConnsClosed
}

func (s *Server) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(res, req)
}
