// Package http serves the tracker views and entry forms as a JSON API.
package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/middleware/ratelimit"
	"tracker/internal/middleware/security"
	"tracker/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Tracker is the service the handlers drive.
type Tracker interface {
	Habits(ctx context.Context) (services.HabitsView, error)
	Expenses(ctx context.Context) (services.ExpensesView, error)
	Gym(ctx context.Context, exercise string) (services.GymView, error)
	Exercises(ctx context.Context) ([]string, []services.Warning, error)
	Overview(ctx context.Context) (services.Overview, error)
	RecordHabit(ctx context.Context, e core.HabitEntry) (services.HabitsView, error)
	RecordExpense(ctx context.Context, e core.ExpenseEntry) (services.ExpensesView, error)
	RecordGymSet(ctx context.Context, s core.GymSet) (services.GymView, error)
	Ready(ctx context.Context) error
}

type Server struct {
	http.Server
	tracker Tracker
	limiter *ratelimit.Limiter
	logger  *log.Logger
}

type Options struct {
	// WritesPerMinute caps POST requests per client; 0 uses the default.
	WritesPerMinute int
	Logger          *log.Logger
}

func NewServer(addr string, tracker Tracker, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		tracker: tracker,
		limiter: ratelimit.NewLimiter(ratelimit.Config{Requests: opts.WritesPerMinute}),
		logger:  logger.WithComponent(log.ComponentHTTP),
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(log.RequestIDMiddleware())
	r.Use(log.Middleware(s.logger))
	r.Use(log.AccessLog())
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", s.handleOverview)
		r.Get("/habits", s.handleHabits)
		r.Get("/expenses", s.handleExpenses)
		r.Get("/gym", s.handleGym)
		r.Get("/exercises", s.handleExercises)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(clientIP, s.handleRateLimited))
			r.Post("/habits", s.handleCreateHabit)
			r.Post("/expenses", s.handleCreateExpense)
			r.Post("/gym", s.handleCreateGymSet)
		})
	})
	return r
}

// Shutdown stops the limiter and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
