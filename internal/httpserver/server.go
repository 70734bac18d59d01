package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taskassign/taskboard/internal/audit"
	"taskassign/taskboard/internal/auth"
	"taskassign/taskboard/internal/config"
	"taskassign/taskboard/internal/tasks"
)

type AuthService interface {
	SignUp(ctx context.Context, username, password string) (auth.User, error)
	Login(ctx context.Context, username, password string) (auth.Session, error)
	ValidateToken(ctx context.Context, token string) (auth.Session, error)
	Logout(ctx context.Context, token string) error
}

type TaskService interface {
	ListForViewer(ctx context.Context, v tasks.Viewer) ([]tasks.Task, error)
	ListWorkers(ctx context.Context) ([]tasks.Worker, error)
	Assign(ctx context.Context, nt tasks.NewTask) (tasks.Task, error)
	Complete(ctx context.Context, taskID, workerID int64) error
	GiveFeedback(ctx context.Context, taskID int64, feedback string) error
}

type AuditLogger interface {
	Log(ctx context.Context, e audit.Event) error
}

type CookieCodec interface {
	Encode(token string, expiresAt time.Time) (string, error)
	Decode(value string) (string, error)
}

type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Auth      AuthService
	Tasks     TaskService
	Audit     AuditLogger
	Cookies   CookieCodec
	Readiness ReadinessChecker
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	StaticDir string

	CookieName   string
	CookieSecure bool
	// RateLimit is a limiter formatted rate such as "20-M" applied to the
	// login and signup posts. Empty disables limiting.
	RateLimit string
	// TrustProxyHeaders makes X-Forwarded-For and X-Real-IP the client
	// address for audit entries and rate limiting. Enable only behind a proxy
	// that overwrites them.
	TrustProxyHeaders bool
}

type Server struct {
	httpServer *http.Server
}

func New(cfg config.HTTPConfig, deps Deps) (*Server, error) {
	handler, err := NewHandler(deps)
	if err != nil {
		return nil, err
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}, nil
}

type handler struct {
	deps     Deps
	log      *slog.Logger
	views    *views
	validate *validator.Validate
}

// NewHandler builds the full middleware chain and route table.
func NewHandler(deps Deps) (http.Handler, error) {
	if deps.Auth == nil || deps.Tasks == nil || deps.Cookies == nil {
		return nil, fmt.Errorf("auth service, task service and cookie codec are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.CookieName == "" {
		deps.CookieName = "taskboard_session"
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	m, err := newMetrics(deps.Registry)
	if err != nil {
		return nil, err
	}
	limit, err := newRateLimit(deps.RateLimit, deps.TrustProxyHeaders)
	if err != nil {
		return nil, err
	}

	h := &handler{
		deps:     deps,
		log:      deps.Logger,
		views:    v,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	mux := http.NewServeMux()
	handle := func(pattern string, next http.Handler) {
		mux.Handle(pattern, m.instrument(pattern, next))
	}
	admin := requireRole(auth.RoleAdmin)
	worker := requireRole(auth.RoleWorker)

	handle("GET /{$}", http.HandlerFunc(h.loginPage))
	handle("GET /login", http.HandlerFunc(h.loginPage))
	handle("POST /login", limit(http.HandlerFunc(h.login)))
	handle("GET /signup", http.HandlerFunc(h.signupPage))
	handle("POST /signup", limit(http.HandlerFunc(h.signup)))
	handle("POST /logout", requireAuth(http.HandlerFunc(h.logout)))

	handle("GET /dashboard", requireAuth(http.HandlerFunc(h.dashboard)))
	handle("GET /assign-task", admin(http.HandlerFunc(h.assignTaskPage)))
	handle("POST /assign-task", admin(http.HandlerFunc(h.assignTask)))
	handle("POST /complete-task", worker(http.HandlerFunc(h.completeTask)))
	handle("POST /give-feedback", admin(http.HandlerFunc(h.giveFeedback)))

	handle("GET /healthz", http.HandlerFunc(h.healthz))
	handle("GET /readyz", http.HandlerFunc(h.readyz))
	mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	registerStaticHandler(mux, deps.StaticDir)

	return loggingMiddleware(deps.Logger, h.sessionMiddleware(mux)), nil
}

func registerStaticHandler(mux *http.ServeMux, dir string) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Clean(dir)))))
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.deps.Readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.Readiness.Ping(ctx); err != nil {
			h.log.WarnContext(r.Context(), "readiness check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
