// Package http serves the EcoFinance web UI: the dashboard, the ledger
// pages, the recommendation endpoint and the auth forms.
package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"ecofinance/internal/auth"
	"ecofinance/internal/core"
	"ecofinance/internal/dashboard"
	"ecofinance/internal/ledger"
	applog "ecofinance/internal/log"
	"ecofinance/internal/middleware/ratelimit"
	"ecofinance/internal/middleware/security"
	"ecofinance/internal/middleware/trace"
	"ecofinance/internal/services"
	appweb "ecofinance/web"
)

// requestTimeout bounds the data loading of one page.
const requestTimeout = 7 * time.Second

// Recommender produces Markdown advice for a user's period.
type Recommender interface {
	Recommend(ctx context.Context, userID int64, p core.Period) (string, error)
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Store        ledger.Store
	Transactions *services.TransactionService
	Dashboard    *services.DashboardLoader
	Goals        *services.GoalService
	Recommender  Recommender
	Markdown     dashboard.MarkdownRenderer
	Sessions     *auth.Manager
	Accounts     *auth.Service
	Logger       *applog.Logger
}

type Options struct {
	RateLimitPerMinute int
	AlertHideAfter     time.Duration
	// Now is the clock used for "today"; time.Now when nil.
	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template

	store        ledger.Store
	transactions *services.TransactionService
	dashboard    *services.DashboardLoader
	goals        *services.GoalService
	recommender  Recommender
	markdown     dashboard.MarkdownRenderer
	sessions     *auth.Manager
	accounts     *auth.Service

	logger         *applog.Logger
	limiter        *ratelimit.Limiter
	detector       *security.Detector
	tracer         *trace.Middleware
	alertHideAfter time.Duration
	now            func() time.Time
	startedAt      time.Time
	shutdownOnce   sync.Once
}

// NewServer parses the embedded templates and registers every route. A
// template parse failure is logged; pages then answer 500 and /readyz
// reports not ready.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		store:          deps.Store,
		transactions:   deps.Transactions,
		dashboard:      deps.Dashboard,
		goals:          deps.Goals,
		recommender:    deps.Recommender,
		markdown:       deps.Markdown,
		sessions:       deps.Sessions,
		accounts:       deps.Accounts,
		logger:         logger.WithComponent(applog.ComponentHTTP),
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:       security.NewDetector(),
		alertHideAfter: opts.AlertHideAfter,
		now:            now,
		startedAt:      now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", applog.FieldError, err.Error())
	} else {
		s.templates = t
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	app := http.NewServeMux()
	app.HandleFunc("GET /{$}", s.handleDashboard)
	app.HandleFunc("GET /generar-recomendaciones/{$}", s.handleGenerateRecommendations)
	app.HandleFunc("GET /ui/recomendaciones", s.handleRecommendationPanel)
	app.HandleFunc("GET /charts/categorias.svg", s.handleCategoryChartSVG)
	app.HandleFunc("GET /charts/mensual.svg", s.handleMonthlyChartSVG)
	app.HandleFunc("GET /transacciones/{$}", s.handleTransactions)
	app.HandleFunc("/transacciones/nueva/{$}", s.handleNewTransaction)
	app.HandleFunc("/transacciones/{id}/eliminar/{$}", s.handleDeleteTransaction)
	app.HandleFunc("GET /objetivos/{$}", s.handleGoals)
	app.HandleFunc("/objetivos/nuevo/{$}", s.handleNewGoal)
	app.HandleFunc("/presupuesto/{$}", s.handleBudget)

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err.Error())
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("/login/{$}", s.handleLogin)
	mux.HandleFunc("/registro/{$}", s.handleRegister)
	mux.HandleFunc("/logout/{$}", s.handleLogout)
	mux.Handle("/", s.sessions.RequireUser(s.store, "/login/")(app))

	var h http.Handler = mux
	h = s.withRateLimit(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	h = s.detector.Middleware(h)
	return h
}

// withRateLimit throttles writes and recommendation requests; plain page
// views are not limited.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ClientIP, s.onRateLimit)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && !isRecommendationPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func isRecommendationPath(p string) bool {
	return strings.HasPrefix(p, "/generar-recomendaciones/") || strings.HasPrefix(p, "/ui/recomendaciones")
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	if r.URL.Path == "/generar-recomendaciones/" {
		writeJSON(w, http.StatusTooManyRequests, dashboard.RecommendationResponse{Error: "demasiadas solicitudes, intenta de nuevo en unos segundos"})
		return
	}
	ErrorResponse(http.StatusTooManyRequests, "Demasiadas solicitudes. Intenta de nuevo en unos segundos.").Write(w)
}

// Shutdown stops the limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// page carries what the layout needs on every page.
type page struct {
	Title  string
	Active string
	User   *core.User
	Error  string
	Notice string
}

func (s *Server) newPage(r *http.Request, title, active string) page {
	p := page{Title: title, Active: active}
	if u, ok := auth.UserFromContext(r.Context()); ok {
		p.User = &u
	}
	return p
}

// render executes name into a buffer so a failing template never leaves a
// half written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name,
			applog.FieldError, err.Error())
		http.Error(w, "error interno", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// currentUser returns the session user set by auth.RequireUser.
func currentUser(w http.ResponseWriter, r *http.Request) (core.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "sesión requerida", http.StatusUnauthorized)
	}
	return u, ok
}

func isHTMX(r *http.Request) bool { return r.Header.Get("HX-Request") == "true" }

// selectedPeriod reads mes_anio, defaulting to the current month.
func (s *Server) selectedPeriod(r *http.Request) (selected, latest core.Period) {
	latest = core.PeriodOf(s.now())
	return dashboard.PeriodFromQuery(r.URL.Query(), latest), latest
}

var templateFuncs = template.FuncMap{
	"clp": core.FormatCLP,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006")
	},
	"isoDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.DateOnly)
	},
	"pct": func(v float64) string {
		return strings.Replace(strconv.FormatFloat(v, 'f', 1, 64), ".", ",", 1)
	},
	"barWidth": func(v float64) float64 {
		switch {
		case v < 0:
			return 0
		case v > 100:
			return 100
		}
		return v
	},
	"periodicities": core.Periodicities,
}
