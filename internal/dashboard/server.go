package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/rickgao/coincap-data/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

type tableBlock struct {
	Class string
	View  TableView
}

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"table": func(class string, v TableView) tableBlock {
		return tableBlock{Class: class, View: v}
	},
}

// Checker reports the state of a dependency as "up" or "down: <reason>".
type Checker interface {
	Ping(ctx context.Context) string
}

// Server renders the dashboard pages.
type Server struct {
	cfg    config.DashboardConfig
	loader *Loader
	logger *slog.Logger
	pages  map[string]*template.Template
	checks map[string]Checker
	router *mux.Router
}

// NewServer creates a Server over loader.
func NewServer(cfg config.DashboardConfig, loader *Loader, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		loader: loader,
		logger: logger,
		pages:  make(map[string]*template.Template),
		checks: make(map[string]Checker),
	}

	for _, page := range []string{"assets.html", "exchanges.html", "error.html"} {
		tmpl, err := template.New(page).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, err
		}
		s.pages[page] = tmpl
	}

	s.router = s.routes()
	return s, nil
}

// AddCheck reports c under name in /health. A check that is not "up"
// degrades the status without failing it.
func (s *Server) AddCheck(name string, c Checker) {
	s.checks[name] = c
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter().StrictSlash(true)

	routes := []struct {
		name    string
		pattern string
		handler http.HandlerFunc
	}{
		{"assets", "/", s.handleAssets},
		{"exchanges", "/exchanges", s.handleExchanges},
		{"api_asset", "/api/assets/{name}", s.handleAPIAsset},
		{"api_exchange", "/api/exchanges/{name}", s.handleAPIExchange},
		{"api_chart", "/api/exchanges/chart/{kind}", s.handleAPIChart},
		{"health", "/health", s.handleHealth},
	}
	for _, rt := range routes {
		r.Methods(http.MethodGet).
			Path(rt.pattern).
			Name(rt.name).
			Handler(s.logRequests(rt.handler, rt.name))
	}
	return r
}

// logRequests logs every request with its route name and duration.
func (s *Server) logRequests(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inner.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"uri", r.RequestURI,
			"route", name,
			"duration", time.Since(start),
		)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting dashboard server", "addr", s.cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("dashboard server stopped")
	return <-errCh
}

type assetPage struct {
	AssetView
	Page        string
	AssetRows   TableView
	MarketRows  TableView
	MarketPage  int
	MarketPages int
}

type exchangePage struct {
	ExchangeView
	Page string
	Rows TableView
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	data, ok := s.assetData(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = s.cfg.DefaultAsset
	}
	view := BuildAssetView(data, name)

	pageNum, _ := strconv.Atoi(r.URL.Query().Get("page"))
	markets, pageNum, pages := paginate(view.Markets, pageNum, s.cfg.MarketsPageSize)

	s.render(w, http.StatusOK, "assets.html", assetPage{
		AssetView:   view,
		Page:        "assets",
		AssetRows:   renderAssets(view.Asset),
		MarketRows:  renderPlain(markets),
		MarketPage:  pageNum,
		MarketPages: pages,
	})
}

func (s *Server) handleExchanges(w http.ResponseWriter, r *http.Request) {
	data, ok := s.exchangeData(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = s.cfg.DefaultExchange
	}
	view := BuildExchangeView(data, name, ChartKind(r.URL.Query().Get("chart")))

	s.render(w, http.StatusOK, "exchanges.html", exchangePage{
		ExchangeView: view,
		Page:         "exchanges",
		Rows:         renderExchanges(view.Exchange),
	})
}

func (s *Server) handleAPIAsset(w http.ResponseWriter, r *http.Request) {
	data, ok := s.assetData(w, r)
	if !ok {
		return
	}

	view := BuildAssetView(data, mux.Vars(r)["name"])
	if view.Asset.Len() == 0 {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "asset not found"})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"date":    view.Date,
		"asset":   view.Asset.Records(),
		"markets": view.Markets.Records(),
		"summary": view.Summary,
	})
}

func (s *Server) handleAPIExchange(w http.ResponseWriter, r *http.Request) {
	data, ok := s.exchangeData(w, r)
	if !ok {
		return
	}

	view := BuildExchangeView(data, mux.Vars(r)["name"], "")
	if view.Exchange.Len() == 0 {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "exchange not found"})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"date":     view.Date,
		"exchange": view.Exchange.Records(),
	})
}

func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	kind := ChartKind(mux.Vars(r)["kind"])
	if !kind.Valid() {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "chart must be pie or bar"})
		return
	}

	data, ok := s.exchangeData(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, BuildChart(data.Exchanges, kind))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.loader.Status()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	checks := make(map[string]string, len(s.checks))
	checksUp := true
	for name, c := range s.checks {
		checks[name] = c.Ping(ctx)
		if checks[name] != "up" {
			checksUp = false
		}
	}

	status := http.StatusOK
	health := "healthy"
	switch {
	case len(st.Errors) > 0 && len(st.Loaded) == 0:
		status = http.StatusServiceUnavailable
		health = "unhealthy"
	case len(st.Errors) > 0 || !checksUp:
		health = "degraded"
	case len(st.Loaded) == 0:
		health = "idle"
	}

	resp := map[string]any{
		"status": health,
		"loader": st,
	}
	if len(checks) > 0 {
		resp["checks"] = checks
	}
	s.writeJSON(w, status, resp)
}

// assetData loads the assets page data or writes a 503.
func (s *Server) assetData(w http.ResponseWriter, r *http.Request) (*AssetData, bool) {
	data, err := s.loader.Assets(r.Context())
	if err != nil {
		s.unavailable(w, r)
		return nil, false
	}
	return data, true
}

// exchangeData loads the exchanges page data or writes a 503.
func (s *Server) exchangeData(w http.ResponseWriter, r *http.Request) (*ExchangeData, bool) {
	data, err := s.loader.Exchanges(r.Context())
	if err != nil {
		s.unavailable(w, r)
		return nil, false
	}
	return data, true
}

func (s *Server) unavailable(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "data unavailable"})
		return
	}
	s.render(w, http.StatusServiceUnavailable, "error.html", map[string]string{
		"Page":    "",
		"Message": "Data for today is not available yet.",
	})
}

func isAPI(r *http.Request) bool {
	route := mux.CurrentRoute(r)
	if route == nil {
		return false
	}
	name := route.GetName()
	return name == "api_asset" || name == "api_exchange" || name == "api_chart"
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Error("failed to render page", "page", page, "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}
