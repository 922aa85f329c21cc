package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Router wraps gorilla/mux with the JSON error envelope and the standard
// middleware chain.
type Router struct {
	mux    *mux.Router
	api    *mux.Router
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger, requestTimeout time.Duration) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := mux.NewRouter()
	m.Use(accessLog(logger), recoverPanic(logger), withTimeout(requestTimeout))
	m.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	m.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return &Router{
		mux:    m,
		api:    m.PathPrefix("/api/v1").Subrouter(),
		logger: logger,
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.mux.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

func (r *Router) RegisterDashboardRoutes(h *DashboardHandler) {
	d := r.api.PathPrefix("/dashboard").Subrouter()
	d.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
	d.HandleFunc("/patients", h.Patients).Methods(http.MethodGet)
	d.HandleFunc("/patients/{id}/timeline", h.Timeline).Methods(http.MethodGet)
	d.HandleFunc("/assessments", h.Assessments).Methods(http.MethodGet)
	d.HandleFunc("/trends", h.Trends).Methods(http.MethodGet)
	d.HandleFunc("/risk", h.Risk).Methods(http.MethodGet)
	d.HandleFunc("/severity", h.Severity).Methods(http.MethodGet)
	d.HandleFunc("/behavioral", h.Behavioral).Methods(http.MethodGet)
	d.HandleFunc("/substances", h.Substances).Methods(http.MethodGet)
	d.HandleFunc("/motivation", h.Motivation).Methods(http.MethodGet)
	d.HandleFunc("/radar/{id}", h.Radar).Methods(http.MethodGet)
}

func (r *Router) RegisterCacheRoutes(h *CacheHandler) {
	c := r.api.PathPrefix("/cache").Subrouter()
	c.HandleFunc("", h.Clear).Methods(http.MethodDelete)
	c.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	c.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	c.HandleFunc("/events", h.Events).Methods(http.MethodGet)
	c.HandleFunc("/mirror", h.Mirror).Methods(http.MethodGet)
}

func (r *Router) RegisterChatRoutes(h *ChatHandler) {
	r.api.HandleFunc("/chat", h.StreamText).Methods(http.MethodPost)
	r.api.HandleFunc("/chat/structured", h.Structured).Methods(http.MethodPost)
	r.api.HandleFunc("/chat/ws", h.WebSocket).Methods(http.MethodGet)
}

func (r *Router) RegisterSearchRoutes(h *SearchHandler) {
	r.api.HandleFunc("/search", h.Search).Methods(http.MethodPost)
}

func (r *Router) RegisterExportRoutes(h *ExportHandler) {
	r.api.HandleFunc("/export/dashboard.xlsx", h.Dashboard).Methods(http.MethodGet)
}
