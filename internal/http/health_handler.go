package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"

	"go.uber.org/zap"
)

const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"

	checkOK       = "ok"
	checkSlow     = "slow"
	checkError    = "error"
	checkFallback = "fallback"
	checkDisabled = "disabled"
)

// slowCheck marks a dependency as slow without failing it.
const slowCheck = 5 * time.Second

// Pinger is any dependency that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

type CheckResult struct {
	Status    string  `json:"status"`
	Message   string  `json:"message,omitempty"`
	LatencyMs float64 `json:"latency_ms,omitempty"`
}

type HealthReport struct {
	Status        string                 `json:"status"`
	Timestamp     time.Time              `json:"timestamp"`
	UptimeSeconds float64                `json:"uptime_seconds"`
	Checks        map[string]CheckResult `json:"checks"`
}

// HealthDeps lists what /health probes. A nil Redis means it is disabled.
// LLMConfigured and VectorConfigured false mean the local fallbacks answer.
type HealthDeps struct {
	Database         Pinger
	DatabaseName     string
	Redis            Pinger
	Cache            *cache.Cache
	LLMConfigured    bool
	VectorConfigured bool
}

type HealthHandler struct {
	deps    HealthDeps
	started time.Time
	logger  *zap.Logger
}

func NewHealthHandler(deps HealthDeps, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, started: time.Now(), logger: logger}
}

// Health reports healthy when every dependency answers, degraded when any
// of them is slow, failing or replaced by a fallback, and unhealthy when the
// data source is down and no snapshot is available. Unhealthy answers 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	rep := h.check(r.Context())
	status := http.StatusOK
	if rep.Status == HealthUnhealthy {
		status = http.StatusServiceUnavailable
		h.logger.Warn("Health check unhealthy", zap.Any("checks", rep.Checks))
	}
	writeJSON(w, status, rep)
}

func (h *HealthHandler) check(ctx context.Context) HealthReport {
	rep := HealthReport{
		Status:        HealthHealthy,
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: time.Since(h.started).Seconds(),
		Checks:        make(map[string]CheckResult, 5),
	}
	degrade := func() {
		if rep.Status == HealthHealthy {
			rep.Status = HealthDegraded
		}
	}

	db := ping(ctx, h.deps.Database)
	if h.deps.DatabaseName != "" && db.Message == "" {
		db.Message = h.deps.DatabaseName
	}
	rep.Checks["database"] = db

	redis := ping(ctx, h.deps.Redis)
	rep.Checks["redis"] = redis
	if redis.Status == checkError || redis.Status == checkSlow {
		degrade()
	}

	cacheCheck, loaded := h.cacheCheck()
	rep.Checks["cache"] = cacheCheck

	switch {
	case db.Status == checkError && !loaded:
		rep.Status = HealthUnhealthy
	case db.Status != checkOK || cacheCheck.Status == checkError:
		degrade()
	}

	rep.Checks["llm"] = configured(h.deps.LLMConfigured, "local summary fallback")
	rep.Checks["vector_search"] = configured(h.deps.VectorConfigured, "built-in reference corpus")
	if !h.deps.LLMConfigured || !h.deps.VectorConfigured {
		degrade()
	}
	return rep
}

func ping(ctx context.Context, p Pinger) CheckResult {
	if p == nil {
		return CheckResult{Status: checkDisabled}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*slowCheck)
	defer cancel()
	start := time.Now()
	err := p.Ping(ctx)
	elapsed := time.Since(start)
	res := CheckResult{LatencyMs: float64(elapsed.Microseconds()) / 1000}
	switch {
	case err != nil:
		res.Status = checkError
		res.Message = err.Error()
	case elapsed > slowCheck:
		res.Status = checkSlow
	default:
		res.Status = checkOK
	}
	return res
}

func (h *HealthHandler) cacheCheck() (CheckResult, bool) {
	if h.deps.Cache == nil {
		return CheckResult{Status: checkDisabled}, false
	}
	st := h.deps.Cache.Status()
	switch {
	case st.Loaded && len(st.FailedCategories) > 0:
		return CheckResult{Status: checkOK, Message: "partial snapshot"}, true
	case st.Loaded:
		return CheckResult{Status: checkOK}, true
	case st.LastError != "":
		return CheckResult{Status: checkError, Message: st.LastError}, false
	}
	return CheckResult{Status: checkOK, Message: "not loaded yet"}, false
}

func configured(ok bool, fallback string) CheckResult {
	if ok {
		return CheckResult{Status: checkOK}
	}
	return CheckResult{Status: checkFallback, Message: fallback}
}
