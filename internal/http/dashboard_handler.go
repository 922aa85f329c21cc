package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/analytics"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DashboardHandler serves the presentation views. Every view is derived
// from the cached snapshot; none of them query the backend directly.
type DashboardHandler struct {
	cache  *cache.Cache
	logger *zap.Logger
}

func NewDashboardHandler(c *cache.Cache, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{cache: c, logger: logger}
}

// snapshot loads the cache or writes the error response.
func snapshot(w http.ResponseWriter, r *http.Request, c *cache.Cache, logger *zap.Logger) (*cache.Snapshot, bool) {
	snap, err := c.Get(r.Context())
	if err == nil {
		return snap, true
	}
	logger.Warn("Dashboard data unavailable",
		zap.Error(err),
		zap.String("request_id", RequestID(r.Context())),
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "loading dashboard data timed out")
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		writeError(w, http.StatusServiceUnavailable, "dashboard data is unavailable")
	}
	return nil, false
}

// respond writes v, downgraded to a warning when some categories failed to
// load.
func respond[T any](w http.ResponseWriter, snap *cache.Snapshot, v T) {
	if len(snap.FailedCategories) > 0 {
		writeJSON(w, http.StatusOK, Warn("partial data: "+strings.Join(snap.FailedCategories, ", ")+" unavailable", v))
		return
	}
	writeJSON(w, http.StatusOK, Ok(v))
}

type StatsResponse struct {
	Stats            domain.DashboardStats `json:"stats"`
	LoadedAt         time.Time             `json:"loaded_at"`
	Source           string                `json:"source"`
	FailedCategories []string              `json:"failed_categories,omitempty"`
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	respond(w, snap, StatsResponse{
		Stats:            snap.Stats,
		LoadedAt:         snap.LoadedAt,
		Source:           snap.Source,
		FailedCategories: snap.FailedCategories,
	})
}

// PatientSummary is one row of the patient list.
type PatientSummary struct {
	domain.Patient
	Assessments    int                 `json:"assessments"`
	LastAssessment *time.Time          `json:"last_assessment,omitempty"`
	RiskLevel      analytics.RiskLevel `json:"risk_level,omitempty"`
}

// Patients lists patients, optionally narrowed by program, status
// (active|discharged) and an identifier substring, then paginated.
func (h *DashboardHandler) Patients(w http.ResponseWriter, r *http.Request) {
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	q := r.URL.Query()
	program := q.Get("program")
	status := strings.ToLower(q.Get("status"))
	search := strings.ToLower(q.Get("search"))
	if status != "" && status != "active" && status != "discharged" {
		writeError(w, http.StatusBadRequest, "status must be active or discharged")
		return
	}

	perPatient := lo.GroupBy(snap.Assessments, func(s domain.AssessmentScore) string { return s.PatientID })
	latest := domain.LatestByPatient(snap.Assessments)

	rows := make([]PatientSummary, 0, len(snap.Patients))
	for _, p := range snap.Patients {
		if program != "" && domain.ParseProgram(program) != p.Program {
			continue
		}
		if status == "active" && p.Discharged || status == "discharged" && !p.Discharged {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.ID), search) {
			continue
		}
		row := PatientSummary{Patient: p, Assessments: len(perPatient[p.ID])}
		if s, ok := latest[p.ID]; ok {
			d := s.Date
			row.LastAssessment = &d
			row.RiskLevel, _ = analytics.ClassifyRisk(s)
		}
		rows = append(rows, row)
	}
	respond(w, snap, analytics.Paginate(rows, parseInt(q.Get("page"), 1), parseInt(q.Get("size"), 50)))
}

func (h *DashboardHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	timeline := analytics.PatientTimeline(snap.Assessments, id)
	if _, known := snap.Patient(id); !known && len(timeline) == 0 {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}
	respond(w, snap, timeline)
}

// Assessments returns merged assessment records matching the query filter.
func (h *DashboardHandler) Assessments(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	q := r.URL.Query()
	rows := analytics.FilterScores(snap.Assessments, f)
	respond(w, snap, analytics.Paginate(rows, parseInt(q.Get("page"), 1), parseInt(q.Get("size"), 100)))
}

func (h *DashboardHandler) Trends(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	respond(w, snap, analytics.MonthlyTrends(analytics.FilterScores(snap.Assessments, f)))
}

func (h *DashboardHandler) Risk(w http.ResponseWriter, r *http.Request) {
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	report := analytics.StratifyRisk(snap.Patients, snap.Assessments)
	if level := r.URL.Query().Get("level"); level != "" {
		report.Patients = lo.Filter(report.Patients, func(p analytics.PatientRisk, _ int) bool {
			return string(p.Level) == strings.ToLower(level)
		})
	}
	respond(w, snap, report)
}

func (h *DashboardHandler) Severity(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	respond(w, snap, analytics.SeverityDistribution(analytics.FilterScores(snap.Assessments, f)))
}

func (h *DashboardHandler) Behavioral(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	respond(w, snap, analytics.BehavioralHealth(snap.PHPAssessments, f))
}

func (h *DashboardHandler) Substances(w http.ResponseWriter, r *http.Request) {
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	history := snap.SubstanceHistory
	if id := r.URL.Query().Get("patient_id"); id != "" {
		history = lo.Filter(history, func(s domain.SubstanceHistory, _ int) bool { return s.PatientID == id })
	}
	respond(w, snap, analytics.SubstancePatterns(history))
}

func (h *DashboardHandler) Motivation(w http.ResponseWriter, r *http.Request) {
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	respond(w, snap, analytics.MotivationThemes(snap.BPSAssessments))
}

func (h *DashboardHandler) Radar(w http.ResponseWriter, r *http.Request) {
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	profile, found := analytics.Radar(snap.Assessments, mux.Vars(r)["id"])
	if !found {
		writeError(w, http.StatusNotFound, "no assessments for patient")
		return
	}
	respond(w, snap, profile)
}
