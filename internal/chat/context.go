package chat

import (
	"encoding/json"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/analytics"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/vectorsearch"
)

// maxTimeline bounds how many of a patient's records go into the context.
const maxTimeline = 6

type dashboardContext struct {
	GeneratedAt time.Time              `json:"generated_at"`
	DataSource  string                 `json:"data_source,omitempty"`
	Stats       *domain.DashboardStats `json:"stats,omitempty"`
	Risk        []analytics.RiskBucket `json:"risk_distribution,omitempty"`
	Patient     *patientContext        `json:"patient,omitempty"`
	References  []referenceContext     `json:"references,omitempty"`
}

type patientContext struct {
	ID       string                   `json:"id"`
	Program  domain.Program           `json:"program"`
	Timeline []domain.AssessmentScore `json:"recent_assessments"`
	Radar    []analytics.RadarAxis    `json:"latest_by_instrument,omitempty"`
	Risk     analytics.RiskLevel      `json:"risk_level,omitempty"`
	Factors  []string                 `json:"risk_factors,omitempty"`
}

type referenceContext struct {
	Title    string  `json:"title"`
	Domain   string  `json:"domain"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// BuildContext renders the data the model may draw on as a JSON document.
// snap may be nil when no data could be loaded.
func BuildContext(now time.Time, snap *cache.Snapshot, patientID string, refs []vectorsearch.Hit) string {
	dc := dashboardContext{GeneratedAt: now.UTC()}
	if snap != nil {
		stats := snap.Stats
		dc.Stats = &stats
		dc.DataSource = snap.Source
		dc.Risk = analytics.StratifyRisk(snap.Patients, snap.Assessments).Buckets
		if patientID != "" {
			dc.Patient = buildPatientContext(snap, patientID)
		}
	}
	for _, h := range refs {
		dc.References = append(dc.References, referenceContext{
			Title:    h.Title,
			Domain:   h.Domain,
			Category: h.Category,
			Score:    h.Score,
			Text:     h.Text,
		})
	}
	raw, err := json.Marshal(dc)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func buildPatientContext(snap *cache.Snapshot, id string) *patientContext {
	p, ok := snap.Patient(id)
	if !ok {
		return nil
	}
	pc := &patientContext{ID: p.ID, Program: p.Program}
	timeline := analytics.PatientTimeline(snap.Assessments, id)
	if len(timeline) > maxTimeline {
		timeline = timeline[len(timeline)-maxTimeline:]
	}
	pc.Timeline = timeline
	if prof, ok := analytics.Radar(snap.Assessments, id); ok {
		pc.Radar = prof.Axes
	}
	if len(timeline) > 0 {
		pc.Risk, pc.Factors = analytics.ClassifyRisk(timeline[len(timeline)-1])
	}
	return pc
}

const systemPrompt = `You are a clinical analytics assistant for a behavioral-health program dashboard.
Answer from the dashboard context below; say so when the context does not contain the answer.
When a table, chart, timeline or trend summary helps, emit it as a tagged JSON segment:
[ASSESSMENT_TABLE]{"title":"...","columns":["..."],"rows":[["..."]]}[/ASSESSMENT_TABLE]
[CHART_DATA]{"type":"line|bar|pie|radar|area","title":"...","labels":["..."],"series":[{"name":"...","data":[0]}]}[/CHART_DATA]
[TIMELINE_DATA]{"events":[{"date":"YYYY-MM-DD","title":"...","description":"..."}]}[/TIMELINE_DATA]
[TREND_DATA]{"metric":"...","direction":"improving|worsening|stable","summary":"..."}[/TREND_DATA]

Dashboard context:
`

// withContext prepends the system message carrying the context document and
// drops any client-supplied system turns.
func withContext(contextJSON string, history []Message) []Message {
	out := make([]Message, 0, len(history)+1)
	out = append(out, Message{Role: RoleSystem, Content: systemPrompt + contextJSON})
	for _, m := range history {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}
