package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates structured blocks sent alongside chat text.
type Kind string

const (
	KindAssessmentTable Kind = "assessment_table"
	KindChartData       Kind = "chart_data"
	KindTimelineData    Kind = "timeline_data"
	KindTrendData       Kind = "trend_data"
)

var ErrInvalidEnvelope = errors.New("invalid chat block")

// Block is one structured payload of a chat answer. Clients render by Kind
// and may rely on Payload having passed Validate.
type Block struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// NewBlock marshals payload into a validated Block.
func NewBlock(kind Kind, payload any) (Block, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Block{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	b := Block{Kind: kind, Payload: raw}
	if err := b.Validate(); err != nil {
		return Block{}, err
	}
	return b, nil
}

// AssessmentTable is a titled grid; every row has one cell per column.
type AssessmentTable struct {
	Title   string   `json:"title,omitempty"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ChartData is a chart-ready series set.
type ChartData struct {
	Type   string        `json:"type"`
	Title  string        `json:"title,omitempty"`
	Labels []string      `json:"labels,omitempty"`
	Series []ChartSeries `json:"series"`
}

type ChartSeries struct {
	Name string    `json:"name"`
	Data []float64 `json:"data"`
}

var chartTypes = map[string]bool{"line": true, "bar": true, "pie": true, "radar": true, "area": true, "scatter": true}

// TimelineData is an ordered list of dated events.
type TimelineData struct {
	Title  string          `json:"title,omitempty"`
	Events []TimelineEvent `json:"events"`
}

type TimelineEvent struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// TrendData summarizes the direction of one metric.
type TrendData struct {
	Metric    string       `json:"metric"`
	Direction string       `json:"direction"`
	Summary   string       `json:"summary,omitempty"`
	Points    []TrendPoint `json:"points,omitempty"`
}

type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

var trendDirections = map[string]bool{"improving": true, "worsening": true, "stable": true}

// Validate checks the payload against the schema of its kind. Unknown
// fields are rejected so that drift between producer and renderer surfaces
// here rather than in the client.
func (b Block) Validate() error {
	switch b.Kind {
	case KindAssessmentTable:
		var t AssessmentTable
		if err := decodeStrict(b.Payload, &t); err != nil {
			return err
		}
		if len(t.Columns) == 0 {
			return invalid(b.Kind, "columns are required")
		}
		for i, row := range t.Rows {
			if len(row) != len(t.Columns) {
				return invalid(b.Kind, fmt.Sprintf("row %d has %d cells, want %d", i, len(row), len(t.Columns)))
			}
		}
	case KindChartData:
		var c ChartData
		if err := decodeStrict(b.Payload, &c); err != nil {
			return err
		}
		if !chartTypes[c.Type] {
			return invalid(b.Kind, fmt.Sprintf("unsupported chart type %q", c.Type))
		}
		if len(c.Series) == 0 {
			return invalid(b.Kind, "at least one series is required")
		}
		for _, s := range c.Series {
			if len(c.Labels) > 0 && len(s.Data) != len(c.Labels) {
				return invalid(b.Kind, fmt.Sprintf("series %q has %d points for %d labels", s.Name, len(s.Data), len(c.Labels)))
			}
		}
	case KindTimelineData:
		var t TimelineData
		if err := decodeStrict(b.Payload, &t); err != nil {
			return err
		}
		if len(t.Events) == 0 {
			return invalid(b.Kind, "events are required")
		}
		for i, e := range t.Events {
			if e.Date == "" || e.Title == "" {
				return invalid(b.Kind, fmt.Sprintf("event %d needs date and title", i))
			}
		}
	case KindTrendData:
		var t TrendData
		if err := decodeStrict(b.Payload, &t); err != nil {
			return err
		}
		if t.Metric == "" {
			return invalid(b.Kind, "metric is required")
		}
		if !trendDirections[t.Direction] {
			return invalid(b.Kind, fmt.Sprintf("unsupported direction %q", t.Direction))
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEnvelope, b.Kind)
	}
	return nil
}

func decodeStrict(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return nil
}

func invalid(kind Kind, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidEnvelope, kind, msg)
}
