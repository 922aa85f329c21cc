package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"

	"go.uber.org/zap"
)

const TypeSnapshotPublished = "snapshot.published"

// SnapshotEvent announces a newly published cache snapshot. It carries
// counts and headline stats only, never patient records.
type SnapshotEvent struct {
	Type                     string         `json:"type"`
	LoadedAt                 time.Time      `json:"loaded_at"`
	Source                   string         `json:"source"`
	Counts                   map[string]int `json:"counts"`
	FailedCategories         []string       `json:"failed_categories,omitempty"`
	TotalPatients            int            `json:"total_patients"`
	HighRiskCount            int            `json:"high_risk_count"`
	AvgAssessmentsPerPatient float64        `json:"avg_assessments_per_patient"`
}

// NewSnapshotEvent summarizes snap.
func NewSnapshotEvent(snap *cache.Snapshot) SnapshotEvent {
	return SnapshotEvent{
		Type:                     TypeSnapshotPublished,
		LoadedAt:                 snap.LoadedAt,
		Source:                   snap.Source,
		Counts:                   snap.Counts(),
		FailedCategories:         snap.FailedCategories,
		TotalPatients:            snap.Stats.TotalPatients,
		HighRiskCount:            snap.Stats.HighRiskCount,
		AvgAssessmentsPerPatient: snap.Stats.AvgAssessmentsPerPatient,
	}
}

// Publisher delivers events to one transport.
type Publisher interface {
	Publish(ctx context.Context, ev SnapshotEvent) error
	Name() string
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Name() string { return "multi" }

func (m Multi) Publish(ctx context.Context, ev SnapshotEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Hook adapts a Publisher into a cache publish hook.
func Hook(p Publisher, logger *zap.Logger) cache.PublishHook {
	return func(ctx context.Context, snap *cache.Snapshot) error {
		ev := NewSnapshotEvent(snap)
		if err := p.Publish(ctx, ev); err != nil {
			return err
		}
		logger.Debug("Snapshot event published", zap.String("publisher", p.Name()))
		return nil
	}
}

func marshal(ev SnapshotEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}
