package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"

	"go.uber.org/zap"
)

// ErrAllCategoriesFailed is returned when no category query succeeded.
var ErrAllCategoriesFailed = errors.New("every data category failed to load")

const (
	categoryPatients  = "patients"
	categorySubstance = "substance_history"
	categoryPHP       = "php"
	categoryBPS       = "bps"
)

// categoryCount is patients + one per instrument + substance + PHP + BPS.
var categoryCount = 4 + len(domain.Instruments)

type loadResult struct {
	mu       sync.Mutex
	patients []domain.Patient
	readings []domain.InstrumentReading
	subs     []domain.SubstanceHistory
	php      []domain.PHPAssessment
	bps      []domain.BPSAssessment
	failed   []string
	lastErr  error
}

func (r *loadResult) fail(category string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, category)
	r.lastErr = err
}

// fetch runs every category query concurrently and joins them. A failing
// category degrades to an empty collection.
func (c *Cache) fetch(ctx context.Context) (*Snapshot, error) {
	res := &loadResult{}
	var wg sync.WaitGroup

	run := func(category string, q func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := q(); err != nil {
				c.logger.Warn("Data category failed to load",
					zap.String("category", category),
					zap.Error(err),
				)
				res.fail(category, err)
			}
		}()
	}

	run(categoryPatients, func() error {
		v, err := c.source.ListPatients(ctx)
		if err == nil {
			res.mu.Lock()
			res.patients = v
			res.mu.Unlock()
		}
		return err
	})
	for _, in := range domain.Instruments {
		in := in
		run(string(in), func() error {
			v, err := c.source.ListReadings(ctx, in)
			if err == nil {
				res.mu.Lock()
				res.readings = append(res.readings, v...)
				res.mu.Unlock()
			}
			return err
		})
	}
	run(categorySubstance, func() error {
		v, err := c.source.ListSubstanceHistory(ctx)
		if err == nil {
			res.mu.Lock()
			res.subs = v
			res.mu.Unlock()
		}
		return err
	})
	run(categoryPHP, func() error {
		v, err := c.source.ListPHPAssessments(ctx)
		if err == nil {
			res.mu.Lock()
			res.php = v
			res.mu.Unlock()
		}
		return err
	})
	run(categoryBPS, func() error {
		v, err := c.source.ListBPSAssessments(ctx)
		if err == nil {
			res.mu.Lock()
			res.bps = v
			res.mu.Unlock()
		}
		return err
	})

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load interrupted: %w", err)
	}
	if len(res.failed) == categoryCount {
		return nil, fmt.Errorf("%w: %v", ErrAllCategoriesFailed, res.lastErr)
	}

	sort.Strings(res.failed)
	return assemble(res, c.clock.Now(), c.source.Name()), nil
}

// assemble merges readings, completes the patient list with identifiers seen
// only in other categories and infers missing programs.
func assemble(res *loadResult, now time.Time, source string) *Snapshot {
	scores := domain.MergeReadings(res.readings)

	hasPHP := make(map[string]bool)
	for _, a := range res.php {
		hasPHP[a.PatientID] = true
	}
	hasBPS := make(map[string]bool)
	for _, b := range res.bps {
		hasBPS[b.PatientID] = true
	}

	patients := make([]domain.Patient, 0, len(res.patients))
	seen := make(map[string]bool)
	for _, p := range res.patients {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		patients = append(patients, p)
	}
	var extra []string
	addSeen := func(id string) {
		if !seen[id] {
			seen[id] = true
			extra = append(extra, id)
		}
	}
	for _, s := range scores {
		addSeen(s.PatientID)
	}
	for _, a := range res.php {
		addSeen(a.PatientID)
	}
	for _, b := range res.bps {
		addSeen(b.PatientID)
	}
	sort.Strings(extra)
	for _, id := range extra {
		patients = append(patients, domain.Patient{ID: id, Program: domain.ProgramUnknown})
	}
	for i := range patients {
		patients[i].Program = domain.InferProgram(patients[i], hasPHP[patients[i].ID], hasBPS[patients[i].ID])
	}

	return &Snapshot{
		Patients:         patients,
		Assessments:      scores,
		SubstanceHistory: res.subs,
		PHPAssessments:   res.php,
		BPSAssessments:   res.bps,
		Stats:            domain.ComputeStats(patients, scores, res.subs, res.php, res.bps),
		LoadedAt:         now,
		Source:           source,
		FailedCategories: res.failed,
	}
}
