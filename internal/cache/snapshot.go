package cache

import (
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
)

// Snapshot is one complete load of every data category. A published
// Snapshot is never mutated; readers within the window share the pointer.
type Snapshot struct {
	Patients         []domain.Patient          `json:"patients"`
	Assessments      []domain.AssessmentScore  `json:"assessments"`
	SubstanceHistory []domain.SubstanceHistory `json:"substance_history"`
	PHPAssessments   []domain.PHPAssessment    `json:"php_assessments"`
	BPSAssessments   []domain.BPSAssessment    `json:"bps_assessments"`
	Stats            domain.DashboardStats     `json:"stats"`

	LoadedAt         time.Time `json:"loaded_at"`
	Source           string    `json:"source"`
	FailedCategories []string  `json:"failed_categories,omitempty"`
}

// Counts returns record counts per collection.
func (s *Snapshot) Counts() map[string]int {
	return map[string]int{
		"patients":          len(s.Patients),
		"assessments":       len(s.Assessments),
		"substance_history": len(s.SubstanceHistory),
		"php_assessments":   len(s.PHPAssessments),
		"bps_assessments":   len(s.BPSAssessments),
	}
}

// Patient returns a patient by identifier.
func (s *Snapshot) Patient(id string) (domain.Patient, bool) {
	for _, p := range s.Patients {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Patient{}, false
}
