package analytics

import (
	"sort"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"

	"github.com/samber/lo"
)

type FlagStat struct {
	Flag    domain.PHPFlag      `json:"flag"`
	Label   string              `json:"label"`
	Group   domain.PHPFlagGroup `json:"group"`
	Days    int                 `json:"days"`
	Percent float64             `json:"percent"`
}

type EmotionMonth struct {
	Month  string                 `json:"month"`
	Days   int                    `json:"days"`
	Counts map[domain.PHPFlag]int `json:"counts"`
}

type BehavioralReport struct {
	Days         int                                `json:"days"`
	Patients     int                                `json:"patients"`
	Flags        []FlagStat                         `json:"flags"`
	Groups       map[domain.PHPFlagGroup][]FlagStat `json:"groups"`
	EmotionTrend []EmotionMonth                     `json:"emotion_trend"`
}

// BehavioralHealth counts, for every catalog flag, the check-in days on
// which it was set, as a share of all days passing the filter.
func BehavioralHealth(records []domain.PHPAssessment, f Filter) BehavioralReport {
	days := lo.Filter(records, func(a domain.PHPAssessment, _ int) bool {
		return f.Match(a.PatientID, a.Date)
	})
	report := BehavioralReport{
		Days: len(days),
		Patients: len(lo.Uniq(lo.Map(days, func(a domain.PHPAssessment, _ int) string {
			return a.PatientID
		}))),
		Groups: make(map[domain.PHPFlagGroup][]FlagStat),
	}

	for _, def := range domain.PHPCatalog {
		n := lo.CountBy(days, func(a domain.PHPAssessment) bool { return a.Flags[def.Flag] })
		st := FlagStat{
			Flag:    def.Flag,
			Label:   def.Label,
			Group:   def.Group,
			Days:    n,
			Percent: percent(n, len(days)),
		}
		report.Flags = append(report.Flags, st)
		report.Groups[def.Group] = append(report.Groups[def.Group], st)
	}

	emotions := lo.Filter(domain.PHPCatalog, func(d domain.PHPFlagDef, _ int) bool {
		return d.Group == domain.GroupEmotion
	})
	byMonth := lo.GroupBy(days, func(a domain.PHPAssessment) string { return monthKey(a.Date) })
	months := lo.Keys(byMonth)
	sort.Strings(months)
	for _, m := range months {
		em := EmotionMonth{Month: m, Days: len(byMonth[m]), Counts: make(map[domain.PHPFlag]int)}
		for _, def := range emotions {
			em.Counts[def.Flag] = lo.CountBy(byMonth[m], func(a domain.PHPAssessment) bool { return a.Flags[def.Flag] })
		}
		report.EmotionTrend = append(report.EmotionTrend, em)
	}
	return report
}
