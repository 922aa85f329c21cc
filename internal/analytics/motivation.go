package analytics

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
)

type themeDef struct {
	name     string
	color    string
	keywords []string
	pattern  *regexp.Regexp
}

var motivationThemes = compileThemes([]themeDef{
	{name: "Recovery", color: "#3B82F6", keywords: []string{"recovery", "sobriety", "sober", "clean", "quit", "stop using", "abstinence", "detox", "rehab", "treatment"}},
	{name: "Family", color: "#10B981", keywords: []string{"family", "kids", "children", "son", "daughter", "spouse", "wife", "husband", "mother", "father", "parent", "relationship"}},
	{name: "Health", color: "#EF4444", keywords: []string{"health", "medical", "doctor", "hospital", "medication", "therapy", "wellness", "physical", "mental health"}},
	{name: "Employment", color: "#F59E0B", keywords: []string{"work", "job", "employment", "career", "income", "money", "financial", "support", "boss", "workplace"}},
	{name: "Education", color: "#8B5CF6", keywords: []string{"school", "education", "learn", "study", "training", "degree", "college", "university", "class"}},
	{name: "Financial", color: "#06B6D4", keywords: []string{"money", "financial", "budget", "debt", "bills", "housing", "rent", "support", "income", "stability"}},
	{name: "Social", color: "#84CC16", keywords: []string{"friends", "support", "community", "social", "people", "connection", "lonely", "isolation", "peer"}},
	{name: "Mental Health", color: "#EC4899", keywords: []string{"depression", "anxiety", "stress", "mood", "emotion", "feelings", "therapy", "counseling", "mental"}},
	{name: "Independence", color: "#F97316", keywords: []string{"independent", "freedom", "control", "own", "self", "autonomy", "responsibility", "myself"}},
	{name: "Spiritual", color: "#6366F1", keywords: []string{"faith", "god", "spiritual", "religion", "prayer", "higher power", "values", "belief", "meaning"}},
	{name: "Future", color: "#14B8A6", keywords: []string{"future", "goals", "dreams", "hope", "plan", "tomorrow", "better", "improve", "change"}},
	{name: "Support", color: "#A855F7", keywords: []string{"help", "support", "assistance", "guidance", "counselor", "therapist", "group", "meeting"}},
})

func compileThemes(defs []themeDef) []themeDef {
	for i := range defs {
		quoted := make([]string, len(defs[i].keywords))
		for j, k := range defs[i].keywords {
			quoted[j] = regexp.QuoteMeta(k)
		}
		defs[i].pattern = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return defs
}

// BPS score columns that imply a theme when rated 3 or higher.
var scoreThemes = map[string]string{
	"bps_family":       "Family",
	"bps_employment":   "Employment",
	"bps_peer_support": "Social",
	"bps_mh":           "Mental Health",
}

const (
	scoreThemeMin    = 3
	scoreThemeWeight = 2
	maxSamples       = 3
	wordCloudMin     = 12
	wordCloudMax     = 32
)

type Theme struct {
	Name    string   `json:"name"`
	Count   int      `json:"count"`
	Percent float64  `json:"percent"`
	Color   string   `json:"color"`
	Size    int      `json:"size"`
	Samples []string `json:"samples,omitempty"`
}

type MotivationReport struct {
	TotalPatients    int     `json:"total_patients"`
	PatientsWithData int     `json:"patients_with_data"`
	TotalMentions    int     `json:"total_mentions"`
	Themes           []Theme `json:"themes"`
}

// MotivationThemes matches theme keywords (whole words, case-insensitive)
// in the free-text motivation answers of BPS intakes and adds implicit
// mentions for high motivation scores.
func MotivationThemes(bps []domain.BPSAssessment) MotivationReport {
	counts := make(map[string]int)
	samples := make(map[string][]string)
	patients := make(map[string]bool)
	withData := make(map[string]bool)

	for _, b := range bps {
		patients[b.PatientID] = true
		var texts []string
		if t := b.Attr("ext_motivation"); t != "" {
			texts = append(texts, t)
		}
		if raw := b.Attr("int_motivation"); raw != "" {
			texts = append(texts, jsonStrings(raw)...)
		}
		for _, text := range texts {
			for _, th := range motivationThemes {
				n := len(th.pattern.FindAllStringIndex(strings.ToLower(text), -1))
				if n == 0 {
					continue
				}
				counts[th.name] += n
				withData[b.PatientID] = true
				if len(samples[th.name]) < maxSamples {
					samples[th.name] = append(samples[th.name], text)
				}
			}
		}
		for col, theme := range scoreThemes {
			v, err := strconv.ParseFloat(b.Attr(col), 64)
			if err == nil && v >= scoreThemeMin {
				counts[theme] += scoreThemeWeight
				withData[b.PatientID] = true
			}
		}
	}

	report := MotivationReport{TotalPatients: len(patients), PatientsWithData: len(withData)}
	maxCount := 0
	for _, n := range counts {
		report.TotalMentions += n
		if n > maxCount {
			maxCount = n
		}
	}
	for _, th := range motivationThemes {
		n := counts[th.name]
		if n == 0 {
			continue
		}
		report.Themes = append(report.Themes, Theme{
			Name:    th.name,
			Count:   n,
			Percent: percent(n, report.TotalMentions),
			Color:   th.color,
			Size:    WordCloudSize(n, maxCount),
			Samples: samples[th.name],
		})
	}
	sort.SliceStable(report.Themes, func(i, j int) bool { return report.Themes[i].Count > report.Themes[j].Count })
	return report
}

// WordCloudSize scales count linearly into [12, 32] relative to maxCount.
func WordCloudSize(count, maxCount int) int {
	if maxCount == 0 {
		return wordCloudMin
	}
	size := wordCloudMin + int(float64(wordCloudMax-wordCloudMin)*float64(count)/float64(maxCount))
	if size < wordCloudMin {
		return wordCloudMin
	}
	if size > wordCloudMax {
		return wordCloudMax
	}
	return size
}

// jsonStrings collects every string value in a JSON document. Input that
// is not JSON is returned as a single text.
func jsonStrings(raw string) []string {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return []string{raw}
	}
	var out []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case []any:
			for _, e := range t {
				walk(e)
			}
		case map[string]any:
			for _, e := range t {
				walk(e)
			}
		}
	}
	walk(doc)
	return out
}
