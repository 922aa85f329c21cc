package vectorsearch

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

type passage struct {
	id      string
	section string
	text    string
}

// demoCorpus holds short clinical reference summaries used when no index is
// reachable.
var demoCorpus = []passage{
	{"mdd-criteria", "Major Depressive Disorder", "Major depressive disorder criteria: at least five symptoms present during the same two-week period, including depressed mood or loss of interest or pleasure (anhedonia). Symptoms include sleep disturbance, fatigue, feelings of worthlessness, poor concentration and recurrent thoughts of death."},
	{"mdd-course", "Major Depressive Disorder", "Onset of depressive episodes may occur at any age. The course is variable; some individuals experience remission for years while others have few symptom-free periods. Chronicity raises the risk of underlying personality, anxiety and substance use disorders."},
	{"gad-criteria", "Generalized Anxiety Disorder", "Generalized anxiety disorder criteria: excessive anxiety and worry occurring more days than not for at least six months, difficult to control, with restlessness, fatigue, irritability, muscle tension or sleep disturbance."},
	{"panic-features", "Panic Disorder", "Panic disorder is marked by recurrent unexpected panic attacks, an abrupt surge of intense fear with palpitations, sweating, trembling and fear of dying, followed by persistent worry about further attacks."},
	{"ptsd-criteria", "Posttraumatic Stress Disorder", "Posttraumatic stress disorder criteria require exposure to actual or threatened death, serious injury or sexual violence, followed by intrusion symptoms, avoidance of trauma reminders, negative alterations in cognition and mood, and marked arousal lasting more than one month."},
	{"ptsd-risk", "Posttraumatic Stress Disorder", "Risk factors for PTSD include prior trauma, childhood adversity, lower social support and greater trauma severity. Functional consequences include high levels of social, occupational and physical disability."},
	{"aud-criteria", "Alcohol Use Disorder", "Alcohol use disorder criteria: a problematic pattern of alcohol use leading to clinically significant impairment, with at least two of: craving, tolerance, withdrawal, unsuccessful efforts to cut down and continued use despite social or interpersonal problems."},
	{"oud-criteria", "Opioid Use Disorder", "Opioid use disorder involves compulsive opioid use, tolerance and withdrawal. Prevalence is elevated among individuals with co-occurring depressive and posttraumatic stress disorders. Overdose and suicide risk are substantially increased."},
	{"stimulant-features", "Stimulant Use Disorder", "Stimulant use disorder covers amphetamine-type substances and cocaine. Intoxication may produce euphoria, hypervigilance and paranoia; withdrawal brings dysphoric mood, fatigue and vivid unpleasant dreams."},
	{"bpd-features", "Borderline Personality Disorder", "Borderline personality disorder is a pervasive pattern of instability in interpersonal relationships, self-image and affects, with marked impulsivity. Emotion dysregulation and recurrent suicidal behavior are common."},
	{"bipolar-differential", "Bipolar I Disorder", "Differential diagnosis of bipolar I disorder: manic episodes must be distinguished from substance intoxication and from major depressive disorder with irritable mood. A single manic episode is sufficient for diagnosis."},
	{"insomnia-criteria", "Insomnia Disorder", "Insomnia disorder criteria: dissatisfaction with sleep quantity or quality, difficulty initiating or maintaining sleep at least three nights per week for at least three months, causing distress or impairment."},
}

// DemoSearcher ranks the built-in corpus by word overlap with the query.
type DemoSearcher struct{}

func NewDemoSearcher() *DemoSearcher { return &DemoSearcher{} }

func (DemoSearcher) Search(ctx context.Context, q Query) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := tokenize(q.Text)
	if len(terms) == 0 {
		return nil, nil
	}
	topK := q.TopK
	if topK <= 0 {
		topK = 5
	}

	var hits []Hit
	for _, p := range demoCorpus {
		meta := map[string]any{"section": p.section, "source": "demo"}
		if len(q.Filter) > 0 && !matchesFilter(meta, q.Filter) {
			continue
		}
		words := make(map[string]bool)
		for _, w := range tokenize(p.section + " " + p.text) {
			words[w] = true
		}
		matched := 0
		for _, t := range terms {
			if words[t] {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, Hit{
			ID:             p.id,
			Score:          float64(matched) / float64(len(terms)),
			Text:           p.text,
			Source:         "demo",
			Metadata:       meta,
			Classification: Classify(p.section + ". " + p.text),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "for": true, "how": true, "in": true,
	"is": true, "of": true, "or": true, "the": true, "to": true, "what": true, "with": true,
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	seen := make(map[string]bool)
	for _, f := range fields {
		if len(f) < 2 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
