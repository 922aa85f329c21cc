package vectorsearch

import "strings"

const (
	FallbackDomain   = "General Clinical Reference"
	FallbackCategory = "Reference"
)

// Classification is a best-effort label for an untagged corpus passage.
type Classification struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
	Title    string `json:"title"`
}

type keywordRule struct {
	label    string
	keywords []string
}

// Ordered: earlier rules win ties.
var domainRules = []keywordRule{
	{"Depressive Disorders", []string{"depressive", "depression", "anhedonia", "dysthymi", "depressed mood"}},
	{"Anxiety Disorders", []string{"anxiety", "panic", "phobia", "worry", "agoraphobia"}},
	{"Trauma- and Stressor-Related Disorders", []string{"posttraumatic", "ptsd", "trauma", "stressor", "adjustment disorder"}},
	{"Substance-Related and Addictive Disorders", []string{"substance", "alcohol", "opioid", "cannabis", "stimulant", "withdrawal", "intoxication", "gambling"}},
	{"Bipolar and Related Disorders", []string{"bipolar", "manic", "mania", "hypomani", "cyclothymic"}},
	{"Schizophrenia Spectrum and Other Psychotic Disorders", []string{"schizophreni", "psychotic", "delusion", "hallucination", "catatonia"}},
	{"Obsessive-Compulsive and Related Disorders", []string{"obsessi", "compulsi", "hoarding", "trichotillomania"}},
	{"Personality Disorders", []string{"personality disorder", "borderline", "antisocial", "narcissistic"}},
	{"Neurodevelopmental Disorders", []string{"attention-deficit", "adhd", "autism", "intellectual disability"}},
	{"Feeding and Eating Disorders", []string{"anorexia", "bulimia", "binge-eating", "binge eating", "avoidant/restrictive"}},
	{"Sleep-Wake Disorders", []string{"insomnia", "hypersomnolence", "narcolepsy", "sleep"}},
}

var categoryRules = []keywordRule{
	{"Diagnostic Criteria", []string{"criteria", "criterion", "must be present", "at least", "diagnostic features"}},
	{"Differential Diagnosis", []string{"differential", "distinguished from", "better explained"}},
	{"Prevalence", []string{"prevalence", "incidence", "percent of"}},
	{"Development and Course", []string{"onset", "course", "remission"}},
	{"Risk and Prognostic Factors", []string{"risk factor", "prognostic", "temperamental", "genetic"}},
	{"Functional Consequences", []string{"functional consequences", "impairment", "disability"}},
	{"Suicide Risk", []string{"suicid"}},
}

// Classify infers domain, category and title from passage text. Within each
// table the rule with the most keyword hits wins, earlier rules on a tie.
// Passages matching nothing get FallbackDomain and FallbackCategory.
func Classify(text string) Classification {
	lower := strings.ToLower(text)
	c := Classification{
		Domain:   bestMatch(lower, domainRules, FallbackDomain),
		Category: bestMatch(lower, categoryRules, FallbackCategory),
	}
	if c.Domain == FallbackDomain && c.Category == FallbackCategory {
		c.Title = FallbackDomain
	} else {
		c.Title = c.Domain + ": " + c.Category
	}
	return c
}

func bestMatch(lower string, rules []keywordRule, fallback string) string {
	best, bestHits := fallback, 0
	for _, r := range rules {
		hits := 0
		for _, k := range r.keywords {
			hits += strings.Count(lower, k)
		}
		if hits > bestHits {
			best, bestHits = r.label, hits
		}
	}
	return best
}
