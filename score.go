package main

import (
	"regexp"
	"sort"
	"strings"
)

// ScoringWeights are the additive weights of the candidate scorer. Defaults
// mirror the tuning the rule set was built around.
type ScoringWeights struct {
	LabelPriority   float64 `yaml:"label_priority"`
	LabelMapped     float64 `yaml:"label_mapped"`
	Regex           float64 `yaml:"regex"`
	Domain          float64 `yaml:"domain"`
	KeywordSubject  float64 `yaml:"keyword_subject"`
	KeywordBody     float64 `yaml:"keyword_body"`
	BoostSubject    float64 `yaml:"boost_subject"`
	BoostBody       float64 `yaml:"boost_body"`
	NegativeSubject float64 `yaml:"negative_subject"`
	NegativeBody    float64 `yaml:"negative_body"`
	HistoryPerHit   float64 `yaml:"history_per_hit"`
	MinScore        float64 `yaml:"min_score"`
}

func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		LabelPriority:   120,
		LabelMapped:     90,
		Regex:           60,
		Domain:          35,
		KeywordSubject:  18,
		KeywordBody:     8,
		BoostSubject:    22,
		BoostBody:       12,
		NegativeSubject: -35,
		NegativeBody:    -20,
		HistoryPerHit:   8,
		MinScore:        2,
	}
}

// ClassifyRecord scores every candidate category against the record's
// signals and returns the best one, or Uncategorized when nothing clears
// the minimum score. history may be nil (store unreachable); the scorer
// then simply runs with a zero history term. Each candidate is scored
// independently: one category's negative hints never touch another's total.
func ClassifyRecord(rec Record, rules *RulesFile, weights ScoringWeights, history *AssociationStore) Decision {
	subject := strings.ToLower(rec.Subject)
	body := strings.ToLower(rec.Body)
	fromDomain := emailDomain(rec.From)
	toDomains := emailDomains(rec.To)

	candidates := candidateCategories(rules, history)
	tagCategory := canonicalizeTags(rec.Tags, rules)
	tagIsPriority := false
	for _, p := range rules.PriorityList {
		if p == tagCategory {
			tagIsPriority = true
			break
		}
	}

	best := Decision{Category: Uncategorized, Score: -1}
	for _, category := range candidates {
		score, signals := scoreCandidate(category, rules, weights, subject, body,
			fromDomain, toDomains, tagCategory, tagIsPriority, history)
		// Strict > keeps the first candidate on ties; candidates are
		// iterated in sorted order, so ties resolve lexicographically.
		if score > best.Score {
			best = Decision{Category: category, Score: score, Signals: signals}
		}
	}

	if best.Score < weights.MinScore || best.Score <= 0 {
		return Decision{Category: Uncategorized, Score: best.Score, Signals: best.Signals}
	}
	return best
}

// candidateCategories is the union of the category map, the hint map and
// every outcome ever learned into project history, sorted so scoring ties
// break deterministically.
func candidateCategories(rules *RulesFile, history *AssociationStore) []string {
	set := make(map[string]bool)
	for _, c := range rules.Categories {
		set[c.Category] = true
	}
	for cat := range rules.Hints {
		set[cat] = true
	}
	if history != nil {
		for _, o := range history.Outcomes() {
			set[o] = true
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func scoreCandidate(category string, rules *RulesFile, w ScoringWeights,
	subject, body, fromDomain string, toDomains []string,
	tagCategory string, tagIsPriority bool, history *AssociationStore) (float64, []Signal) {

	var score float64
	var signals []Signal
	add := func(kind string, weight float64, matched string) {
		score += weight
		signals = append(signals, Signal{Kind: kind, Weight: weight, Matched: matched})
	}

	if tagCategory != "" && tagCategory == category {
		if tagIsPriority {
			add("label_priority", w.LabelPriority, tagCategory)
		} else {
			add("label_mapped", w.LabelMapped, tagCategory)
		}
	}

	if rule := rules.categoryRule(category); rule != nil {
		if re := safeRegex(rule.Regex); re != nil {
			if re.MatchString(subject) || re.MatchString(body) {
				add("regex", w.Regex, rule.Regex)
			}
		}
		for _, d := range rule.Domains {
			if d == "" {
				continue
			}
			if d == fromDomain || containsString(toDomains, d) {
				add("domain", w.Domain, d)
				break
			}
		}
		for _, k := range rule.Keywords {
			if k == "" {
				continue
			}
			re := wordBoundaryRegex(k)
			if re.MatchString(subject) {
				add("keyword_subject", w.KeywordSubject, k)
			}
			if re.MatchString(body) {
				add("keyword_body", w.KeywordBody, k)
			}
		}
	}

	if hint, ok := rules.Hints[category]; ok {
		for _, b := range hint.Boost {
			if b == "" {
				continue
			}
			if strings.Contains(subject, strings.ToLower(b)) {
				add("boost_subject", w.BoostSubject, b)
			}
			if strings.Contains(body, strings.ToLower(b)) {
				add("boost_body", w.BoostBody, b)
			}
		}
		for _, n := range hint.Negative {
			if n == "" {
				continue
			}
			if strings.Contains(subject, strings.ToLower(n)) {
				add("negative_subject", w.NegativeSubject, n)
			}
			if strings.Contains(body, strings.ToLower(n)) {
				add("negative_body", w.NegativeBody, n)
			}
		}
	}

	if history != nil && fromDomain != "" {
		if hits := history.ScoreContribution(fromDomain, category); hits > 0 {
			add("history", float64(hits)*w.HistoryPerHit, fromDomain)
		}
	}

	return score, signals
}

func wordBoundaryRegex(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
