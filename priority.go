package main

import (
	"log"
	"strings"
)

// PriorityRules are the static fallbacks of the priority chain, used when
// no learned decision exists.
type PriorityRules struct {
	HighKeywords         []string `yaml:"high_keywords"`
	LowKeywords          []string `yaml:"low_keywords"`
	HighDomains          []string `yaml:"high_domains"`
	SingleRecipientBoost bool     `yaml:"single_recipient_boost"`
	Default              string   `yaml:"default"`
}

// ComputePriority runs the priority chain: learned patterns first, then the
// AI task suggestion, then static keyword and domain rules, then the
// single-recipient boost, then the configured default.
func ComputePriority(rules PriorityRules, learner *Learner, rec Record, aiPriority string) string {
	fromDomain := emailDomain(rec.From)

	if learner != nil {
		if learned := learner.QueryPriority(fromDomain, rec.Subject); learned != "" {
			log.Printf("priority learned domain=%s subject=%q -> %s", fromDomain, rec.Subject, learned)
			return learned
		}
	}

	switch p := strings.ToLower(aiPriority); {
	case strings.HasPrefix(p, "high"), strings.HasPrefix(p, "urgent"):
		return "High"
	case strings.HasPrefix(p, "low"):
		return "Low"
	}

	text := strings.ToLower(rec.Subject + "\n" + rec.Body)
	for _, k := range rules.HighKeywords {
		if k != "" && strings.Contains(text, strings.ToLower(k)) {
			return "High"
		}
	}
	for _, k := range rules.LowKeywords {
		if k != "" && strings.Contains(text, strings.ToLower(k)) {
			return "Low"
		}
	}
	for _, d := range rules.HighDomains {
		if d != "" && strings.Contains(fromDomain, strings.ToLower(d)) {
			return "High"
		}
	}

	if rules.SingleRecipientBoost && countNonEmpty(rec.To) <= 1 {
		return "High"
	}

	if rules.Default != "" {
		return rules.Default
	}
	return "Medium"
}

func countNonEmpty(list []string) int {
	n := 0
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}
