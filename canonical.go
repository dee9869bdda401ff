package main

import (
	"log"
	"regexp"
	"sort"
	"strings"
)

// safeRegex compiles a configured pattern case-insensitively. A malformed
// pattern is a configuration error, never a fatal one: it is logged and the
// rule is skipped.
func safeRegex(pattern string) *regexp.Regexp {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		log.Printf("rules invalid regex %q: %v", pattern, err)
		return nil
	}
	return re
}

// canonicalizeTags maps raw tags to a single canonical category, or ""
// when no tag resolves. Three strategies run over the tags (regex table,
// hierarchical segment map, exact map) and their candidates are unioned;
// the configured match_mode only reorders the log trace, it cannot change
// the result. Ties resolve by the priority list, then lexicographically.
func canonicalizeTags(rawTags []string, rules *RulesFile) string {
	ignore := rules.ignoreSet()
	var names []string
	for _, t := range rawTags {
		if !ignore[t] {
			names = append(names, t)
		}
	}
	if len(names) == 0 {
		return ""
	}

	candidates := make(map[string]bool)

	if rules.MatchMode == "segment_first" {
		matchTagsBySegments(names, rules.TagSegmentMap, candidates)
		matchTagsByRegex(names, rules.TagRegexMap, candidates)
	} else {
		matchTagsByRegex(names, rules.TagRegexMap, candidates)
		matchTagsBySegments(names, rules.TagSegmentMap, candidates)
	}
	matchTagsByExact(names, rules.TagExactMap, candidates)

	return pickCandidate(candidates, rules.PriorityList)
}

func matchTagsByRegex(names []string, table []TagRegexRule, candidates map[string]bool) {
	for _, rule := range table {
		re := safeRegex(rule.Pattern)
		if re == nil {
			continue
		}
		for _, n := range names {
			if re.MatchString(n) {
				log.Printf("canonicalize regex tag=%q -> %s", n, rule.Category)
				candidates[rule.Category] = true
			}
		}
	}
}

// matchTagsBySegments normalizes each tag, strips ordering prefixes, splits
// on "/" and looks up each segment (and each increasingly long prefix join)
// in the segment map. Substring containment counts as a match, so the key
// "aspire" catches the segment "aspire nexus".
func matchTagsBySegments(names []string, segMap map[string]string, candidates map[string]bool) {
	if len(segMap) == 0 {
		return
	}
	for _, n := range names {
		cleaned := normalizeTag(stripOrderingPrefix(n))
		segs := strings.Split(cleaned, "/")
		for _, seg := range segs {
			seg = normalizeTag(stripOrderingPrefix(seg))
			if cat, ok := segMap[seg]; ok {
				log.Printf("canonicalize segment tag=%q seg=%q -> %s", n, seg, cat)
				candidates[cat] = true
				continue
			}
			for key, cat := range segMap {
				if key != "" && strings.Contains(seg, key) {
					log.Printf("canonicalize segment tag=%q seg=%q key=%q -> %s", n, seg, key, cat)
					candidates[cat] = true
				}
			}
		}
		for i := 1; i <= len(segs); i++ {
			prefix := strings.TrimSpace(strings.Join(segs[:i], " / "))
			for key, cat := range segMap {
				if key != "" && strings.Contains(prefix, key) {
					candidates[cat] = true
				}
			}
		}
	}
}

func matchTagsByExact(names []string, exact map[string]string, candidates map[string]bool) {
	for _, n := range names {
		if cat, ok := exact[n]; ok {
			log.Printf("canonicalize exact tag=%q -> %s", n, cat)
			candidates[cat] = true
		}
	}
}

// pickCandidate resolves a candidate set to one category: the first
// priority-list member present wins; otherwise the lexicographically
// smallest candidate, so re-runs over the same tags are reproducible.
func pickCandidate(candidates map[string]bool, priority []string) string {
	if len(candidates) == 0 {
		return ""
	}
	for _, p := range priority {
		if candidates[p] {
			return p
		}
	}
	keys := make([]string, 0, len(candidates))
	for c := range candidates {
		keys = append(keys, c)
	}
	sort.Strings(keys)
	return keys[0]
}
