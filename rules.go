package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RulesFile is the static classification configuration, loaded once per
// triage run. Categories, hints and the tag-resolution tables all live in
// one yaml document so the whole rule set can be reviewed in one place.
type RulesFile struct {
	Categories []CategoryRule           `yaml:"categories"`
	Hints      map[string]CategoryHints `yaml:"hints"`

	TagRegexMap   []TagRegexRule    `yaml:"tag_regex_map"`
	TagSegmentMap map[string]string `yaml:"tag_segment_map"`
	TagExactMap   map[string]string `yaml:"tag_exact_map"`

	IgnoreTags   []string `yaml:"ignore_tags"`
	PriorityList []string `yaml:"priority_list"`

	// MatchMode is one of "regex_first", "segment_first", "exact_only".
	// All three resolution strategies always run and their candidates are
	// unioned; the mode only controls which strategy's log trace comes
	// first. Kept for compatibility with existing rule files.
	MatchMode string `yaml:"match_mode"`
}

// CategoryRule is one row of the category map: the static signals that make
// a category scorable (word-boundary keywords, sender/recipient domains,
// an optional regex such as a ticket prefix).
type CategoryRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
	Domains  []string `yaml:"domains"`
	Regex    string   `yaml:"regex"`
}

// CategoryHints are free-form boost/negative substrings per category.
type CategoryHints struct {
	Boost    []string `yaml:"boost"`
	Negative []string `yaml:"negative"`
}

// TagRegexRule maps tags matching a pattern to a category.
type TagRegexRule struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
}

// LoadRules reads and validates the rules yaml. Structural problems
// (unparseable yaml, a category row without a name) fail fast; per-rule
// regex validity is checked later at match time so one bad pattern cannot
// take down the rest of the rule set.
func LoadRules(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var rf RulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}
	if err := rf.validate(); err != nil {
		return nil, err
	}
	rf.normalize()
	return &rf, nil
}

func (rf *RulesFile) validate() error {
	for i, c := range rf.Categories {
		if strings.TrimSpace(c.Category) == "" {
			return fmt.Errorf("rules: category row %d has no category name", i+1)
		}
	}
	for i, r := range rf.TagRegexMap {
		if strings.TrimSpace(r.Category) == "" {
			return fmt.Errorf("rules: tag_regex_map entry %d has no category", i+1)
		}
		if strings.TrimSpace(r.Pattern) == "" {
			return fmt.Errorf("rules: tag_regex_map entry %d has no pattern", i+1)
		}
	}
	switch rf.MatchMode {
	case "", "regex_first", "segment_first", "exact_only":
	default:
		return fmt.Errorf("rules: unknown match_mode %q", rf.MatchMode)
	}
	return nil
}

// normalize lower-cases the matching tables the way the original sheet
// loader did, so rule authors don't have to care about case.
func (rf *RulesFile) normalize() {
	for i, c := range rf.Categories {
		rf.Categories[i].Category = strings.TrimSpace(c.Category)
		rf.Categories[i].Keywords = lowerList(c.Keywords)
		rf.Categories[i].Domains = lowerList(c.Domains)
		rf.Categories[i].Regex = strings.TrimSpace(c.Regex)
	}
	seg := make(map[string]string, len(rf.TagSegmentMap))
	for k, v := range rf.TagSegmentMap {
		seg[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	rf.TagSegmentMap = seg
	if rf.MatchMode == "" {
		rf.MatchMode = "regex_first"
	}
}

func lowerList(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ignoreSet returns the ignore tags as a lookup set.
func (rf *RulesFile) ignoreSet() map[string]bool {
	set := make(map[string]bool, len(rf.IgnoreTags))
	for _, t := range rf.IgnoreTags {
		set[t] = true
	}
	return set
}

func (rf *RulesFile) categoryRule(category string) *CategoryRule {
	for i := range rf.Categories {
		if rf.Categories[i].Category == category {
			return &rf.Categories[i]
		}
	}
	return nil
}
