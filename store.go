package main

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// AssociationEntry is one frequency counter: how often a dimension value
// (sender domain or subject keyword) was observed together with an outcome
// (category, Yes/No, priority level). Counters only ever grow.
type AssociationEntry struct {
	DimensionKey string
	Outcome      string
	Count        uint
	LastUpdated  time.Time
}

// AssociationStore is a keyed frequency counter, instantiated three times:
// project-history, task-learning and priority-learning. It is safe for
// concurrent use; increments are atomic read-modify-writes under the store
// mutex, reads may observe slightly stale counts.
type AssociationStore struct {
	Name string

	mu      sync.Mutex
	entries map[string]*AssociationEntry
	now     func() time.Time
}

func NewAssociationStore(name string) *AssociationStore {
	return &AssociationStore{
		Name:    name,
		entries: make(map[string]*AssociationEntry),
		now:     time.Now,
	}
}

func assocKey(dimensionKey, outcome string) string {
	return strings.ToLower(strings.TrimSpace(dimensionKey)) + "::" + strings.TrimSpace(outcome)
}

// Increment bumps the counter for (dimensionKey, outcome), creating the
// entry on first observation. Returns the entry's state after the bump so
// callers can persist it.
func (s *AssociationStore) Increment(dimensionKey, outcome string) AssociationEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := assocKey(dimensionKey, outcome)
	e, ok := s.entries[key]
	if !ok {
		e = &AssociationEntry{
			DimensionKey: strings.ToLower(strings.TrimSpace(dimensionKey)),
			Outcome:      strings.TrimSpace(outcome),
		}
		s.entries[key] = e
	}
	e.Count++
	e.LastUpdated = s.now()
	return *e
}

// Seed loads a persisted entry without touching its count. Used when
// rehydrating a store from the database at startup.
func (s *AssociationStore) Seed(e AssociationEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.DimensionKey = strings.ToLower(strings.TrimSpace(e.DimensionKey))
	e.Outcome = strings.TrimSpace(e.Outcome)
	s.entries[assocKey(e.DimensionKey, e.Outcome)] = &e
}

// ScoreContribution returns the current count for (dimensionKey, outcome),
// zero if never observed. Used by the scorer's history term.
func (s *AssociationStore) ScoreContribution(dimensionKey, outcome string) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[assocKey(dimensionKey, outcome)]; ok {
		return e.Count
	}
	return 0
}

// Outcomes returns every outcome ever recorded, sorted. A category can
// become scorable purely through history, so the scorer unions this into
// its candidate set.
func (s *AssociationStore) Outcomes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]bool)
	for _, e := range s.entries {
		set[e.Outcome] = true
	}
	out := make([]string, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// MajorityDecision sums counts per outcome across all given dimension keys
// and returns the winning outcome, or "" when undecided. A winner needs a
// total of at least 2 and must either be the only nonzero outcome or hold
// at least twice the runner-up's total.
func (s *AssociationStore) MajorityDecision(dimensionKeys []string, outcomeDomain []string) string {
	s.mu.Lock()
	totals := make(map[string]uint, len(outcomeDomain))
	for _, outcome := range outcomeDomain {
		for _, dim := range dimensionKeys {
			if e, ok := s.entries[assocKey(dim, outcome)]; ok {
				totals[outcome] += e.Count
			}
		}
	}
	s.mu.Unlock()

	var winner string
	var winCount, runnerCount uint
	for _, outcome := range outcomeDomain {
		c := totals[outcome]
		if c > winCount {
			runnerCount = winCount
			winner, winCount = outcome, c
		} else if c > runnerCount {
			runnerCount = c
		}
	}

	if winCount < 2 {
		return ""
	}
	if runnerCount > 0 && winCount < 2*runnerCount {
		return ""
	}
	return winner
}

// Entries returns a snapshot of all counters, sorted by key, for
// persistence and inspection.
func (s *AssociationStore) Entries() []AssociationEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AssociationEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DimensionKey != out[j].DimensionKey {
			return out[i].DimensionKey < out[j].DimensionKey
		}
		return out[i].Outcome < out[j].Outcome
	})
	return out
}
