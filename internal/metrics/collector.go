package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector aggregates per-rule counters for resolution passes. It is always
// on; the counters live only in memory and are exposed through the control
// socket.
type Collector struct {
	mu      sync.RWMutex
	started time.Time
	rules   map[string]*RuleMetrics
}

// RuleMetrics captures the counters tracked for one rule within one device
// prefix.
type RuleMetrics struct {
	Prefix         string    `json:"prefix"`
	Rule           string    `json:"rule"`
	Matched        uint64    `json:"matched"`
	Applied        uint64    `json:"applied"`
	MappingErrors  uint64    `json:"mappingErrors"`
	DispatchErrors uint64    `json:"dispatchErrors"`
	LastMatched    time.Time `json:"lastMatched,omitempty"`
	LastApplied    time.Time `json:"lastApplied,omitempty"`
	LastErrored    time.Time `json:"lastErrored,omitempty"`
}

// Totals aggregates counters across all rules in a snapshot.
type Totals struct {
	Matched        uint64 `json:"matched"`
	Applied        uint64 `json:"applied"`
	MappingErrors  uint64 `json:"mappingErrors"`
	DispatchErrors uint64 `json:"dispatchErrors"`
}

// Snapshot is the serializable view of the current counters.
type Snapshot struct {
	Started time.Time     `json:"started"`
	Totals  Totals        `json:"totals"`
	Rules   []RuleMetrics `json:"rules,omitempty"`
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		started: time.Now(),
		rules:   make(map[string]*RuleMetrics),
	}
}

// RecordMatched increments the matched counter for a rule.
func (c *Collector) RecordMatched(prefix, rule string) {
	c.update(prefix, rule, func(m *RuleMetrics, now time.Time) {
		m.Matched++
		m.LastMatched = now
	})
}

// RecordApplied increments the applied counter for a rule.
func (c *Collector) RecordApplied(prefix, rule string) {
	c.update(prefix, rule, func(m *RuleMetrics, now time.Time) {
		m.Applied++
		m.LastApplied = now
	})
}

// RecordMappingError increments the mapping error counter for a rule.
func (c *Collector) RecordMappingError(prefix, rule string) {
	c.update(prefix, rule, func(m *RuleMetrics, now time.Time) {
		m.MappingErrors++
		m.LastErrored = now
	})
}

// RecordDispatchError increments the dispatch error counter for a rule.
func (c *Collector) RecordDispatchError(prefix, rule string) {
	c.update(prefix, rule, func(m *RuleMetrics, now time.Time) {
		m.DispatchErrors++
		m.LastErrored = now
	})
}

// Reset clears all counters, e.g. after a configuration reload replaced the
// ruleset set.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = time.Now()
	c.rules = make(map[string]*RuleMetrics)
}

func (c *Collector) update(prefix, rule string, mutate func(*RuleMetrics, time.Time)) {
	if c == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rules == nil {
		c.rules = make(map[string]*RuleMetrics)
	}
	key := prefix + ":" + rule
	m, ok := c.rules[key]
	if !ok {
		m = &RuleMetrics{Prefix: prefix, Rule: rule}
		c.rules[key] = m
	}
	mutate(m, now)
}

// Snapshot returns the current counters for serialization or display.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Started: c.started}
	if len(c.rules) == 0 {
		return snap
	}
	snap.Rules = make([]RuleMetrics, 0, len(c.rules))
	for _, m := range c.rules {
		clone := *m
		snap.Rules = append(snap.Rules, clone)
		snap.Totals.Matched += clone.Matched
		snap.Totals.Applied += clone.Applied
		snap.Totals.MappingErrors += clone.MappingErrors
		snap.Totals.DispatchErrors += clone.DispatchErrors
	}
	sort.Slice(snap.Rules, func(i, j int) bool {
		if snap.Rules[i].Prefix == snap.Rules[j].Prefix {
			return snap.Rules[i].Rule < snap.Rules[j].Rule
		}
		return snap.Rules[i].Prefix < snap.Rules[j].Prefix
	})
	return snap
}
