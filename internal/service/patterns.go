package service

import (
	"sort"
	"time"

	"github.com/controla/backend/internal/model"
)

const DefaultPatternRange = "14d"

// patternRanges maps the supported range buckets to their window length.
var patternRanges = map[string]time.Duration{
	"1d":  24 * time.Hour,
	"14d": 14 * 24 * time.Hour,
	"1m":  30 * 24 * time.Hour,
	"6m":  180 * 24 * time.Hour,
	"12m": 365 * 24 * time.Hour,
}

// NormalizeRange returns the bucket key actually used; unknown keys become
// the default.
func NormalizeRange(key string) string {
	if _, ok := patternRanges[key]; ok {
		return key
	}
	return DefaultPatternRange
}

func rangeCutoff(now time.Time, key string) time.Time {
	return now.Add(-patternRanges[NormalizeRange(key)])
}

// AggregateErrorPatterns groups events by exact message text. Groups are
// ordered by count, then by most recent occurrence, then by message.
func AggregateErrorPatterns(events []model.NormalizedEvent) []model.ErrorPattern {
	type group struct {
		pattern   model.ErrorPattern
		workflows map[string]struct{}
	}

	groups := make(map[string]*group)
	for _, event := range events {
		msg := event.ErrorMessage()
		g, ok := groups[msg]
		if !ok {
			g = &group{
				pattern:   model.ErrorPattern{Message: msg},
				workflows: make(map[string]struct{}),
			}
			groups[msg] = g
		}
		g.pattern.Count++
		if event.OccurredAt.After(g.pattern.LastOccurred) {
			g.pattern.LastOccurred = event.OccurredAt
		}
		if name := event.WorkflowName(); name != "" {
			g.workflows[name] = struct{}{}
		}
	}

	patterns := make([]model.ErrorPattern, 0, len(groups))
	for _, g := range groups {
		workflows := make([]string, 0, len(g.workflows))
		for name := range g.workflows {
			workflows = append(workflows, name)
		}
		sort.Strings(workflows)
		g.pattern.AffectedWorkflows = workflows
		patterns = append(patterns, g.pattern)
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		if !patterns[i].LastOccurred.Equal(patterns[j].LastOccurred) {
			return patterns[i].LastOccurred.After(patterns[j].LastOccurred)
		}
		return patterns[i].Message < patterns[j].Message
	})
	return patterns
}
