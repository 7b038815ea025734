package service

import (
	"sort"
	"strings"

	"annotation-review/internal/export"
)

// ExtractionRules lists the key substrings that identify the LLM judgement
// and reasoning columns of a source row. Matching is case-insensitive.
type ExtractionRules struct {
	Judgement []string
	Reasoning []string
}

// DefaultExtractionRules covers English and Chinese column names.
var DefaultExtractionRules = ExtractionRules{
	Judgement: []string{"judgement", "judgment", "判断"},
	Reasoning: []string{"reasoning", "reason", "理由"},
}

// Extract returns the values of the first keys, in sorted key order,
// matching the judgement and reasoning patterns. A key matching a
// judgement pattern is never used for reasoning. Keys holding nil are
// passed over.
func (r ExtractionRules) Extract(row map[string]any) (judgement, reasoning *string) {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		lower := strings.ToLower(key)
		switch {
		case containsAny(lower, r.Judgement):
			if judgement == nil {
				judgement = stringValue(row[key])
			}
		case containsAny(lower, r.Reasoning):
			if reasoning == nil {
				reasoning = stringValue(row[key])
			}
		}
	}
	return judgement, reasoning
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func stringValue(v any) *string {
	if v == nil {
		return nil
	}
	s := export.Text(v)
	return &s
}
