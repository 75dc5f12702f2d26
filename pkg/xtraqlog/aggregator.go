// SPDX-License-Identifier: Apache-2.0

package xtraqlog

import "sort"

// WarningAggregator deduplicates identical non-fatal warning messages
// (ParseError, EnrichmentGap, per-object SnapshotIoError) raised over the
// course of a run, and reports them sorted by descending count at the end.
type WarningAggregator struct {
	counts map[string]int
	order  []string
}

// NewWarningAggregator returns an empty aggregator.
func NewWarningAggregator() *WarningAggregator {
	return &WarningAggregator{counts: map[string]int{}}
}

// Add records one occurrence of message.
func (a *WarningAggregator) Add(message string) {
	if _, seen := a.counts[message]; !seen {
		a.order = append(a.order, message)
	}
	a.counts[message]++
}

// Summary is one deduplicated warning and how many times it occurred.
type Summary struct {
	Message string
	Count   int
}

// Summarize returns the recorded warnings sorted by descending count, then
// by first-seen order for ties.
func (a *WarningAggregator) Summarize() []Summary {
	out := make([]Summary, len(a.order))
	for i, msg := range a.order {
		out[i] = Summary{Message: msg, Count: a.counts[msg]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Len reports how many distinct messages have been recorded.
func (a *WarningAggregator) Len() int { return len(a.order) }

// Report logs the summarized warnings through logger, most frequent first.
func (a *WarningAggregator) Report(logger Logger) {
	for _, s := range a.Summarize() {
		logger.Warn(s.Message, "count", s.Count)
	}
}
