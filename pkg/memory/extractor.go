// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package memory is the memory extractor (C8): it mines the latest user
// turn for preferences, facts and context cues by pattern matching, and
// folds the result into a ConversationContext's capped memory fields.
package memory

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/teradata-labs/corerouter/pkg/types"
)

var (
	preferencePatterns = compileAll(
		`I (?:prefer|like|love|enjoy|want|need) (.+)`,
		`My favorite (.+) is (.+)`,
		`I (?:don't|do not) like (.+)`,
		`I (?:always|usually|often) (.+)`,
		`I (?:never|rarely|seldom) (.+)`,
		`I am (?:a|an) (.+)`,
		`I work (?:as|in|at) (.+)`,
		`My (?:job|role|position) is (.+)`,
		`I live in (.+)`,
		`I speak (.+)`,
		`I use (.+) (?:programming language|framework|tool)`,
	)
	factPatterns = compileAll(
		`(?:The|This|That) (.+) is (.+)`,
		`(.+) (?:means|refers to|is defined as) (.+)`,
		`(?:Remember|Note) that (.+)`,
		`(?:Important|Key|Critical): (.+)`,
		`(.+) (?:works|functions) by (.+)`,
	)

	importanceKeywords = []string{
		"important", "critical", "key", "essential", "vital", "crucial",
		"remember", "note", "warning", "caution", "alert",
		"prefer", "like", "love", "hate", "dislike", "favorite",
		"always", "never", "usually", "often", "rarely", "seldom",
	}
	summaryKeywords = []string{
		"prefer", "need", "important", "problem", "solution", "help", "question", "answer",
	}
	explicitIndicators   = []string{"i prefer", "i like", "i love", "i hate", "i always", "i never"}
	definitiveIndicators = []string{"is", "are", "means", "refers to"}

	stopWords = map[string]struct{}{
		"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
		"of": {}, "with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
		"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {},
		"would": {}, "could": {}, "should": {}, "may": {}, "might": {}, "can": {}, "this": {}, "that": {},
		"these": {}, "those": {},
	}

	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	wordSplit     = regexp.MustCompile(`\b\w+\b`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Config caps each of the memory fields a turn can grow (OQ-4).
type Config struct {
	MaxPreferences int
	MaxFacts       int
	MaxKeywords    int
}

// DefaultConfig matches the spec's stated caps.
func DefaultConfig() Config {
	return Config{MaxPreferences: 50, MaxFacts: 100, MaxKeywords: 50}
}

// item is an extracted candidate before it's folded into the context's
// typed collections.
type item struct {
	content    string
	kind       types.MemoryItemType
	confidence float64
	sourceTurn int
	keywords   []string
}

// Extractor has no mutable state: the pattern families above are
// compiled once at package init and shared read-only, so an Extractor
// is safe for concurrent use across any number of conversations.
type Extractor struct {
	cfg Config
}

// New returns an Extractor capping memory growth per cfg.
func New(cfg Config) *Extractor {
	if cfg.MaxPreferences <= 0 {
		cfg.MaxPreferences = 50
	}
	if cfg.MaxFacts <= 0 {
		cfg.MaxFacts = 100
	}
	if cfg.MaxKeywords <= 0 {
		cfg.MaxKeywords = 50
	}
	return &Extractor{cfg: cfg}
}

// ProcessTurn mines the latest user message in cc for memory items and
// folds them into cc's preference/fact/keyword/summary fields, in place,
// also returning cc for chaining.
func (e *Extractor) ProcessTurn(cc *types.ConversationContext, turnNumber int) *types.ConversationContext {
	if len(cc.Messages) == 0 {
		return cc
	}

	var latest *types.Message
	for i := len(cc.Messages) - 1; i >= 0; i-- {
		if cc.Messages[i].Role == types.RoleUser {
			latest = &cc.Messages[i]
			break
		}
	}
	if latest == nil {
		return cc
	}

	prefs := e.extractPreferences(latest.Content, turnNumber)
	facts := e.extractFacts(latest.Content, turnNumber)
	clues := e.extractContextClues(latest.Content, turnNumber)

	e.mergePreferences(cc, prefs)
	e.mergeFacts(cc, facts, clues)
	e.mergeKeywords(cc, prefs, facts, clues)

	cc.InteractionSummary = summarizeConversation(cc.Messages)
	cc.MemoryLastUpdated = time.Now()
	return cc
}

func (e *Extractor) extractPreferences(message string, turn int) []item {
	return matchItems(message, preferencePatterns, types.MemoryItemPreference, turn)
}

func (e *Extractor) extractFacts(message string, turn int) []item {
	return matchItems(message, factPatterns, types.MemoryItemFact, turn)
}

func matchItems(message string, patterns []*regexp.Regexp, kind types.MemoryItemType, turn int) []item {
	lower := strings.ToLower(message)
	var items []item
	for _, p := range patterns {
		for _, m := range p.FindAllString(lower, -1) {
			items = append(items, item{
				content:    m,
				kind:       kind,
				confidence: calculateConfidence(m, kind),
				sourceTurn: turn,
				keywords:   extractKeywords(m),
			})
		}
	}
	return items
}

// extractContextClues scores each sentence of message by how many
// importance keywords it contains and keeps those that clear both the
// minimum score and confidence bar.
func (e *Extractor) extractContextClues(message string, turn int) []item {
	var items []item
	for _, sentence := range sentenceSplit.Split(message, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		lower := strings.ToLower(sentence)
		score := 0
		for _, kw := range importanceKeywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score < 1 {
			continue
		}
		confidence := math.Min(0.9, float64(score)*0.3)
		if confidence <= 0.5 {
			continue
		}
		items = append(items, item{
			content:    sentence,
			kind:       types.MemoryItemContext,
			confidence: confidence,
			sourceTurn: turn,
			keywords:   extractKeywords(sentence),
		})
	}
	return items
}

func extractKeywords(text string) []string {
	words := wordSplit.FindAllString(strings.ToLower(text), -1)
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == 10 {
			break
		}
	}
	return keywords
}

func calculateConfidence(content string, kind types.MemoryItemType) float64 {
	confidence := 0.5
	lower := strings.ToLower(content)
	if containsAny(lower, explicitIndicators) {
		confidence += 0.3
	}
	if containsAny(lower, definitiveIndicators) {
		confidence += 0.2
	}
	switch kind {
	case types.MemoryItemPreference:
		confidence += 0.1
	case types.MemoryItemFact:
		confidence += 0.05
	}
	return math.Min(1.0, confidence)
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (e *Extractor) mergePreferences(cc *types.ConversationContext, prefs []item) {
	if len(prefs) == 0 {
		return
	}
	if cc.UserPreferences == nil {
		cc.UserPreferences = make(map[string]types.Preference)
	}
	now := time.Now()
	for i, p := range prefs {
		key := fmt.Sprintf("pref_%d_%d", p.sourceTurn, i)
		cc.UserPreferences[key] = types.Preference{
			Content:    p.content,
			Confidence: p.confidence,
			Timestamp:  now,
			Keywords:   p.keywords,
		}
	}
	e.capPreferences(cc)
}

// capPreferences evicts the lowest-confidence (oldest on ties) entries
// once the map exceeds MaxPreferences.
func (e *Extractor) capPreferences(cc *types.ConversationContext) {
	over := len(cc.UserPreferences) - e.cfg.MaxPreferences
	if over <= 0 {
		return
	}
	type kv struct {
		key  string
		pref types.Preference
	}
	all := make([]kv, 0, len(cc.UserPreferences))
	for k, v := range cc.UserPreferences {
		all = append(all, kv{k, v})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].pref.Confidence != all[j].pref.Confidence {
			return all[i].pref.Confidence < all[j].pref.Confidence
		}
		return all[i].pref.Timestamp.Before(all[j].pref.Timestamp)
	})
	for i := 0; i < over; i++ {
		delete(cc.UserPreferences, all[i].key)
	}
}

func (e *Extractor) mergeFacts(cc *types.ConversationContext, facts, clues []item) {
	for _, f := range facts {
		cc.KeyFacts = append(cc.KeyFacts, toFact(f))
	}
	for _, c := range clues {
		if c.confidence > 0.5 {
			cc.KeyFacts = append(cc.KeyFacts, toFact(c))
		}
	}
	if len(cc.KeyFacts) <= e.cfg.MaxFacts {
		return
	}
	sort.Slice(cc.KeyFacts, func(i, j int) bool {
		if cc.KeyFacts[i].Confidence != cc.KeyFacts[j].Confidence {
			return cc.KeyFacts[i].Confidence > cc.KeyFacts[j].Confidence
		}
		return cc.KeyFacts[i].Timestamp.After(cc.KeyFacts[j].Timestamp)
	})
	cc.KeyFacts = cc.KeyFacts[:e.cfg.MaxFacts]
}

func toFact(it item) types.Fact {
	return types.Fact{
		Content:    it.content,
		Type:       it.kind,
		Confidence: it.confidence,
		Timestamp:  time.Now(),
		SourceTurn: it.sourceTurn,
		Keywords:   it.keywords,
	}
}

func (e *Extractor) mergeKeywords(cc *types.ConversationContext, groups ...[]item) {
	seen := make(map[string]struct{}, len(cc.MemoryKeywords))
	merged := make([]string, 0, len(cc.MemoryKeywords))
	for _, k := range cc.MemoryKeywords {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			merged = append(merged, k)
		}
	}
	for _, group := range groups {
		for _, it := range group {
			for _, k := range it.keywords {
				if _, ok := seen[k]; !ok {
					seen[k] = struct{}{}
					merged = append(merged, k)
				}
			}
		}
	}
	if len(merged) > e.cfg.MaxKeywords {
		merged = merged[:e.cfg.MaxKeywords]
	}
	cc.MemoryKeywords = merged
}

// summarizeConversation folds the first 20 sentences of the transcript
// down to the top 5 containing a summary keyword, truncated to 500
// characters; absent any, it falls back to the first 3 sentences
// truncated to 300.
func summarizeConversation(messages []types.Message) string {
	if len(messages) == 0 {
		return ""
	}

	var parts []string
	for _, m := range messages {
		switch m.Role {
		case types.RoleUser:
			parts = append(parts, "User: "+m.Content)
		case types.RoleAssistant:
			parts = append(parts, "Assistant: "+m.Content)
		}
	}
	sentences := sentenceSplit.Split(strings.Join(parts, " "), -1)
	if len(sentences) > 20 {
		sentences = sentences[:20]
	}

	var important []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if len(s) <= 10 {
			continue
		}
		if containsAny(strings.ToLower(s), summaryKeywords) {
			important = append(important, s)
		}
	}
	if len(important) > 0 {
		if len(important) > 5 {
			important = important[:5]
		}
		return truncate(strings.Join(important, ". "), 500)
	}

	var first []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		first = append(first, s)
		if len(first) == 3 {
			break
		}
	}
	return truncate(strings.Join(first, ". "), 300)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
