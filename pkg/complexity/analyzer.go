// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package complexity classifies a query into a tier-driving complexity
// level by pattern matching, the way the router's upstream components
// expect, without any model call.
package complexity

import (
	"regexp"
	"strings"

	"github.com/teradata-labs/corerouter/pkg/types"
)

var (
	simplePatterns = compileAll(
		`\b(summarize|summary|tldr|brief|short)\b`,
		`\b(format|reformat|convert)\b`,
		`\b(translate|translation)\b`,
		`\b(list|enumerate)\b`,
		`\b(define|definition|what is)\b`,
		`\b(yes|no|true|false)\b`,
	)
	complexPatterns = compileAll(
		`\b(analyze|analysis|analytical)\b`,
		`\b(strategy|strategic|plan|planning)\b`,
		`\b(compare|comparison|contrast)\b`,
		`\b(research|investigate)\b`,
		`\b(design|architect|create)\b`,
		`\b(optimize|optimization)\b`,
		`\b(solve|solution|problem)\b`,
		`\b(reason|reasoning|logic)\b`,
	)
	criticalPatterns = compileAll(
		`\b(multi-step|step-by-step|complex)\b`,
		`\b(comprehensive|detailed|thorough)\b`,
		`\b(advanced|sophisticated)\b`,
		`\b(integrate|integration|combine)\b`,
		`\b(algorithm|mathematical|calculation)\b`,
		`\b(code|programming|development)\b`,
	)

	// planningKeywords and timeSensitiveKeywords are matched as plain
	// substrings, not word-bounded patterns — "develop" must also catch
	// "development", matching the original's `keyword in query_lower` check.
	planningKeywords = []string{
		"step by step", "plan", "strategy", "approach", "method", "process",
		"design", "create", "develop", "algorithm", "comprehensive",
	}
	timeSensitiveKeywords = []string{
		"urgent", "asap", "quickly", "fast", "immediate", "now",
	}

	domainLexicons = map[string][]*regexp.Regexp{
		"technical": compileAll(`\b(api|database|server|code|programming|algorithm)\b`),
		"business":  compileAll(`\b(revenue|profit|market|strategy|business|roi)\b`),
		"academic":  compileAll(`\b(research|study|analysis|theory|hypothesis)\b`),
		"creative":  compileAll(`\b(design|creative|art|story|narrative)\b`),
	}

	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	wordSplit     = regexp.MustCompile(`\s+`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func countMatches(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}

func anyMatch(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func anyContains(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Analyzer classifies queries. It holds no mutable state and is safe for
// concurrent use by any number of request goroutines — the pattern
// families above are compiled once at package init and shared read-only.
type Analyzer struct{}

// New returns a stateless Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze is a pure function of query and the (optional) prior context.
func (a *Analyzer) Analyze(query string, ctx *types.ConversationContext) types.QueryAnalysis {
	folded := strings.ToLower(query)

	simpleMatches := countMatches(folded, simplePatterns)
	complexMatches := countMatches(folded, complexPatterns)
	criticalMatches := countMatches(folded, criticalPatterns)

	wordCount := 0
	for _, w := range wordSplit.Split(strings.TrimSpace(folded), -1) {
		if w != "" {
			wordCount++
		}
	}
	sentenceCount := 0
	for _, s := range sentenceSplit.Split(strings.TrimSpace(query), -1) {
		if strings.TrimSpace(s) != "" {
			sentenceCount++
		}
	}
	if sentenceCount == 0 && wordCount > 0 {
		sentenceCount = 1
	}

	requiresPlanning := anyContains(folded, planningKeywords)
	timeSensitive := anyContains(folded, timeSensitiveKeywords)

	domain := ""
	for _, name := range []string{"technical", "business", "academic", "creative"} {
		if anyMatch(folded, domainLexicons[name]) {
			domain = name
			break
		}
	}

	score := -float64(simpleMatches) + 2*float64(complexMatches) + 3*float64(criticalMatches) +
		float64(wordCount)/10 + 0.5*float64(sentenceCount)

	var (
		level      types.Complexity
		confidence float64
		indicators []string
	)

	switch {
	case score <= 1 && !requiresPlanning:
		level = types.ComplexitySimple
		confidence = 0.8 + 0.1*float64(simpleMatches)
		indicators = append(indicators, "low_score")
	case score <= 4 && criticalMatches == 0:
		level = types.ComplexityModerate
		confidence = 0.7 + 0.1*float64(complexMatches)
		indicators = append(indicators, "moderate_score")
	case score > 8:
		// A score this high is critical regardless of requiresPlanning:
		// a query packed with critical_indicators (e.g. "advanced" +
		// "complex") often also trips a planning keyword ("develop"),
		// and that overlap must not cap it at COMPLEX.
		level = types.ComplexityCritical
		confidence = 0.9
		requiresPlanning = true
		indicators = append(indicators, "critical_score")
	default:
		level = types.ComplexityComplex
		confidence = 0.6 + 0.1*float64(criticalMatches)
		if criticalMatches > 0 || complexMatches > 1 {
			requiresPlanning = true
		}
		indicators = append(indicators, "complex_score")
	}

	if level == types.ComplexitySimple && ctx != nil && len(ctx.Messages) > 5 {
		level = types.ComplexityModerate
		indicators = append(indicators, "context_upgrade")
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	estimatedTokens := int(1.3*float64(wordCount) + 0.5)
	if estimatedTokens < 50 {
		estimatedTokens = 50
	}

	return types.QueryAnalysis{
		Complexity:          level,
		Confidence:          confidence,
		ReasoningIndicators: indicators,
		EstimatedTokens:     estimatedTokens,
		RequiresPlanning:    requiresPlanning,
		DomainSpecific:      domain,
		TimeSensitive:       timeSensitive,
	}
}
