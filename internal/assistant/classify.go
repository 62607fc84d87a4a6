// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package assistant

import (
	"strings"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/rules"
)

// Route is the path a message takes to the search service.
type Route string

const (
	// RouteFast sends the message (minus @tokens) straight to search.
	RouteFast Route = "fast"
	// RouteLLM rewrites the message into keywords first.
	RouteLLM Route = "llm"
)

// maxFastWords is the longest message that still counts as keywords.
const maxFastWords = 4

var questionWords = map[string]struct{}{
	"what": {}, "which": {}, "who": {}, "whom": {}, "whose": {}, "where": {},
	"when": {}, "why": {}, "how": {}, "can": {}, "could": {}, "would": {},
	"should": {}, "will": {}, "is": {}, "are": {}, "do": {}, "does": {}, "did": {},
}

// Classify picks the route for a message. Structured @field:value tokens
// and short keyword lists go fast; questions and longer prose go to the LLM.
func Classify(message string) Route {
	message = strings.TrimSpace(message)
	words := strings.Fields(message)
	for _, w := range words {
		if isToken(w) {
			return RouteFast
		}
	}
	if strings.HasSuffix(message, "?") || len(words) > maxFastWords {
		return RouteLLM
	}
	for _, w := range words {
		if _, ok := questionWords[strings.ToLower(strings.Trim(w, `.,;:!?"'`))]; ok {
			return RouteLLM
		}
	}
	return RouteFast
}

// Parsed is a message split into free text and structured restrictions.
type Parsed struct {
	Text    string
	Facets  map[string][]string
	Filters []rules.Filter
}

func isToken(w string) bool {
	if len(w) < 4 || w[0] != '@' {
		return false
	}
	i := strings.IndexByte(w, ':')
	return i > 1 && i < len(w)-1
}

// Parse extracts @field:value tokens. Catalog fields (bpm, library,
// has_stems, ...) become filters; any other field names a facet category,
// with underscores read as spaces. A value prefix selects the operator:
//
//	@bpm:>=120   gte      @library:!Stock   ne
//	@bpm:<=90    lte      @title:~night     contains
func Parse(message string) Parsed {
	var (
		p    Parsed
		text []string
	)
	for _, w := range strings.Fields(message) {
		if !isToken(w) {
			text = append(text, w)
			continue
		}
		i := strings.IndexByte(w, ':')
		field, value := strings.ToLower(w[1:i]), w[i+1:]

		if _, known := (models.Track{}).FieldValues(field); known {
			op, v := splitOperator(value)
			p.Filters = append(p.Filters, rules.Filter{Field: field, Value: v, Operator: op})
			continue
		}
		category := strings.ReplaceAll(field, "_", " ")
		if p.Facets == nil {
			p.Facets = make(map[string][]string)
		}
		p.Facets[category] = append(p.Facets[category], strings.ReplaceAll(value, "_", " "))
	}
	p.Text = strings.Join(text, " ")
	return p
}

func splitOperator(value string) (op, v string) {
	switch {
	case strings.HasPrefix(value, ">="):
		return "gte", value[2:]
	case strings.HasPrefix(value, "<="):
		return "lte", value[2:]
	case strings.HasPrefix(value, "!"):
		return "ne", value[1:]
	case strings.HasPrefix(value, "~"):
		return "contains", value[1:]
	default:
		return "eq", value
	}
}
