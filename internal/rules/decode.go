// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trackfinder/internal/validation"
)

// ErrUnknownType is returned when a rule document names a type this build does not know.
var ErrUnknownType = errors.New("unknown rule type")

// Document is the on-disk shape of one rule.
type Document struct {
	ID          string                 `koanf:"id" json:"id"`
	Type        string                 `koanf:"type" json:"type"`
	Pattern     string                 `koanf:"pattern" json:"pattern"`
	Priority    int                    `koanf:"priority" json:"priority"`
	Enabled     *bool                  `koanf:"enabled" json:"enabled"`
	Description string                 `koanf:"description" json:"description"`
	Action      map[string]interface{} `koanf:"action" json:"action"`
}

// DecodeError reports why a single document was rejected.
type DecodeError struct {
	Index int
	ID    string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("rule %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode converts documents into rules, preserving their order. Invalid
// documents are dropped and reported; the rest still decode. Missing
// "enabled" defaults to true. Duplicate ids keep the first occurrence.
func Decode(docs []Document) ([]Rule, []error) {
	out := make([]Rule, 0, len(docs))
	var errs []error
	seen := make(map[string]struct{}, len(docs))

	for i := range docs {
		rule, err := decodeOne(&docs[i])
		if err == nil {
			if _, dup := seen[rule.ID]; dup {
				err = fmt.Errorf("duplicate id %q", rule.ID)
			}
		}
		if err != nil {
			errs = append(errs, &DecodeError{Index: i, ID: docs[i].ID, Err: err})
			continue
		}
		seen[rule.ID] = struct{}{}
		out = append(out, rule)
	}
	return out, errs
}

func decodeOne(doc *Document) (Rule, error) {
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		return Rule{}, errors.New("id is required")
	}
	if doc.Pattern == "" {
		return Rule{}, errors.New("pattern is required")
	}

	t := Type(strings.ToLower(strings.TrimSpace(doc.Type)))
	action, err := decodeAction(t, doc.Action)
	if err != nil {
		return Rule{}, err
	}

	enabled := true
	if doc.Enabled != nil {
		enabled = *doc.Enabled
	}

	return Rule{
		ID:          id,
		Type:        t,
		Pattern:     doc.Pattern,
		Priority:    doc.Priority,
		Enabled:     enabled,
		Description: doc.Description,
		Action:      action,
	}, nil
}

func decodeAction(t Type, raw map[string]interface{}) (Action, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode action: %w", err)
	}

	switch t {
	case TypeGenreSimplification:
		return unmarshalAction[GenreSimplification](data)
	case TypeLibraryBoost:
		return unmarshalAction[LibraryBoost](data)
	case TypeFeatureBoost:
		return unmarshalAction[FeatureBoost](data)
	case TypeRecencyInterleaving:
		a, err := unmarshalAction[RecencyInterleaving](data)
		if err != nil {
			return nil, err
		}
		if a.VintageMaxMonths != 0 && a.VintageMaxMonths <= a.RecentThresholdMonths {
			return nil, fmt.Errorf("vintage_max_months (%d) must exceed recent_threshold_months (%d)",
				a.VintageMaxMonths, a.RecentThresholdMonths)
		}
		return a, nil
	case TypeFilterOptimization:
		a, err := unmarshalAction[FilterOptimization](data)
		if err != nil {
			return nil, err
		}
		if a.AutoApplyFilter.Operator == "" {
			a.AutoApplyFilter.Operator = "eq"
		}
		return a, nil
	case TypeRecencyDecay:
		return unmarshalAction[RecencyDecay](data)
	default:
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownType, t, typeNames())
	}
}

func unmarshalAction[T Action](data []byte) (T, error) {
	var a T
	if err := json.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("decode %s action: %w", a.Type(), err)
	}
	if err := validation.Struct(&a); err != nil {
		return a, fmt.Errorf("invalid %s action: %w", a.Type(), err)
	}
	return a, nil
}

func typeNames() string {
	names := make([]string, len(Types))
	for i, t := range Types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
