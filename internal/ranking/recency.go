// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package ranking

import (
	"strings"
	"time"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/rules"
)

// Recency bucket names as recorded on Ranking.RecencyBucket.
const (
	BucketRecent  = "recent"
	BucketVintage = "vintage"
)

// releaseDateLayouts accepts MM/DD/YYYY (padding optional) and YYYY-MM-DD.
var releaseDateLayouts = []string{"1/2/2006", "2006-01-02"}

// ParseReleaseDate parses a catalog release date. A trailing time component
// ("2024-03-15T10:00:00Z", "03/15/2024 00:00") is ignored.
func ParseReleaseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RecencyConfig is the per-request form of a recency_interleaving action.
type RecencyConfig struct {
	// Pattern holds only R and V characters.
	Pattern         string
	RepeatCount     int
	RecentThreshold time.Time
	// VintageMax, when set, is the oldest release date a vintage fetch
	// from the search source includes.
	VintageMax *time.Time
}

// NewRecencyConfig derives the thresholds from now. Dates are truncated to
// UTC midnight so every request on the same day sees the same buckets.
func NewRecencyConfig(a rules.RecencyInterleaving, now time.Time) RecencyConfig {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	cfg := RecencyConfig{
		Pattern:         a.Slots(),
		RepeatCount:     a.Repeats(),
		RecentThreshold: today.AddDate(0, -a.RecentThresholdMonths, 0),
	}
	if a.VintageMaxMonths > 0 {
		v := today.AddDate(0, -a.VintageMaxMonths, 0)
		cfg.VintageMax = &v
	}
	return cfg
}

// Bound is the number of leading positions laid out by the pattern
// (repeatCount * patternLength).
//
//nolint:gocritic // small value type
func (c RecencyConfig) Bound() int {
	return c.RepeatCount * len(c.Pattern)
}

// IsRecent reports whether a release date falls on or after threshold.
// Missing or unparsable dates are never recent.
func IsRecent(releaseDate string, threshold time.Time) bool {
	d, ok := ParseReleaseDate(releaseDate)
	return ok && !d.Before(threshold)
}

// Bucketize splits tracks into recent and vintage buckets, each preserving
// input order. Every track lands in exactly one bucket and is annotated
// with its bucket name.
func Bucketize(tracks []models.Track, threshold time.Time) (recent, vintage []models.Track) {
	recent = make([]models.Track, 0, len(tracks))
	vintage = make([]models.Track, 0, len(tracks))

	for i := range tracks {
		if IsRecent(tracks[i].ReleaseDate, threshold) {
			recent = append(recent, withBucket(tracks[i], BucketRecent))
		} else {
			vintage = append(vintage, withBucket(tracks[i], BucketVintage))
		}
	}
	return recent, vintage
}

//nolint:gocritic // Track is an immutable value type
func withBucket(t models.Track, bucket string) models.Track {
	return t.WithRanking(func(r *models.Ranking) { r.RecencyBucket = bucket })
}

// MarkBucket returns copies of tracks annotated with bucket. It is used for
// pages assembled from per-bucket fetches, where the bucket is known.
func MarkBucket(tracks []models.Track, bucket string) []models.Track {
	out := make([]models.Track, len(tracks))
	for i := range tracks {
		out[i] = withBucket(tracks[i], bucket)
	}
	return out
}
