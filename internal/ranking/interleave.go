// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package ranking

import (
	"strings"

	"github.com/tomtom215/trackfinder/internal/models"
)

const (
	slotRecent  = 'R'
	slotVintage = 'V'
)

// normalizeSlots keeps only the R and V slots. Other characters,
// lowercase r and v included, are ignored.
func normalizeSlots(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern))
	for _, c := range pattern {
		if c == slotRecent || c == slotVintage {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Interleave merges two buckets following pattern, repeated repeatCount
// times or until both buckets are exhausted. A slot whose bucket is empty
// is skipped. Leftover recent tracks, then leftover vintage tracks, are
// appended afterwards. The output always holds every input track exactly once.
//
//	Interleave([r1 r2 r3], [v1], "RRV", 1) == [r1 r2 v1 r3]
func Interleave(recent, vintage []models.Track, pattern string, repeatCount int) []models.Track {
	slots := normalizeSlots(pattern)
	if repeatCount < 1 {
		repeatCount = 1
	}

	out := make([]models.Track, 0, len(recent)+len(vintage))
	ri, vi := 0, 0

	if slots != "" {
		for rep := 0; rep < repeatCount; rep++ {
			if ri >= len(recent) && vi >= len(vintage) {
				break
			}
			for i := 0; i < len(slots); i++ {
				switch slots[i] {
				case slotRecent:
					if ri < len(recent) {
						out = append(out, recent[ri])
						ri++
					}
				case slotVintage:
					if vi < len(vintage) {
						out = append(out, vintage[vi])
						vi++
					}
				}
			}
		}
	}

	out = append(out, recent[ri:]...)
	out = append(out, vintage[vi:]...)
	return out
}

// PageLayout describes which bucket ranges make up one page of the full
// interleaved order. Slots has one R or V per page position. Because both
// buckets are consumed strictly in order, the recent and vintage tracks of a
// page are contiguous ranges of their buckets.
type PageLayout struct {
	Slots         string
	RecentOffset  int
	RecentCount   int
	VintageOffset int
	VintageCount  int
}

// Len is the number of positions in the page.
func (l PageLayout) Len() int { return len(l.Slots) }

// LayoutPage computes the layout of positions [offset, offset+limit) of
// Interleave(recent, vintage, pattern, repeatCount) given only the bucket
// sizes. The cost is proportional to offset+limit, not to the bucket sizes.
func LayoutPage(pattern string, repeatCount, recentTotal, vintageTotal, offset, limit int) PageLayout {
	slots := normalizeSlots(pattern)
	if repeatCount < 1 {
		repeatCount = 1
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + limit
	if total := recentTotal + vintageTotal; end > total {
		end = total
	}

	var layout PageLayout
	var page strings.Builder
	ri, vi, pos := 0, 0, 0

	place := func(c byte) {
		if pos >= offset && pos < end {
			if c == slotRecent {
				if layout.RecentCount == 0 {
					layout.RecentOffset = ri
				}
				layout.RecentCount++
			} else {
				if layout.VintageCount == 0 {
					layout.VintageOffset = vi
				}
				layout.VintageCount++
			}
			page.WriteByte(c)
		}
		pos++
	}

	if slots != "" {
		for rep := 0; rep < repeatCount && pos < end; rep++ {
			if ri >= recentTotal && vi >= vintageTotal {
				break
			}
			for i := 0; i < len(slots) && pos < end; i++ {
				switch {
				case slots[i] == slotRecent && ri < recentTotal:
					place(slotRecent)
					ri++
				case slots[i] == slotVintage && vi < vintageTotal:
					place(slotVintage)
					vi++
				}
			}
		}
	}

	// Leftovers: remaining recent, then remaining vintage.
	for pos < end && ri < recentTotal {
		place(slotRecent)
		ri++
	}
	for pos < end && vi < vintageTotal {
		place(slotVintage)
		vi++
	}

	layout.Slots = page.String()
	if layout.RecentCount == 0 {
		layout.RecentOffset = ri
	}
	if layout.VintageCount == 0 {
		layout.VintageOffset = vi
	}
	return layout
}
