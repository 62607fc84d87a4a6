// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
Package models defines the data structures shared across Trackfinder.

Key Components:

  - Track: immutable catalog track value with an optional Ranking sub-record
  - Ranking: per-track transparency data (score breakdown, boosts, recency bucket)
  - Facet: categorized taxonomy value (e.g. Master Genre/Rockabilly)
  - SearchPage: one page of tracks plus totals as returned by a search source
  - Project, ProjectTrack: user playlists of catalog tracks

Tracks are passed by value. Pipeline stages that change a score or ranking
metadata return a new Track via WithScore or WithRanking and never write
through a shared pointer.
*/
package models
