// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
Package projects stores production playlists in BadgerDB.

A project is a named list of catalog tracks put together for one
production. Projects get sequential ids (P001, P002, ...), tracks are
appended at the next position and every change bumps modified_on.

	store, err := projects.Open(&cfg.Projects, cat, logging.Logger())
	p, err := store.Create(ctx, &projects.CreateInput{Name: "Summer Campaign"})
	_, err = store.AddTrack(ctx, p.ID, "RCK_RCK_0100_00101", "opening scene")

Records are JSON encoded with goccy/go-json.
*/
package projects
