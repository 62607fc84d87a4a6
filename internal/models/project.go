// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package models

// Project is a named playlist of catalog tracks put together for a production.
type Project struct {
	ID            string   `json:"project_id"`
	Name          string   `json:"name" validate:"required,max=200"`
	Description   string   `json:"description,omitempty" validate:"max=2000"`
	ForField      string   `json:"for_field,omitempty"` // e.g. "TV Commercial"
	Keywords      []string `json:"keywords,omitempty"`
	CreatedOn     string   `json:"created_on"`  // YYYY-MM-DD
	ModifiedOn    string   `json:"modified_on"` // YYYY-MM-DD
	Status        string   `json:"status"`
	Deadline      string   `json:"deadline,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Collaborators []string `json:"collaborators,omitempty"`
}

// ProjectTrack is one track placed in a project.
type ProjectTrack struct {
	ProjectID string `json:"project_id"`
	TrackID   string `json:"track_id"`
	Title     string `json:"title,omitempty"`
	Position  int    `json:"position"`
	AddedDate string `json:"added_date"`
	Notes     string `json:"notes,omitempty"`
}
