// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

// Package services adapts Trackfinder components to suture.Service.
//
// HTTPServerService turns ListenAndServe/Shutdown into a context-driven
// Serve. Runner wraps any blocking func(ctx) error loop, such as the rule
// file watcher or the event listener.
package services
