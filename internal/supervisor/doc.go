// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
Package supervisor runs Trackfinder's long-lived goroutines under a suture v4
tree, with lifecycle events logged through sutureslog.

Services restart with backoff when they return an error. On shutdown every
service receives a canceled context and gets TreeConfig.ShutdownTimeout to
stop; stragglers are listed by UnstoppedServiceReport.

Example:

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddRulesService(services.NewRunner("rule-watcher", provider.Watch))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err := tree.Serve(ctx)
*/
package supervisor
