// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
Package events carries rule reload notices between instances over
Watermill.

When an operator reloads rules on one instance (POST /api/v1/rules/reload)
the instance publishes a RulesReloaded event. Every other instance on the
same backend reloads its own rule file in response, which publishes a new
snapshot and clears its rerank cache. Instances ignore their own notices.

Backends:
  - channel: in-process gochannel (single instance, the default)
  - nats: core NATS through watermill-nats, JetStream disabled

Listen is a blocking loop meant to run under the supervisor.
*/
package events
