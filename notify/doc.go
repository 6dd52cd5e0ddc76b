// Package notify delivers run-lifecycle events to operators.
//
// Events describe what happened to a run (planned, phase completed,
// review exhausted, shipped, failed) and are delivered through one or
// more Notifier implementations: structured logs, a generic webhook, or
// Slack. Combine sinks with NewMultiNotifier. These events are separate
// from the platform notifications that land on issues and reviews; those
// go through the provider package.
package notify
