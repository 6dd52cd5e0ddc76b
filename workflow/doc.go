// Package workflow drives runs through the phase lifecycle
// planned -> built -> reviewing -> reviewed -> shipped.
//
// Transition is the pure state machine; Machine performs the effects
// around it: resolving issues, provisioning sandboxes, running the
// coding agent, bounded review/patch cycles, and opening the code
// review. Every transition is persisted through a Store before the next
// phase starts, so interrupted runs resume exactly where they stopped.
// The reviewing phase self-loops at most MaxReviewAttempts times; runs
// that still carry blocker findings afterwards fail with the blockers
// attached to the record.
package workflow
