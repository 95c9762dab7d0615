// Package events defines the typed events flowing from the pipeline worker to
// the task orchestrator, and a notifier that fans completed events out to
// registered subscribers.
//
// Events are delivered to subscribers synchronously and in the order the
// orchestrator observed them, so for any single task attempt subscribers see
// the same FIFO ordering the worker produced: progress values never decrease,
// a corrected-text result never precedes the raw-text result, and Finished is
// always last.
package events
