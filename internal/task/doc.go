// Package task implements the document analysis orchestration core: the
// single-flight task lifecycle, the pipeline worker that drives the
// recognition and generation engines, cooperative cancellation, and the human
// review checkpoint between the correction and explanation stages.
//
// The orchestrator owns all pipeline state. Exactly one task may be active
// (Running or AwaitingReview) at any time; the engines are heavyweight
// singletons and the single-flight rule here is the sole serialization
// mechanism around them. Workers never touch orchestrator state; they only
// emit events over a per-attempt FIFO channel, ending with Finished.
package task
