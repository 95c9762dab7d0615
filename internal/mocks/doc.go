// Package mocks provides test doubles for the engine adapter interfaces.
// Each mock exposes function fields to override behavior per test and tracks
// calls for verification.
package mocks
