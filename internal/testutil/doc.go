// Package testutil provides fixtures for driver and harness tests: a small
// binary-alloy settings document, fixed run ids and output tree snapshots.
package testutil
