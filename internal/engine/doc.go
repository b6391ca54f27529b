// Package engine orchestrates one batch run: it fetches the identifier set,
// builds the claim queue, launches the worker pool together with the
// progress and health monitors, waits for the pool to drain, and emits the
// final progress sample. An Engine instance is single-use; every run owns
// fresh counters and a fresh slot table.
package engine
