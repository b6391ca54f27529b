// Package rating implements the item processor for difficulty regrades: it
// loads a puzzle's solve statistics over the worker's own database
// connection, computes a difficulty score, persists it unless the run is a
// dry run, and optionally publishes a completion message.
package rating
