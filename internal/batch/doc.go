// Package batch defines the domain types and collaborator contracts shared
// by the regrade engine: identifiers, run flags, and the narrow interfaces
// through which the engine consumes its identifier source, item processor,
// per-worker resources, and output reporter.
package batch
