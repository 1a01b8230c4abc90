// Package flows contains the pure orchestration behind every token lifecycle operation.
//
// Each Run* function takes a dependency struct and returns a Result carrying either the
// success payload or a classified failure kind. The root engine owns the signer, the
// revocation store, metrics and logging; it maps failure kinds onto its boundary errors.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root authgate package.
//   - Perform I/O other than through the injected dependencies.
package flows
