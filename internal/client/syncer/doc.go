// Package syncer reconciles the device-local store with the remote service.
//
// Compare is a pure decision function: given a local site (with its
// inspections attached) and the remote manifest entry for the same id, it
// decides whether the record has to be pushed, pulled, both or neither, and
// which photos have to travel in which direction. Photos move independently
// of record timestamps.
//
// Orchestrator runs one sync pass. Regions are handled one after another:
// manifest, local snapshot, compare, push records and blobs. Once every
// region has been pushed, each region is rebuilt from the remote listings.
// Per-item failures are logged and counted; manifest, listing and local
// replace failures abort the pass.
package syncer
