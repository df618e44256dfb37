// Package localstore is the device-local persistence layer.
//
// A Backend is a key-addressed store with five primitives (Get, Put, Delete,
// ListKeys, ListKeysByIndex) plus Update for grouped writes. Two backends
// exist:
//
//   - IndexedBackend keeps every collection in one SQLite table with
//     expression indexes on region and siteId; Update is a single transaction.
//   - PrefixBackend keeps a flat key-value table where each collection owns
//     a key prefix; index lookups scan the prefix and filter decoded values,
//     and Update applies writes one at a time.
//
// Store is the typed facade used by the sync engine and the CLI services. It
// only talks to the Backend interface and behaves the same on both.
package localstore
