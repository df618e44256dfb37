// Package cli is the nestwatch command-line client.
//
// Every command opens the local store under the configured data directory,
// works offline where it can and talks to the remote service only for
// sync, dedup, ping and region listing. Run "nestwatch help" for the list.
package cli
