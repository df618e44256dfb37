// Package client talks to the nestwatch remote service.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) covering the
//     sync surface: change manifests, region listings, single-site upsert,
//     blob transfer, the duplicate sweep and the region list sync.
//  2. A concrete HTTP implementation (see HTTPClient) that attaches the
//     device bearer token, encodes query parameters and maps HTTP status
//     codes to sentinel errors.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable (connectivity or server failure),
// ErrUnauthorized, common.ErrMissingRegion, common.ErrForbiddenRegion and
// common.ErrorNotFound.
//
// Region-scoped calls with an empty region fail with common.ErrMissingRegion
// before any request is sent.
//
// HTTPClient is safe for concurrent use. Every call honours its context.
package client
