// Package common contains shared constants and sentinel errors used across
// nestwatch client and server components.
package common

// AuthHeaderName carries the device bearer token on HTTP requests.
const AuthHeaderName = "Authorization"

// BearerPrefix precedes the token in AuthHeaderName.
const BearerPrefix = "Bearer "

// RegionParam is the query parameter scoping a request to one region.
const RegionParam = "region"
