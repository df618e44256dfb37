// Package models holds the records exchanged between a device and the
// remote service: sites (nest boxes), their inspections, regions, the
// change manifest and the upsert response envelope.
//
// Optional timestamps are pointers; optional strings use the empty string
// for "absent". Inspections are attached to a Site by value when a region is
// loaded and are never persisted as part of the site itself.
package models
