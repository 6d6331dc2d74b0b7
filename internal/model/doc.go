// Package model defines the facility state types shared by the stream, the
// read cache, the snapshot stores and the API collaborator.
//
// Conventions:
//   - Identifiers are opaque strings assigned by the backend (zone, gate, category, admin).
//   - Rates are per-hour amounts as sent by the backend; they are never computed here.
//   - Timestamps are time.Time decoded from RFC 3339 strings.
package model
