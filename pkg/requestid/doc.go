// Package requestid propagates request correlation identifiers between the
// client, its logs and the auth service.
//
// Outbound calls use Ensure to reuse the id already stored in the context or
// mint a fresh UUID, and send it in the Header. The fake auth service in
// pkg/authtest mounts Middleware so server-side handlers observe the same id.
// LoggerExtractor plugs into pkg/logger so every record emitted with the
// context carries a "request_id" attribute.
//
// Invalid ids supplied by a peer are replaced, never rejected.
package requestid
