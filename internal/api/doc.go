// Package api implements the HTTP REST API and WebSocket push for homedash.
//
// This package provides:
//   - the composed dashboard and the assistant action endpoint
//   - per-user state document CRUD
//   - light listing, discovery and commands
//   - a WebSocket hub that pushes each user's dashboard after every poll
//   - middleware (request ID, logging, recovery, CORS, body limit, JWT)
//
// # Security
//
// When security.jwt.enabled is set every route except /health requires a
// bearer token. A user token may only touch its own user_name; an admin
// token may touch any. WebSocket clients that cannot set headers pass the
// token as the token query parameter.
package api
