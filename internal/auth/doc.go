// Package auth provides token authentication and authorisation for homedash.
//
// homedash does not store accounts. Tokens are HS256 JWTs issued elsewhere
// (or by the CLI for testing) with the user name as subject and a role:
//   - user: may read and change only its own dashboard and state document,
//     and read and operate lights
//   - admin: everything, including other users' state and light discovery
//
// Permissions are a static role mapping; no lookup is needed to authorise
// a request.
package auth
