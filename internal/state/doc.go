// Package state stores one JSON document per user in a key/value backend.
//
// The document mixes profile fields written by the user, fields derived from
// the clock on every read, and dashboard data written by the poller and the
// action handler. Writers never lock: Update is read-merge-write and the last
// writer wins for the fields it touches.
//
// Backends:
//   - MemoryBackend: process-local, for tests and single-process installs
//   - SQLiteBackend: the kv_store table in the homedash database
//   - RedisBackend: a shared Redis, compatible with other services reading
//     the same "user_state:name:<user>" keys
package state
