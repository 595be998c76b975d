// Package store provides the persistent credential store: durable key/value
// storage for the raw access token, refresh token and serialized user profile.
//
// The store is passive. It does no validation and no encoding beyond plain
// strings; the session package decides what is written and when. Reads never
// fail, writes return wrapped sentinel errors.
//
// Backends: [MemoryStore] (tests), [FileStore] (single-user CLI, JSON on disk)
// and [RedisStore] (shared between processes).
package store
