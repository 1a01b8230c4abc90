// Package identity is the minimal user directory behind register, login and profile lookup.
//
// [Service] owns password hashing and credential checks; a [Store] owns persistence. Two
// stores are provided: [MemoryStore] for tests and single-process deployments, and
// [RedisStore] which keeps users in Redis hashes next to the revocation markers.
package identity
