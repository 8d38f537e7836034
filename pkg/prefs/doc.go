// Package prefs keeps non-secret, per-account client preferences. Today that
// is a single marker recording that an account has already seen onboarding.
//
// Keys are email addresses normalized with Unicode case folding, so
// "Ann@Example.com" and "ann@example.com" share a marker. Registration clears
// the marker for the new email, which covers a deleted account being
// recreated with the same address.
//
// MemoryStore is a bounded in-process LRU. RedisStore shares markers across
// processes through go-redis.
package prefs
