// Package redis connects to Redis with retries and exposes a healthcheck.
//
// It backs prefs.RedisStore, which keeps onboarding markers when several
// client processes share preferences.
//
//	cfg := redis.DefaultConfig()
//	_ = config.Load(&cfg)
//	client, err := redis.Connect(ctx, cfg)
package redis
