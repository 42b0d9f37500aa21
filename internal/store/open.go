package store

import (
	"context"
	"fmt"
)

// Options selects and configures a KV backend.
type Options struct {
	Backend     string // memory, file, sqlite, postgres, redis
	Dir         string
	SQLitePath  string
	DatabaseURL string
	RedisAddr   string
	RedisPrefix string
}

// Open returns the KV backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case "memory":
		return NewMemory(), nil
	case "", "file":
		return NewFile(opts.Dir)
	case "sqlite":
		return NewSQLite(ctx, opts.SQLitePath)
	case "postgres":
		return NewPostgres(ctx, opts.DatabaseURL)
	case "redis":
		r := NewRedis(opts.RedisAddr, opts.RedisPrefix)
		if !r.Healthy(ctx) {
			r.Close()
			return nil, fmt.Errorf("redis not reachable at %s", opts.RedisAddr)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
