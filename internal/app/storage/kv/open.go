package kv

import (
	"context"
	"fmt"
	"strings"
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	Path        string
	Redis       RedisOptions
	PostgresDSN string
}

// Open builds the backend named by opts.Driver. A blank driver selects the
// in-memory backend.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverBolt:
		if opts.Path == "" {
			return nil, fmt.Errorf("bolt path is required")
		}
		return OpenBolt(opts.Path)
	case DriverRedis:
		return NewRedis(ctx, opts.Redis)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
