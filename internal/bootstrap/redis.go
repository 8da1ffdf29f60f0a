package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/serm-lab/admin-console/config"
)

const defaultRedisPingTimeout = 5 * time.Second

// RedisConnConfig contains configuration for the Redis connection backing
// the redis credential backend.
type RedisConnConfig struct {
	Redis       config.RedisConfig
	Logger      *slog.Logger
	PingTimeout time.Duration
}

// ConnectRedis builds a client for the configured topology and verifies it
// with a PING before handing it out.
//
//nolint:ireturn // the topology decides between single, sentinel and cluster clients.
func ConnectRedis(cfg RedisConnConfig) (redis.UniversalClient, error) {
	opts, desc, err := universalOptions(cfg.Redis)
	if err != nil {
		return nil, err
	}
	client := redis.NewUniversalClient(opts)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultRedisPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis %s: %w", desc, pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "target", desc)
	}
	return client, nil
}

// universalOptions maps RedisConfig onto go-redis universal options. The
// returned description never carries credentials.
func universalOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	switch {
	case cfg.UseCluster:
		return clusterOptions(cfg)
	case cfg.UseSentinel:
		nodes := compactAddrs(cfg.SentinelNodes)
		if len(nodes) == 0 {
			return nil, "", errors.New("redis sentinel requires at least one sentinel node")
		}
		if strings.TrimSpace(cfg.SentinelMasterName) == "" {
			return nil, "", errors.New("redis sentinel requires a master name")
		}
		return &redis.UniversalOptions{
			Addrs:            nodes,
			MasterName:       cfg.SentinelMasterName,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
		}, "sentinel:" + cfg.SentinelMasterName, nil
	default:
		uri := strings.TrimSpace(cfg.URI)
		if uri == "" {
			return nil, "", errors.New("redis requires a URI")
		}
		if !isRedisURL(uri) {
			return &redis.UniversalOptions{Addrs: []string{uri}, Password: cfg.Password}, uri, nil
		}
		parsed, err := redis.ParseURL(uri)
		if err != nil {
			return nil, "", fmt.Errorf("parse redis url: %w", err)
		}
		password := parsed.Password
		if password == "" {
			password = cfg.Password
		}
		return &redis.UniversalOptions{
			Addrs:     []string{parsed.Addr},
			Username:  parsed.Username,
			Password:  password,
			DB:        parsed.DB,
			TLSConfig: parsed.TLSConfig,
		}, parsed.Addr, nil
	}
}

func clusterOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	nodes := compactAddrs(cfg.ClusterNodes)
	opts := &redis.UniversalOptions{IsClusterMode: true, Password: cfg.Password}

	// A cluster without explicit nodes is seeded from the URI.
	if len(nodes) == 0 && strings.TrimSpace(cfg.URI) != "" {
		uri := strings.TrimSpace(cfg.URI)
		if !isRedisURL(uri) {
			nodes = []string{uri}
		} else {
			parsed, err := redis.ParseURL(uri)
			if err != nil {
				return nil, "", fmt.Errorf("parse redis cluster url: %w", err)
			}
			nodes = []string{parsed.Addr}
			opts.Username = parsed.Username
			opts.TLSConfig = parsed.TLSConfig
			if parsed.Password != "" {
				opts.Password = parsed.Password
			}
		}
	}
	if len(nodes) == 0 {
		return nil, "", errors.New("redis cluster requires at least one address")
	}
	opts.Addrs = nodes
	return opts, "cluster:" + strings.Join(nodes, ","), nil
}

func compactAddrs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}
