package cloud

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// clientKey identifies one cached SDK client.
type clientKey struct {
	service string
	region  string
}

// ClientCache holds SDK clients keyed by (service, region). Construction is
// lazy and mutex-guarded; no lock is held during an RPC. The cache is
// process-wide and torn down explicitly at shutdown.
type ClientCache struct {
	mu      sync.Mutex
	clients map[clientKey]any
	configs map[string]aws.Config
	loader  func(ctx context.Context, region string) (aws.Config, error)
}

// NewClientCache creates an empty cache using the default AWS config loader.
func NewClientCache() *ClientCache {
	return &ClientCache{
		clients: make(map[clientKey]any),
		configs: make(map[string]aws.Config),
		loader: func(ctx context.Context, region string) (aws.Config, error) {
			return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		},
	}
}

// configFor returns (building once) the aws.Config for a region.
// Callers must hold c.mu.
func (c *ClientCache) configFor(ctx context.Context, region string) (aws.Config, error) {
	if cfg, ok := c.configs[region]; ok {
		return cfg, nil
	}
	cfg, err := c.loader(ctx, region)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config for %s: %w", region, err)
	}
	c.configs[region] = cfg
	return cfg, nil
}

// get returns the cached client for (service, region), constructing it with
// build on first use.
func (c *ClientCache) get(ctx context.Context, service, region string, build func(aws.Config) any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := clientKey{service: service, region: region}
	if client, ok := c.clients[key]; ok {
		return client, nil
	}
	cfg, err := c.configFor(ctx, region)
	if err != nil {
		return nil, err
	}
	client := build(cfg)
	c.clients[key] = client
	return client, nil
}

// Reset drops every cached client and config (explicit teardown).
func (c *ClientCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients = make(map[clientKey]any)
	c.configs = make(map[string]aws.Config)
}
