// Package vaultsecrets retrieves terminal-bridge connection credentials
// (login, password, server) from HashiCorp Vault, degrading to a local
// in-memory cache when Vault is disabled -- the same shape as the
// teacher's own API-key vault client, adapted from exchange API keys to
// bridge login credentials.
package vaultsecrets

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"

	"marketanalysis/internal/config"
)

// Credentials is the terminal-bridge login triple.
type Credentials struct {
	Login    int64
	Password string
	Server   string
}

// Client wraps a Vault KV client, with an in-memory cache that is the sole
// store when Vault is disabled.
type Client struct {
	client *api.Client
	cfg    config.VaultConfig

	mu    sync.RWMutex
	cache map[string]*Credentials
}

// New constructs a Client. When cfg.Enabled is false, it returns a
// cache-only client that never dials Vault -- matching the teacher's
// disabled-vault branch in NewClient.
func New(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{cfg: cfg, cache: make(map[string]*Credentials)}, nil
	}

	vc := api.DefaultConfig()
	vc.Address = cfg.Address
	client, err := api.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("vaultsecrets: create client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, cfg: cfg, cache: make(map[string]*Credentials)}, nil
}

// Store writes credentials for accountKey, updating the cache either way.
func (c *Client) Store(ctx context.Context, accountKey string, creds Credentials) error {
	if !c.cfg.Enabled {
		c.mu.Lock()
		c.cache[accountKey] = &creds
		c.mu.Unlock()
		return nil
	}

	path := c.secretPath(accountKey)
	_, err := c.client.Logical().WriteWithContext(ctx, path, map[string]any{
		"data": map[string]any{
			"login":    creds.Login,
			"password": creds.Password,
			"server":   creds.Server,
		},
	})
	if err != nil {
		return fmt.Errorf("vaultsecrets: store %s: %w", accountKey, err)
	}

	c.mu.Lock()
	c.cache[accountKey] = &creds
	c.mu.Unlock()
	return nil
}

// Get retrieves credentials for accountKey, cache-first.
func (c *Client) Get(ctx context.Context, accountKey string) (*Credentials, error) {
	c.mu.RLock()
	cached, ok := c.cache[accountKey]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if !c.cfg.Enabled {
		return nil, fmt.Errorf("vaultsecrets: no credentials cached for %s and vault is disabled", accountKey)
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath(accountKey))
	if err != nil {
		return nil, fmt.Errorf("vaultsecrets: read %s: %w", accountKey, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vaultsecrets: no credentials found for %s", accountKey)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("vaultsecrets: malformed secret for %s", accountKey)
	}

	creds := &Credentials{
		Login:    asInt64(data["login"]),
		Password: asString(data["password"]),
		Server:   asString(data["server"]),
	}

	c.mu.Lock()
	c.cache[accountKey] = creds
	c.mu.Unlock()
	return creds, nil
}

// ClearCache drops every cached credential.
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]*Credentials)
	c.mu.Unlock()
}

// Health reports whether Vault is reachable and unsealed. Always nil when
// Vault is disabled.
func (c *Client) Health(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vaultsecrets: health check: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vaultsecrets: vault is sealed")
	}
	return nil
}

func (c *Client) secretPath(accountKey string) string {
	return fmt.Sprintf("%s/data/%s", c.cfg.Path, accountKey)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case string:
		var out int64
		fmt.Sscanf(n, "%d", &out)
		return out
	default:
		return 0
	}
}
