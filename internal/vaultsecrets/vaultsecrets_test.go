package vaultsecrets

import (
	"context"
	"testing"

	"marketanalysis/internal/config"
)

func TestDisabledVaultStoresAndGetsFromCache(t *testing.T) {
	c, err := New(config.VaultConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	creds := Credentials{Login: 12345, Password: "hunter2", Server: "Broker-Demo"}
	if err := c.Store(context.Background(), "acct-1", creds); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := c.Get(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got != creds {
		t.Fatalf("expected %+v, got %+v", creds, *got)
	}
}

func TestDisabledVaultMissingKeyErrors(t *testing.T) {
	c, err := New(config.VaultConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Get(context.Background(), "does-not-exist"); err == nil {
		t.Fatal("expected an error for an uncached key with vault disabled")
	}
}

func TestHealthIsNilWhenDisabled(t *testing.T) {
	c, err := New(config.VaultConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("expected nil health check when disabled, got %v", err)
	}
}

func TestClearCacheRemovesEntries(t *testing.T) {
	c, _ := New(config.VaultConfig{Enabled: false})
	_ = c.Store(context.Background(), "acct-1", Credentials{Login: 1, Server: "s"})
	c.ClearCache()
	if _, err := c.Get(context.Background(), "acct-1"); err == nil {
		t.Fatal("expected cache to be empty after ClearCache")
	}
}
