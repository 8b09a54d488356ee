package main

import (
	"context"
	"testing"

	"papelpos/backend/internal/config"
	"papelpos/backend/internal/store"
	"papelpos/backend/internal/store/memory"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", AdminSecret: "admin123"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}

	err = validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", AdminSecret: "Admin123"})
	if err == nil {
		t.Fatalf("expected common admin secret to be rejected")
	}

	err = validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", AdminSecret: "zzzzzzzzzz"})
	if err == nil {
		t.Fatalf("expected repeated-character admin secret to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", AdminSecret: "luna-nueva-2026"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestOpenStoreFallsBackToMemory(t *testing.T) {
	kv, closers, err := openStore(context.Background(), config.Config{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, ok := kv.(*memory.Store); !ok {
		t.Fatalf("expected in-memory store, got %T", kv)
	}
	if len(closers) != 0 {
		t.Fatalf("memory store needs no closers")
	}
}

func TestOpenStoreUsesDataDir(t *testing.T) {
	dir := t.TempDir()
	kv, _, err := openStore(context.Background(), config.Config{DataDir: dir})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := kv.Save(context.Background(), store.SalesKey, []byte(`[]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := kv.Load(context.Background(), store.SalesKey); err != nil || !ok {
		t.Fatalf("expected saved key, ok=%t err=%v", ok, err)
	}
}
