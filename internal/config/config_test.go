package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("ADMIN_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.AdminSecret != "" {
		t.Fatalf("expected empty ADMIN_SECRET when unset, got %q", cfg.AdminSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_TIMEZONE", "")
	t.Setenv("PENDING_ACTION_TTL_SECONDS", "abc")
	t.Setenv("ELECTRONIC_PAYMENT_METHODS", "")
	t.Setenv("PORT", "")

	cfg := Load()
	if cfg.StoreTimezone != "America/Bogota" {
		t.Fatalf("unexpected default timezone %q", cfg.StoreTimezone)
	}
	if cfg.PendingActionTTLSeconds != 120 {
		t.Fatalf("invalid TTL must fall back to 120, got %d", cfg.PendingActionTTLSeconds)
	}
	if len(cfg.ElectronicPaymentMethods) != 0 {
		t.Fatalf("expected no extra methods, got %v", cfg.ElectronicPaymentMethods)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadParsesPaymentMethodList(t *testing.T) {
	t.Setenv("ELECTRONIC_PAYMENT_METHODS", " daviplata, ,bre-b ,")

	cfg := Load()
	if len(cfg.ElectronicPaymentMethods) != 2 ||
		cfg.ElectronicPaymentMethods[0] != "daviplata" ||
		cfg.ElectronicPaymentMethods[1] != "bre-b" {
		t.Fatalf("unexpected methods %v", cfg.ElectronicPaymentMethods)
	}
}
