package config

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Fatalf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.JWTIssuer != "ledger-service" {
		t.Fatalf("JWTIssuer = %q, want ledger-service", cfg.JWTIssuer)
	}
	if cfg.JWTTTLMinutes != 30 {
		t.Fatalf("JWTTTLMinutes = %d, want 30", cfg.JWTTTLMinutes)
	}
	if cfg.TransferFeeRate != 100 || cfg.TransferFeeFloor != 100 || cfg.TransferFeeCap != 5000 {
		t.Fatalf("transfer fee defaults = %d/%d/%d, want 100/100/5000",
			cfg.TransferFeeRate, cfg.TransferFeeFloor, cfg.TransferFeeCap)
	}
	if cfg.PaymentFeePerMil != 5 || cfg.PaymentFeeMinimum != 50 {
		t.Fatalf("payment fee defaults = %d/%d, want 5/50", cfg.PaymentFeePerMil, cfg.PaymentFeeMinimum)
	}
	if cfg.RequestLimitPerMinute != 50 {
		t.Fatalf("RequestLimitPerMinute = %d, want 50", cfg.RequestLimitPerMinute)
	}
	if cfg.BalanceCacheTTLSec != 300 {
		t.Fatalf("BalanceCacheTTLSec = %d, want 300", cfg.BalanceCacheTTLSec)
	}
	if cfg.RedisRateLimitPrefix != "ledger:rate_limit" {
		t.Fatalf("RedisRateLimitPrefix = %q", cfg.RedisRateLimitPrefix)
	}
	if cfg.CodeCleanupSchedule != "0 3 * * *" {
		t.Fatalf("CodeCleanupSchedule = %q", cfg.CodeCleanupSchedule)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TRANSFER_FEE_CAP", "10000")
	t.Setenv("REQUEST_LIMIT_PER_MINUTE", "25")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.TransferFeeCap != 10000 {
		t.Fatalf("TransferFeeCap = %d, want 10000", cfg.TransferFeeCap)
	}
	if cfg.RequestLimitPerMinute != 25 {
		t.Fatalf("RequestLimitPerMinute = %d, want 25", cfg.RequestLimitPerMinute)
	}
}
