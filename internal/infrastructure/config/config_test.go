package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.ShortCap.Limit != 60 || cfg.ShortCap.Window != time.Minute {
		t.Errorf("ShortCap = %+v", cfg.ShortCap)
	}
	if cfg.LongCap.Limit != 1000 || cfg.LongCap.Window != time.Hour {
		t.Errorf("LongCap = %+v", cfg.LongCap)
	}
	if cfg.WindowRetention != 2*time.Hour {
		t.Errorf("WindowRetention = %v", cfg.WindowRetention)
	}
	if cfg.LogRetention != 30*24*time.Hour {
		t.Errorf("LogRetention = %v", cfg.LogRetention)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
	if cfg.AuditBuffer != 1024 {
		t.Errorf("AuditBuffer = %d", cfg.AuditBuffer)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("RATE_LIMIT_SHORT", "5")
	t.Setenv("RATE_LIMIT_SHORT_WINDOW_SECONDS", "10")
	t.Setenv("JWT_TTL_MINUTES", "15")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ShortCap.Limit != 5 || cfg.ShortCap.Window != 10*time.Second {
		t.Errorf("ShortCap = %+v", cfg.ShortCap)
	}
	if cfg.JWTTTL != 15*time.Minute {
		t.Errorf("JWTTTL = %v", cfg.JWTTTL)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
}

func TestLoad_Rejections(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		if _, err := Load(); err == nil {
			t.Error("expected error for empty JWT_SECRET")
		}
	})

	t.Run("non-positive limit", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		t.Setenv("RATE_LIMIT_SHORT", "0")
		if _, err := Load(); err == nil {
			t.Error("expected error for zero rate limit")
		}
	})
}

func TestGetint_BadValueFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	if got := getint("SOME_INT", 7); got != 7 {
		t.Errorf("getint = %d, want fallback 7", got)
	}
}
