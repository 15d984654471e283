package config

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CFG_INT", "42")
	t.Setenv("CFG_BAD_INT", "forty")
	t.Setenv("CFG_BOOL", "yes")
	t.Setenv("CFG_DURATIONS", "1s, 2m,,")
	t.Setenv("CFG_BAD_DURATIONS", "1s,later")

	if got := getEnvInt("CFG_INT", 1); got != 42 {
		t.Fatalf("getEnvInt: expect 42, got %d", got)
	}
	if got := getEnvInt("CFG_BAD_INT", 7); got != 7 {
		t.Fatalf("getEnvInt fallback: expect 7, got %d", got)
	}
	if !getEnvBool("CFG_BOOL", false) {
		t.Fatal("getEnvBool: expect true")
	}
	got := getEnvDurationList("CFG_DURATIONS", nil)
	if len(got) != 2 || got[0] != time.Second || got[1] != 2*time.Minute {
		t.Fatalf("getEnvDurationList: unexpected %v", got)
	}
	t.Setenv("CFG_LIST", " https://a.example ,,https://b.example")
	if got := getEnvList("CFG_LIST", nil); len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("getEnvList: unexpected %v", got)
	}
	fallback := []time.Duration{time.Hour}
	if got := getEnvDurationList("CFG_BAD_DURATIONS", fallback); len(got) != 1 || got[0] != time.Hour {
		t.Fatalf("getEnvDurationList fallback: unexpected %v", got)
	}
}

func TestInitConfigDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", t.TempDir()+"/missing.env")
	t.Setenv("BASE_URL", "https://paste.example/")
	t.Setenv("STORAGE_DRIVER", "S3")
	InitConfig()

	if AppConfig.BaseURL != "https://paste.example" {
		t.Fatalf("expect trimmed base url, got %q", AppConfig.BaseURL)
	}
	if AppConfig.DefaultExpiry != 240*time.Hour {
		t.Fatalf("expect 10 day default expiry, got %v", AppConfig.DefaultExpiry)
	}
	if AppConfig.SweepRearm {
		t.Fatal("sweep re-arm should be off by default")
	}
	if AppConfig.Storage.Driver != "s3" {
		t.Fatalf("expect lowercased driver, got %q", AppConfig.Storage.Driver)
	}
	if AppConfig.Storage.SignedURLTTL != time.Hour {
		t.Fatalf("expect 1h signed url ttl, got %v", AppConfig.Storage.SignedURLTTL)
	}
	if AppConfig.ShortCodeMaxAttempts != 5 {
		t.Fatalf("expect 5 mint attempts, got %d", AppConfig.ShortCodeMaxAttempts)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	log.Info("hidden")
	log.Warn("shown", "file_id", "abc")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"file_id":"abc"`) {
		t.Fatalf("expect json output, got %s", out)
	}
}
