package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/layout"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
	ttl, err := cfg.Server.TTL()
	if err != nil || ttl != 7*24*time.Hour {
		t.Fatalf("TTL = %v, %v; want 168h", ttl, err)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("Redis.Addr = %q, want empty", cfg.Redis.Addr)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
text:
  fontSize: 11
  fontFamily: times
  pageSize: Letter
numbering:
  position: top-center
  fontSize: 9
  startPage: 2
server:
  addr: "127.0.0.1:9000"
  tokenTTL: 1h
redis:
  addr: localhost:6379
  db: 2
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	wantText := layout.TextOptions{FontSize: 11, FontFamily: fonts.Times, PageSize: layout.PageLetter, Margin: 20}
	if diff := cmp.Diff(wantText, cfg.Text); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
	wantNum := document.PageNumberSpec{Position: document.TopCenter, FontSize: 9, StartPage: 2}
	if diff := cmp.Diff(wantNum, cfg.Numbering); diff != "" {
		t.Errorf("numbering mismatch (-want +got):\n%s", diff)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.MaxUploadMB != 64 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"unknown field", "text:\n  colour: red\n", ErrConfigParse},
		{"bad yaml", "text: [\n", ErrConfigParse},
		{"bad font", "text:\n  fontFamily: comic\n", ErrInvalidConfig},
		{"bad position", "numbering:\n  position: middle\n", ErrInvalidConfig},
		{"bad ttl", "server:\n  tokenTTL: soon\n", ErrInvalidConfig},
		{"zero upload", "server:\n  maxUploadMB: -1\n", ErrInvalidConfig},
		{"too large", strings.Repeat("#", MaxInputSize+1), ErrConfigParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); !errors.Is(err, tt.want) {
				t.Fatalf("Parse error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
	path := filepath.Join(t.TempDir(), "quire.yaml")
	if err := os.WriteFile(path, []byte("server:\n  jwtSecret: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvJWTSecret, "from-env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, want value from environment", cfg.Server.JWTSecret)
	}
}
