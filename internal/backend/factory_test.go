package backend

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"expenses/internal/config"
	applog "expenses/internal/log"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: &bytes.Buffer{}})
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:  "postgres",
		SQLiteDBPath: "x.db",
		DatabaseURL:  "postgres://u@h/db",
		DataDir:      "seed",
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != PostgresBackend || got.DatabaseURL != cfg.DatabaseURL || got.DataDirectory != "seed" {
		t.Errorf("FromAppConfig() = %+v", got)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 3 || got[0] != "sqlite" || got[1] != "postgres" || got[2] != "memory" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestCreateMemoryBackendSeedsOwners(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_owners.txt"), []byte("alice\nbob\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := NewFactory(quietLogger()).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if result.Cleanup != nil {
		t.Error("memory backend needs no cleanup")
	}
	ok, err := result.Store.OwnerExists(context.Background(), "bob")
	if err != nil || !ok {
		t.Errorf("OwnerExists(bob) = %v, %v", ok, err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "expenses.db")

	result, err := NewFactory(quietLogger()).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	t.Cleanup(func() { _ = result.Cleanup() })

	if err := result.Store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: PostgresBackend})
	if err == nil {
		t.Fatal("expected error")
	}
}
