package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/tokentables/internal/config"
	"github.com/yndnr/tokentables/internal/core/domain"
	"github.com/yndnr/tokentables/internal/core/service"
	"github.com/yndnr/tokentables/internal/infra/confloader"
	"github.com/yndnr/tokentables/internal/storage"
	"github.com/yndnr/tokentables/internal/telemetry/logger"
)

// runApp runs the CLI with args and returns its standard output.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"tokentables"}, args...))
	return out.String(), err
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokentables.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestApp(t *testing.T) {
	app := App()
	if app.Name != "tokentables" {
		t.Errorf("Name = %q", app.Name)
	}

	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"serve", "token", "config", "store", "version"} {
		if !names[want] {
			t.Errorf("missing command %s", want)
		}
	}
}

func TestTokenCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantKind string
		wantLen  int
	}{
		{"session prefix", []string{"--prefix", domain.SessionPrefix, "-g", "hex"}, "session", len(domain.SessionPrefix) + 32},
		{"transition prefix", []string{"--prefix", "sword-", "-g", "ulid"}, "transition", len("sword-") + 26},
		{"no prefix", []string{"-g", "uuid"}, "transition", 36},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runApp(t, append([]string{"-o", "json", "token", "-n", "3"}, tt.args...)...)
			if err != nil {
				t.Fatalf("token error = %v", err)
			}

			var rows []tokenRow
			if err := json.Unmarshal([]byte(out), &rows); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, out)
			}
			if len(rows) != 3 {
				t.Fatalf("got %d tokens, want 3", len(rows))
			}
			seen := make(map[string]bool)
			for _, r := range rows {
				if r.Kind != tt.wantKind {
					t.Errorf("kind = %q, want %q", r.Kind, tt.wantKind)
				}
				if len(r.Token) != tt.wantLen {
					t.Errorf("token %q has length %d, want %d", r.Token, len(r.Token), tt.wantLen)
				}
				seen[r.Token] = true
			}
			if len(seen) != 3 {
				t.Errorf("tokens not unique: %v", rows)
			}
		})
	}
}

func TestTokenCommand_Errors(t *testing.T) {
	if _, err := runApp(t, "token", "-g", "sequence"); err == nil {
		t.Error("unknown generator should fail")
	}
	if _, err := runApp(t, "token", "-n", "0"); err == nil {
		t.Error("zero count should fail")
	}
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	t.Setenv("TOKTABLES_SECURITY__PASSPHRASE", "correct horse battery")

	out, err := runApp(t, "-o", "json", "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.Contains(out, "correct horse battery") {
		t.Error("passphrase printed in clear")
	}
	if !strings.Contains(out, "co*****************ry") {
		t.Errorf("masked passphrase missing:\n%s", out)
	}
}

func TestConfigValidate(t *testing.T) {
	path := writeConfigFile(t, "tables:\n  partitions: 4\n")

	out, err := runApp(t, "-c", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate error = %v", err)
	}
	if !strings.Contains(out, "configuration OK") {
		t.Errorf("output = %q", out)
	}

	if _, err := runApp(t, "--log-level", "trace", "config", "validate"); err == nil {
		t.Error("invalid log level should fail validation")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, "-o", "json", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, `"go_version"`) {
		t.Errorf("output = %s", out)
	}
}

func TestStoreCommands_Badger(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, "storage:\n  engine: badger\n  dir: "+dir+"\n")

	// Seed the store, then close it so the commands can open it.
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Engine = storage.EngineBadger
	cfg.Storage.Dir = dir
	kv, err := storage.Open(cfg.StorageEngine(), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	store, err := storage.NewTableStore(kv, []byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []domain.SessionToken{"user+a", "user+b"} {
		if _, err := store.SetSessionKeyValue(ctx, s, "owner"); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.SetKeyValue(ctx, "sword", "blade"); err != nil {
		t.Fatal(err)
	}
	if err := kv.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := runApp(t, "-c", path, "-o", "json", "store", "stats")
	if err != nil {
		t.Fatalf("store stats error = %v", err)
	}
	var stats storeStatsView
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if stats.Engine != storage.EngineBadger || stats.Sessions != 2 || stats.Verifiers != 2 || stats.Values != 1 {
		t.Errorf("stats = %+v", stats)
	}

	out, err = runApp(t, "-c", path, "store", "sessions", "--limit", "1")
	if err != nil {
		t.Fatalf("store sessions error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "user+a") || !strings.Contains(lines[1], "true") {
		t.Errorf("sessions output = %q", out)
	}

	out, err = runApp(t, "-c", path, "store", "gc")
	if err != nil {
		t.Fatalf("store gc error = %v", err)
	}
	if !strings.Contains(out, "gc completed") {
		t.Errorf("gc output = %q", out)
	}
}

func newTestDaemon(t *testing.T, cfg *config.Config, loader *confloader.Loader) *daemon {
	t.Helper()
	d, err := newDaemon(context.Background(), cfg, loader, logger.Default())
	if err != nil {
		t.Fatalf("newDaemon() error = %v", err)
	}
	return d
}

func TestDaemon_ServesMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = 2 * time.Second
	d := newTestDaemon(t, cfg, confloader.NewLoader())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.run(ctx) }()

	addr := d.metricsAddr()
	if addr == "" {
		cancel()
		t.Fatal("metrics listener not bound")
	}

	err := d.pool.Do(ctx, "tenant-a", func(ctx context.Context, tables *service.TokenTables) error {
		_, err := tables.AddSession(ctx, "user+s1", "alice", "tok1", false)
		return err
	})
	if err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	resp, err := http.Get("http://" + addr + cfg.Metrics.Path)
	if err != nil {
		cancel()
		t.Fatalf("GET metrics error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	for _, want := range []string{
		"tokentables_sessions_added_total 1",
		`tokentables_table_entries{table="sessions"} 1`,
		"tokentables_storage_up 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestDaemon_Reload(t *testing.T) {
	path := writeConfigFile(t, "tables:\n  session_timeout: 1m\n  partitions: 2\n")
	loader := confloader.NewLoader(confloader.WithConfigFile(path))
	cfg, err := config.Load(loader)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	d := newTestDaemon(t, cfg, loader)
	t.Cleanup(func() { d.kv.Close() })

	if err := os.WriteFile(path, []byte("tables:\n  session_timeout: 5m\n  token_timeout: 30s\n"), 0644); err != nil {
		t.Fatal(err)
	}
	d.reload()

	err = d.pool.Each(func(tables *service.TokenTables) error {
		if got := tables.GeneralSessionTimeout(); got != 5*time.Minute {
			t.Errorf("GeneralSessionTimeout() = %v, want 5m", got)
		}
		if got := tables.GeneralTokenTimeout(); got != 30*time.Second {
			t.Errorf("GeneralTokenTimeout() = %v, want 30s", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// An invalid file is rejected and leaves the tables as they were.
	if err := os.WriteFile(path, []byte("tables:\n  session_timeout: -1m\n"), 0644); err != nil {
		t.Fatal(err)
	}
	d.reload()
	d.pool.Each(func(tables *service.TokenTables) error {
		if got := tables.GeneralSessionTimeout(); got != 5*time.Minute {
			t.Errorf("GeneralSessionTimeout() = %v after rejected reload", got)
		}
		return nil
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain", errors.New("boom"), 1},
		{"argument", domain.ErrMissingArgument.WithDetails("session"), 2},
		{"wrapped storage", fmt.Errorf("stats: %w", domain.ErrStorageError.WithCause(io.EOF)), 3},
		{"not found", domain.ErrSessionNotFound, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
