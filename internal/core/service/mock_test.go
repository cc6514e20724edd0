package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/tokentables/internal/core/domain"
)

var errInjected = errors.New("injected storage failure")

// mockDB is an in-memory DB with per-operation failure injection.
type mockDB struct {
	secrets map[domain.SessionToken]domain.Hash
	hashes  map[domain.Hash]domain.Ucwid
	values  map[string]string
	fail    map[string]error
	gets    int
	seq     int
}

func newMockDB() *mockDB {
	return &mockDB{
		secrets: make(map[domain.SessionToken]domain.Hash),
		hashes:  make(map[domain.Hash]domain.Ucwid),
		values:  make(map[string]string),
		fail:    make(map[string]error),
	}
}

func (m *mockDB) SetSessionKeyValue(ctx context.Context, session domain.SessionToken, owner domain.Ucwid) (domain.Hash, error) {
	if err := m.fail["set_session_key_value"]; err != nil {
		return "", err
	}
	m.seq++
	hash := domain.Hash(fmt.Sprintf("h%d", m.seq))
	if prev, ok := m.secrets[session]; ok {
		delete(m.hashes, prev)
	}
	m.secrets[session] = hash
	m.hashes[hash] = owner
	return hash, nil
}

func (m *mockDB) DelSessionKeyValue(ctx context.Context, session domain.SessionToken) (bool, error) {
	if err := m.fail["del_session_key_value"]; err != nil {
		return false, err
	}
	hash, ok := m.secrets[session]
	if !ok {
		return false, nil
	}
	delete(m.secrets, session)
	delete(m.hashes, hash)
	return true, nil
}

func (m *mockDB) SetKeyValue(ctx context.Context, key string, value string) error {
	if err := m.fail["set_key_value"]; err != nil {
		return err
	}
	m.values[key] = value
	return nil
}

func (m *mockDB) GetKeyValue(ctx context.Context, key string) (string, bool, error) {
	m.gets++
	if err := m.fail["get_key_value"]; err != nil {
		return "", false, err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockDB) DelKeyValue(ctx context.Context, key string) error {
	if err := m.fail["del_key_value"]; err != nil {
		return err
	}
	delete(m.values, key)
	return nil
}

func (m *mockDB) SessionVerifier(ctx context.Context, session domain.SessionToken) (domain.Hash, bool, error) {
	if err := m.fail["session_verifier"]; err != nil {
		return "", false, err
	}
	hash, ok := m.secrets[session]
	return hash, ok, nil
}

func (m *mockDB) CheckHash(ctx context.Context, hash domain.Hash, owner domain.Ucwid) (bool, error) {
	if err := m.fail["check_hash"]; err != nil {
		return false, err
	}
	got, ok := m.hashes[hash]
	return ok && got == owner, nil
}

// recordingMetrics counts events.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int)}
}

func (r *recordingMetrics) inc(name string) {
	r.mu.Lock()
	r.counts[name]++
	r.mu.Unlock()
}

func (r *recordingMetrics) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func (r *recordingMetrics) SessionAdded()             { r.inc("session_added") }
func (r *recordingMetrics) SessionDestroyed(s string) { r.inc("session_destroyed_" + s) }
func (r *recordingMetrics) TokenAdded()               { r.inc("token_added") }
func (r *recordingMetrics) TokenDestroyed(s string)   { r.inc("token_destroyed_" + s) }
func (r *recordingMetrics) TokenOrphaned()            { r.inc("token_orphaned") }
func (r *recordingMetrics) TokenTransferred()         { r.inc("token_transferred") }
func (r *recordingMetrics) StorageError(op string)    { r.inc("storage_error_" + op) }

func (r *recordingMetrics) SweepCompleted(time.Duration, int, int) { r.inc("sweep") }

// testConfig uses whole-second timers so sweeps are easy to count.
func testConfig() *Config {
	return &Config{
		SessionTimeout: 10 * time.Second,
		TokenTimeout:   0,
		ChopInterval:   time.Second,
	}
}

func newTestTables(t *testing.T, opts ...Option) (*TokenTables, *mockDB) {
	t.Helper()
	db := newMockDB()
	return New(db, testConfig(), opts...), db
}

func mustAddSession(t *testing.T, tt *TokenTables, session domain.SessionToken, owner domain.Ucwid, bound domain.TransitionToken, shared bool) domain.Hash {
	t.Helper()
	hash, err := tt.AddSession(context.Background(), session, owner, bound, shared)
	if err != nil {
		t.Fatalf("AddSession(%s) error = %v", session, err)
	}
	return hash
}

func assertTokens(t *testing.T, name string, got []domain.TransitionToken, want ...domain.TransitionToken) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s = %v, want %v", name, got, want)
		}
	}
}
