package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yndnr/tokentables/internal/core/domain"
)

func TestAddToken(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string verbatim", "plain", "plain"},
		{"object encoded", map[string]any{"a": 1}, `{"a":1}`},
		{"number encoded", 3, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			tables, db := newTestTables(t)

			if err := tables.AddToken(ctx, "tk", tt.value); err != nil {
				t.Fatalf("AddToken() error = %v", err)
			}
			if db.values["tk"] != tt.want {
				t.Errorf("stored = %q, want %q", db.values["tk"], tt.want)
			}
			got, ok, err := tables.TransitionTokenIsActive(ctx, "tk")
			if err != nil || !ok || got != tt.want {
				t.Errorf("TransitionTokenIsActive() = %q, %v, %v", got, ok, err)
			}
			if owner, ok := tables.LookupOwner(domain.TransitionKey("tk")); ok {
				t.Errorf("plain token should be unowned, got %q", owner)
			}
		})
	}
}

func TestAddToken_Errors(t *testing.T) {
	ctx := context.Background()
	tables, db := newTestTables(t)

	if err := tables.AddToken(ctx, "", "v"); !errors.Is(err, domain.ErrMissingArgument) {
		t.Errorf("AddToken(empty) error = %v, want ErrMissingArgument", err)
	}

	db.fail["set_key_value"] = errInjected
	if err := tables.AddToken(ctx, "tk", "v"); !errors.Is(err, domain.ErrStorageError) {
		t.Errorf("AddToken() error = %v, want ErrStorageError", err)
	}
	if _, ok := tables.tokenValues["tk"]; ok {
		t.Error("failed write should not be cached")
	}
}

func TestTransitionTokenIsActive_StorageFallback(t *testing.T) {
	ctx := context.Background()
	db := newMockDB()
	writer := New(db, testConfig())
	if err := writer.AddToken(ctx, "tk", "value"); err != nil {
		t.Fatalf("AddToken() error = %v", err)
	}

	reader := New(db, testConfig())
	db.gets = 0

	for i := 0; i < 3; i++ {
		got, ok, err := reader.TransitionTokenIsActive(ctx, "tk")
		if err != nil || !ok || got != "value" {
			t.Fatalf("TransitionTokenIsActive() = %q, %v, %v", got, ok, err)
		}
	}
	if db.gets != 1 {
		t.Errorf("storage consulted %d times, want 1", db.gets)
	}
	if _, ok := reader.GetTokenTimeout("tk"); !ok {
		t.Error("backfill should install a timing record")
	}

	if _, ok, err := reader.TransitionTokenIsActive(ctx, "unknown"); ok || err != nil {
		t.Errorf("unknown token = %v, %v", ok, err)
	}
	if _, ok, err := reader.TransitionTokenIsActive(ctx, ""); ok || err != nil {
		t.Errorf("empty token = %v, %v", ok, err)
	}

	db.fail["get_key_value"] = errInjected
	if _, _, err := reader.TransitionTokenIsActive(ctx, "other"); !errors.Is(err, domain.ErrStorageError) {
		t.Errorf("TransitionTokenIsActive() error = %v, want ErrStorageError", err)
	}
}

func TestDestroyToken_LeavesSessionAlive(t *testing.T) {
	ctx := context.Background()
	tables, db := newTestTables(t)
	mustAddSession(t, tables, "user+s1", "ownerA", "t1", false)

	if err := tables.DestroyToken(ctx, "t1"); err != nil {
		t.Fatalf("DestroyToken() error = %v", err)
	}

	if tables.sessionTokens["user+s1"].Has("t1") {
		t.Error("t1 still in session sets")
	}
	if _, ok := db.values["t1"]; ok {
		t.Error("t1 still in storage")
	}
	if got := tables.FromToken("t1"); got != "" {
		t.Errorf("FromToken(t1) = %q, want empty", got)
	}
	if owner, _ := tables.LookupOwner(domain.SessionKey("user+s1")); owner != "ownerA" {
		t.Error("session should survive token destruction")
	}
}

func TestDestroyToken_StorageFailure(t *testing.T) {
	ctx := context.Background()
	tables, db := newTestTables(t)
	if err := tables.AddToken(ctx, "tk", "v"); err != nil {
		t.Fatalf("AddToken() error = %v", err)
	}
	db.fail["del_key_value"] = errInjected

	if err := tables.DestroyToken(ctx, "tk"); !errors.Is(err, domain.ErrStorageError) {
		t.Errorf("DestroyToken() error = %v, want ErrStorageError", err)
	}
	if _, ok := tables.GetTokenTimeout("tk"); ok {
		t.Error("in-memory records should be erased despite storage failure")
	}
}

func TestReloadTokenInfo(t *testing.T) {
	ctx := context.Background()
	db := newMockDB()
	first := New(db, testConfig())
	mustAddSession(t, first, "user+s1", "ownerA", "", false)
	if err := first.AddTransferableToken(ctx, "t2", map[string]any{"_price": 4.5}, "ownerA"); err != nil {
		t.Fatalf("AddTransferableToken() error = %v", err)
	}
	if err := first.AddToken(ctx, "plain", "v"); err != nil {
		t.Fatalf("AddToken() error = %v", err)
	}

	second := New(db, testConfig())

	tests := []struct {
		name         string
		token        domain.TransitionToken
		wantOK       bool
		transferable bool
		owner        domain.Ucwid
	}{
		{"transferable", "t2", true, true, "ownerA"},
		{"plain value", "plain", true, false, ""},
		{"missing", "none", false, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := second.ReloadTokenInfo(ctx, tt.token)
			if err != nil || ok != tt.wantOK {
				t.Fatalf("ReloadTokenInfo() = %v, %v, want %v", ok, err, tt.wantOK)
			}
			if got := second.TokenIsTransferable(tt.token); got != tt.transferable {
				t.Errorf("TokenIsTransferable() = %v, want %v", got, tt.transferable)
			}
			if got := second.FromToken(tt.token); got != tt.owner {
				t.Errorf("FromToken() = %q, want %q", got, tt.owner)
			}
		})
	}

	if price := second.transferable["t2"].Price; price != 4.5 {
		t.Errorf("reloaded price = %v, want 4.5", price)
	}
	if len(second.ListUnassignedTokens()) != 0 {
		t.Error("reloaded tokens stay unbound until acquired")
	}

	db.values["broken"] = `{"_owner":"ownerA","_price":"cheap"}`
	ok, err := second.ReloadTokenInfo(ctx, "broken")
	if ok || !errors.Is(err, domain.ErrMalformedRecord) {
		t.Errorf("ReloadTokenInfo(broken) = %v, %v, want ErrMalformedRecord", ok, err)
	}
	if _, ok := second.tokenValues["broken"]; ok {
		t.Error("malformed record should install nothing")
	}
}

func TestCreateToken(t *testing.T) {
	tables, _ := newTestTables(t)

	s := tables.CreateToken(domain.SessionPrefix)
	if !s.IsSession() {
		t.Errorf("CreateToken(session prefix) kind = %v", s.Kind)
	}
	if tr := tables.CreateToken(""); tr.IsSession() {
		t.Errorf("CreateToken(\"\") kind = %v", tr.Kind)
	}

	tables.SetTokenCreator(domain.NewTokenCreator(func() string { return "fixed" }))
	if got := tables.CreateToken("x-"); got.Value != "x-fixed" {
		t.Errorf("CreateToken() = %q, want x-fixed", got.Value)
	}

	tables.SetTokenCreator(nil)
	if got := tables.CreateToken(""); got.Value == "fixed" || len(got.Value) != 32 {
		t.Errorf("default creator restored? got %q", got.Value)
	}
}
