package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

// exerciseStore runs the behaviour every Store must share
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	if _, err := s.Get(ctx, "game:missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "game:ab12", `{"move_count":3}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := s.Get(ctx, "game:ab12")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != `{"move_count":3}` {
		t.Errorf("Unexpected value %q", got)
	}

	if err := s.Set(ctx, "game:ab12", "replaced"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, _ := s.Get(ctx, "game:ab12"); got != "replaced" {
		t.Errorf("Expected replaced value, got %q", got)
	}

	s.Set(ctx, "game:cd34", "x")
	s.Set(ctx, "session:ab12", "y")

	keys, err := s.Keys(ctx, "game:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "game:ab12" || keys[1] != "game:cd34" {
		t.Errorf("Unexpected keys %v", keys)
	}

	all, _ := s.Keys(ctx, "")
	if len(all) != 3 {
		t.Errorf("Expected 3 keys, got %v", all)
	}

	if err := s.Remove(ctx, "game:ab12"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := s.Get(ctx, "game:ab12"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after Remove, got %v", err)
	}
	if err := s.Remove(ctx, "game:ab12"); err != nil {
		t.Errorf("Removing a missing key should succeed, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "store"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	exerciseStore(t, fs)
}

func TestFileStoreEscapesKeys(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	ctx := context.Background()
	key := "resume:../../etc/passwd"
	if err := fs.Set(ctx, key, "safe"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("Expected one file in the store directory, got %d", len(entries))
	}
	if got, _ := fs.Get(ctx, key); got != "safe" {
		t.Errorf("Expected round trip through escaped name, got %q", got)
	}
	keys, _ := fs.Keys(ctx, "resume:")
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("Expected %q, got %v", key, keys)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, _ := NewFileStore(dir)
	first.Set(ctx, "stats:lifetime_moves", "42")

	second, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if got, _ := second.Get(ctx, "stats:lifetime_moves"); got != "42" {
		t.Errorf("Expected value to survive reopen, got %q", got)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		addr    string
		db      int
		wantErr bool
	}{
		{"plain", "redis://localhost:6379", "localhost:6379", 0, false},
		{"with db", "redis://:secret@cache:6380/2", "cache:6380", 2, false},
		{"tls", "rediss://cache:6380/1", "cache:6380", 1, false},
		{"empty", "", "", 0, true},
		{"wrong scheme", "http://localhost:6379", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseRedisURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRedisURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if opts.Addr != tt.addr {
				t.Errorf("Expected addr %s, got %s", tt.addr, opts.Addr)
			}
			if opts.DB != tt.db {
				t.Errorf("Expected db %d, got %d", tt.db, opts.DB)
			}
		})
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rs, err := NewRedisStore(ctx, "redis://"+mr.Addr(), "memory-match-test")
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer rs.Close()
	exerciseStore(t, rs)

	// everything lives under the namespace
	if err := rs.Set(ctx, "game:ns01", "{}"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !mr.Exists("memory-match-test:game:ns01") {
		t.Errorf("Expected namespaced key, have %v", mr.Keys())
	}
	mr.Set("other:game:zz99", "{}")
	keys, err := rs.Keys(ctx, "game:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	for _, k := range keys {
		if k == "other:game:zz99" || k == "game:zz99" {
			t.Errorf("Expected keys outside the namespace to be hidden, got %v", keys)
		}
	}
}

func TestRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisStore(context.Background(), "redis://"+addr, "memory-match-test"); err == nil {
		t.Error("Expected ping to fail against a stopped server")
	}
}

func TestRedisStoreLive(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	ctx := context.Background()
	rs, err := NewRedisStore(ctx, url, "memory-match-test")
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer rs.Close()

	keys, _ := rs.Keys(ctx, "")
	for _, k := range keys {
		rs.Remove(ctx, k)
	}
	exerciseStore(t, rs)
}
