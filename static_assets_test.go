package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveClientDirFromFindsSibling(t *testing.T) {
	base := t.TempDir()
	clientDir := filepath.Join(base, "client")
	if err := os.Mkdir(clientDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	resolved, ok := resolveClientDirFrom(base)
	if !ok {
		t.Fatalf("expected client dir to resolve")
	}
	expected, err := filepath.Abs(clientDir)
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	if resolved != expected {
		t.Fatalf("expected %q, got %q", expected, resolved)
	}
}

func TestResolveClientDirFromPrefersNested(t *testing.T) {
	base := t.TempDir()
	nested := filepath.Join(base, "server")
	if err := os.MkdirAll(filepath.Join(base, "client"), 0o755); err != nil {
		t.Fatalf("mkdir client: %v", err)
	}
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatalf("mkdir server: %v", err)
	}

	resolved, ok := resolveClientDirFrom(nested)
	if !ok {
		t.Fatalf("expected parent client dir to resolve")
	}
	expected, err := filepath.Abs(filepath.Join(base, "client"))
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	if resolved != expected {
		t.Fatalf("expected %q, got %q", expected, resolved)
	}
}

func TestResolveClientDirFromMissing(t *testing.T) {
	if _, ok := resolveClientDirFrom(t.TempDir()); ok {
		t.Fatalf("expected resolution to fail without a client dir")
	}
}
