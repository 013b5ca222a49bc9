package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	s, err := NewFS(filepath.Join(t.TempDir(), "local"))
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := tempStore(t)
	value := []byte(`{"mode":"notes"}`)
	if err := s.Write("user-1", "chatbot-mode", value); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("user-1", "chatbot-mode")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("value mismatch: got %q", got)
	}
}

func TestReadMissingKey(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Read("user-1", "nothing"); err != ErrNotExist {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("alice", "chatbot-open", []byte("true"))
	if _, err := s.Read("bob", "chatbot-open"); err != ErrNotExist {
		t.Errorf("bob should not see alice's key, err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("u", "k", []byte("bye"))
	if err := s.Delete("u", "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("u", "k"); err != ErrNotExist {
		t.Error("expected ErrNotExist after delete")
	}
	if err := s.Delete("u", "k"); err != nil {
		t.Errorf("deleting a missing key should succeed: %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("u", "a", []byte("1"))
	_ = s.Write("u", "b", []byte("2"))
	_ = s.Write("other", "c", []byte("3"))

	items, err := s.List("u")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("missing checksum for %s", it.Key)
		}
	}

	empty, err := s.List("nobody")
	if err != nil || len(empty) != 0 {
		t.Errorf("List(nobody) = %v, %v", empty, err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)

	cases := []struct{ ns, key string }{
		{"../..", "passwd"},
		{"..", "outside"},
		{"/etc", "shadow"},
		{"u", "../escape"},
		{"", "k"},
	}
	for _, c := range cases {
		if _, err := s.Read(c.ns, c.key); err == nil || err == ErrNotExist {
			t.Errorf("expected rejection for %q/%q, got %v", c.ns, c.key, err)
		}
		if err := s.Write(c.ns, c.key, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q/%q", c.ns, c.key)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("u", "atomic", []byte("original"))
	if err := s.Write("u", "atomic", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("u", "atomic")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	entries, _ := os.ReadDir(filepath.Join(s.root, "u"))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".resummarize-tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "resummarize-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
