package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocal(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "cache")
	store, err := New(ctx, "local", root, false)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}

	work := t.TempDir()
	in := filepath.Join(work, "in.mp3")
	if err := os.WriteFile(in, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := store.SetMP3(ctx, in, "abc"); err != nil {
		t.Fatalf("SetMP3() err = %v; want nil", err)
	}
	if _, err := os.Stat(filepath.Join(root, "abc.mp3")); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	out := filepath.Join(work, "out.mp3")
	if err := store.GetMP3(ctx, out, "abc"); err != nil {
		t.Fatalf("GetMP3() err = %v; want nil", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "audio" {
		t.Fatalf("GetMP3() = %q; want %q", b, "audio")
	}
	if err := store.GetMP3(ctx, out, "missing"); err == nil {
		t.Fatalf("GetMP3(missing) err = nil; want error")
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		typ, conn string
	}{
		{"ftp", "x"},
		{"s3", "nobucket"},
		{"s3", "key:secret@bucket"},
		{"s3", "keyonly@bucket.region"},
		{"local", ""},
	}
	for _, tt := range tests {
		if _, err := New(ctx, tt.typ, tt.conn, false); err == nil {
			t.Fatalf("New(%q, %q) err = nil; want error", tt.typ, tt.conn)
		}
	}
}
