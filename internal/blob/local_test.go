package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStore_PutDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/media/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "posts/a.jpg", []byte("img"), "image/jpeg", ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "posts", "a.jpg"))
	if err != nil || string(data) != "img" {
		t.Fatalf("stored object = %q, %v", data, err)
	}
	if got := store.URL("posts/a.jpg"); got != "/media/posts/a.jpg" {
		t.Errorf("URL = %q", got)
	}

	if err := store.Delete(ctx, "posts/a.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "posts", "a.jpg")); !os.IsNotExist(err) {
		t.Errorf("object still present after Delete: %v", err)
	}
	// Deleting again is a no-op.
	if err := store.Delete(ctx, "posts/a.jpg"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	for _, key := range []string{"../x.jpg", "/etc/passwd", "a/../../b"} {
		if err := store.Put(context.Background(), key, []byte("x"), "image/jpeg", ""); err == nil {
			t.Errorf("Put(%q) succeeded, want error", key)
		}
	}
}
