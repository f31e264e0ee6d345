package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPutGet(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	data := bytes.Repeat([]byte("Hwæt! We Gardena in geardagum "), 200)
	if err := c.Put("https://heorot.dk/beowulf-rede-text.html", data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !c.Has("https://heorot.dk/beowulf-rede-text.html") {
		t.Error("Has should report the stored entry")
	}
	got, err := c.Get("https://heorot.dk/beowulf-rede-text.html")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("content changed through the cache")
	}

	n, size, err := c.Stats()
	if err != nil || n != 1 {
		t.Fatalf("Stats = %d, %d, %v", n, size, err)
	}
	if size >= int64(len(data)) {
		t.Errorf("entry not compressed: %d bytes on disk for %d", size, len(data))
	}
}

func TestGetMiss(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get("nothing"); !errors.Is(err, ErrMiss) {
		t.Errorf("err = %v, want ErrMiss", err)
	}
}

func TestGetCorrupt(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put("doc", []byte("original")); err != nil {
		t.Fatal(err)
	}
	path := c.pathFor("doc")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw[0] ^= 0xff
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get("doc"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("digest mismatch err = %v", err)
	}

	if err := os.WriteFile(path, []byte("short"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get("doc"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("truncated err = %v", err)
	}
}

func TestPathLayout(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	k := Key("doc")
	if len(k) != 64 {
		t.Fatalf("key length = %d", len(k))
	}
	if want := filepath.Join(dir, k[:2], k+".xz"); c.pathFor("doc") != want {
		t.Errorf("pathFor = %s, want %s", c.pathFor("doc"), want)
	}
}

func TestClear(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if err := c.Put(name, []byte(name)); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clear()
	if err != nil || n != 3 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
	if c.Has("a") {
		t.Error("entry survived Clear")
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Errorf("cache root removed: %v", err)
	}
}
