package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type payload struct {
	Site  string  `json:"site"`
	Count int     `json:"count"`
	KWh   float64 `json:"kwh"`
}

func TestFileCacheRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	in := payload{Site: "caltech", Count: 12, KWh: 83.5}
	if err := c.Set("scenario_caltech_2020-01-01_all", in); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out payload
	ok, err := c.Get("scenario_caltech_2020-01-01_all", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
	if !c.Exists("scenario_caltech_2020-01-01_all") {
		t.Fatal("expected entry to exist")
	}
}

func TestFileCacheMiss(t *testing.T) {
	c, err := New(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var out payload
	ok, err := c.Get("absent", &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected a miss")
	}
}

func TestFileCacheExpiry(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, time.Minute)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := c.SetTTL("stale", payload{Site: "x"}, time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var out payload
	ok, err := c.Get("stale", &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected expired entry to miss")
	}
	if _, err := os.Stat(filepath.Join(dir, "stale.json")); !os.IsNotExist(err) {
		t.Fatal("expected expired entry file to be removed")
	}
}

func TestFileCacheKeySanitized(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, time.Minute)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := c.Set(`sites/caltech\2020`, payload{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sites_caltech_2020.json")); err != nil {
		t.Fatalf("sanitized file missing: %v", err)
	}
}

func TestFileCacheCorruptEntryDropped(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, time.Minute)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out payload
	ok, err := c.Get("bad", &out)
	if err != nil || ok {
		t.Fatalf("expected silent miss, ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.json")); !os.IsNotExist(err) {
		t.Fatal("expected corrupt entry to be removed")
	}
}

func TestFileCacheDeleteAndClear(t *testing.T) {
	c, err := New(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := c.Set("a", payload{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Set("b", payload{}); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := c.Delete("a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if c.Exists("a") {
		t.Fatal("deleted entry still present")
	}
	if err := c.Delete("a"); err != nil {
		t.Fatalf("double delete should be silent: %v", err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if c.Exists("b") {
		t.Fatal("cleared entry still present")
	}
}
