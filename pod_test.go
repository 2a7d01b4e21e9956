package strata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemPODWriteReadRoundTrip(t *testing.T) {
	pod := NewMemPOD()
	existed, err := pod.Write("a/b", []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if existed {
		t.Fatal("expected first write to report not-existed")
	}
	existed, err = pod.Write("a/b", []byte("world"))
	if err != nil {
		t.Fatal(err)
	}
	if !existed {
		t.Fatal("expected second write of same path to report existed")
	}
	got, err := pod.Read("a/b")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("write is not create-if-absent: got %q", got)
	}
}

func TestMemPODReadMissing(t *testing.T) {
	pod := NewMemPOD()
	_, err := pod.Read("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemPODCdIsolation(t *testing.T) {
	pod := NewMemPOD()
	sub := pod.Cd("ns")
	if _, err := sub.Write("x", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if pod.IsFile("x") {
		t.Fatal("write under Cd leaked into parent namespace")
	}
	if !sub.IsFile("x") {
		t.Fatal("write under Cd did not land in child namespace")
	}
	got, err := pod.Read("ns/x")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "1" {
		t.Fatalf("got %q", got)
	}
}

func TestMemPODWalkMaxDepth(t *testing.T) {
	pod := NewMemPOD()
	for _, p := range []string{"a", "x/b", "x/y/c"} {
		if _, err := pod.Write(p, []byte("v")); err != nil {
			t.Fatal(err)
		}
	}
	all, err := pod.Walk("", -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %v", all)
	}
	shallow, err := pod.Walk("", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(shallow) != 1 || shallow[0] != "a" {
		t.Fatalf("expected only top-level entries, got %v", shallow)
	}
	zero, err := pod.Walk("", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(zero) != 0 {
		t.Fatalf("maxDepth=0 should yield nothing, got %v", zero)
	}
}

func TestMemPODRmRecursive(t *testing.T) {
	pod := NewMemPOD()
	if _, err := pod.Write("dir/a", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if _, err := pod.Write("dir/b", []byte("2")); err != nil {
		t.Fatal(err)
	}
	if err := pod.Rm("dir", false); err == nil {
		t.Fatal("expected non-recursive Rm on a directory to fail")
	}
	if err := pod.Rm("dir", true); err != nil {
		t.Fatal(err)
	}
	if pod.IsFile("dir/a") || pod.IsFile("dir/b") {
		t.Fatal("recursive Rm left children behind")
	}
}

func TestMemPODClearKeepsListed(t *testing.T) {
	pod := NewMemPOD()
	pod.Write("keep", []byte("1"))
	pod.Write("drop", []byte("2"))
	if err := pod.Clear("keep"); err != nil {
		t.Fatal(err)
	}
	if !pod.IsFile("keep") {
		t.Fatal("Clear removed a kept path")
	}
	if pod.IsFile("drop") {
		t.Fatal("Clear left an unkept path behind")
	}
}

func TestFilePODRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pod, err := NewFilePOD(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pod.Write("ab/12/rest", []byte("payload")); err != nil {
		t.Fatal(err)
	}
	got, err := pod.Read("ab/12/rest")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "ab", "12", "rest")); err != nil {
		t.Fatal(err)
	}
}
