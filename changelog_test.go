package strata

import "testing"

func TestChangelogCommitLinear(t *testing.T) {
	cl := NewChangelog(NewMemPOD())
	id1, err := cl.Commit([]byte("a"), "")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := cl.Commit([]byte("b"), "")
	if err != nil {
		t.Fatal(err)
	}
	nodes, err := cl.Walk()
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(nodes))
	}
	if id1 == id2 {
		t.Fatal("distinct payloads must yield distinct commit ids")
	}
	if nodes[0].parent+"-"+nodes[0].child != id1 {
		t.Fatalf("expected first walked node to be the first commit, got %+v", nodes[0])
	}
}

func TestChangelogCommitIdempotent(t *testing.T) {
	cl := NewChangelog(NewMemPOD())
	id1, err := cl.Commit([]byte("same"), phi)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := cl.Commit([]byte("same"), phi)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("identical payload/parent commit should be idempotent: %s != %s", id1, id2)
	}
	nodes, err := cl.Walk()
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected exactly one commit file, got %d", len(nodes))
	}
}

func TestChangelogBranchMergeTieBreak(t *testing.T) {
	cl := NewChangelog(NewMemPOD())
	root, err := cl.Commit([]byte("root"), phi)
	if err != nil {
		t.Fatal(err)
	}
	rootChild := root[len(root)-40:]

	// Two branches from the same parent: wait for distinct hextimes by
	// writing them with manufactured filenames directly, since the
	// package's own Commit uses wall-clock hextime and two calls in the
	// same test may race to the same millisecond.
	pod := cl.pod
	payloadA := []byte("branch-a")
	payloadB := []byte("branch-b")
	childA := digestHex(payloadA)
	childB := digestHex(payloadB)
	if _, err := pod.Write("000000000001-"+rootChild+"-"+childA, payloadA); err != nil {
		t.Fatal(err)
	}
	if _, err := pod.Write("000000000002-"+rootChild+"-"+childB, payloadB); err != nil {
		t.Fatal(err)
	}

	nodes, err := cl.Walk()
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected root + 2 branch commits, got %d", len(nodes))
	}
	if nodes[1].child != childA || nodes[2].child != childB {
		t.Fatalf("expected branches visited in (hextime, child) order, got %+v", nodes[1:])
	}
}

func TestChangelogTruncateKeepsNamed(t *testing.T) {
	cl := NewChangelog(NewMemPOD())
	id1, err := cl.Commit([]byte("a"), phi)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cl.Commit([]byte("b"), ""); err != nil {
		t.Fatal(err)
	}
	if err := cl.Truncate(id1); err != nil {
		t.Fatal(err)
	}
	nodes, err := cl.Walk()
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 surviving commit, got %d", len(nodes))
	}
}

func TestChangelogPull(t *testing.T) {
	remote := NewChangelog(NewMemPOD())
	if _, err := remote.Commit([]byte("a"), phi); err != nil {
		t.Fatal(err)
	}
	if _, err := remote.Commit([]byte("b"), ""); err != nil {
		t.Fatal(err)
	}
	local := NewChangelog(NewMemPOD())
	if err := local.Pull(remote); err != nil {
		t.Fatal(err)
	}
	localNodes, err := local.Walk()
	if err != nil {
		t.Fatal(err)
	}
	if len(localNodes) != 2 {
		t.Fatalf("expected local to have both commits after pull, got %d", len(localNodes))
	}
}

func TestChangelogClear(t *testing.T) {
	cl := NewChangelog(NewMemPOD())
	if _, err := cl.Commit([]byte("a"), phi); err != nil {
		t.Fatal(err)
	}
	if err := cl.Clear(); err != nil {
		t.Fatal(err)
	}
	nodes, err := cl.Walk()
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 0 {
		t.Fatal("expected empty changelog after Clear")
	}
}
