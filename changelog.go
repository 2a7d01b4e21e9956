// Changelog: an append-only, hash-chained log of revisions over a POD
// (§4.4).
package strata

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// commitNode is one parsed changelog filename: {hextime}-{parent}-{child}.
type commitNode struct {
	hextime string
	parent  string
	child   string
	name    string
}

func parseCommitNode(name string) (commitNode, bool) {
	parts := strings.Split(name, "-")
	if len(parts) != 3 {
		return commitNode{}, false
	}
	if len(parts[1]) != 40 || len(parts[2]) != 40 {
		return commitNode{}, false
	}
	return commitNode{hextime: parts[0], parent: parts[1], child: parts[2], name: name}, true
}

// hextimeNow returns the current UTC time in milliseconds, hex
// encoded, the natural-sortable filename prefix (§6 "Time semantics").
func hextimeNow() string {
	return fmt.Sprintf("%012x", time.Now().UTC().UnixMilli())
}

// Changelog is a POD folder of commit files forming a DAG rooted at
// the sentinel parent phi. Multiple writers may commit concurrently
// without coordination (§5).
type Changelog struct {
	pod POD
}

func NewChangelog(pod POD) *Changelog {
	return &Changelog{pod: pod}
}

// Commit writes a new commit node. forceParent == phi starts a new
// root; an empty forceParent means "observed head" as seen by Head.
// Writes are create-if-absent: an identical payload commit under the
// same parent is idempotent (§4.4 step 2-3).
func (c *Changelog) Commit(payload []byte, forceParent string) (string, error) {
	parent := forceParent
	if parent == "" {
		head, err := c.Head()
		if err != nil {
			return "", err
		}
		parent = head
	}
	child := digestHex(payload)

	existing, err := c.pod.Ls("")
	if err != nil {
		return "", err
	}
	for _, name := range existing {
		if node, ok := parseCommitNode(name); ok && node.parent == parent && node.child == child {
			return parent + "-" + child, nil
		}
	}

	name := hextimeNow() + "-" + parent + "-" + child
	if _, err := c.pod.Write(name, payload); err != nil {
		return "", err
	}
	return parent + "-" + child, nil
}

// Head returns the lexically-last child among commits with no
// recorded child (a leaf of the DAG), used as the default parent for
// the next Commit from this writer. Ties resolve the same way Walk
// resolves branches: by (hextime, child).
func (c *Changelog) Head() (string, error) {
	nodes, err := c.nodes()
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return phi, nil
	}
	hasChild := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		hasChild[n.parent] = true
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].hextime != nodes[j].hextime {
			return nodes[i].hextime < nodes[j].hextime
		}
		return nodes[i].child < nodes[j].child
	})
	leaf := phi
	for _, n := range nodes {
		if !hasChild[n.child] {
			leaf = n.child
		}
	}
	return leaf, nil
}

func (c *Changelog) nodes() ([]commitNode, error) {
	names, err := c.pod.Ls("")
	if err != nil {
		return nil, err
	}
	nodes := make([]commitNode, 0, len(names))
	for _, name := range names {
		if n, ok := parseCommitNode(name); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// Walk lists the changelog, builds the parent→children index, and
// performs a depth-first traversal from phi, visiting children sorted
// by (hextime, child) at every branch point (§4.4 Walk). It returns
// commit nodes in that deterministic causal-merge order; callers
// deserialize each node's payload themselves.
func (c *Changelog) Walk() ([]commitNode, error) {
	nodes, err := c.nodes()
	if err != nil {
		return nil, err
	}
	children := make(map[string][]commitNode, len(nodes))
	for _, n := range nodes {
		children[n.parent] = append(children[n.parent], n)
	}
	for p := range children {
		sort.Slice(children[p], func(i, j int) bool {
			a, b := children[p][i], children[p][j]
			if a.hextime != b.hextime {
				return a.hextime < b.hextime
			}
			return a.child < b.child
		})
	}

	var out []commitNode
	var visit func(parent string)
	visit = func(parent string) {
		for _, n := range children[parent] {
			out = append(out, n)
			visit(n.child)
		}
	}
	visit(phi)
	return out, nil
}

// ReadPayload fetches the raw bytes written for a commit node.
func (c *Changelog) ReadPayload(node commitNode) ([]byte, error) {
	return c.pod.Read(node.name)
}

// Pull copies every commit file from remote whose child is not
// already present locally (§4.4 Pull). Payloads are opaque bytes, no
// re-signing.
func (c *Changelog) Pull(remote *Changelog) error {
	localNodes, err := c.nodes()
	if err != nil {
		return err
	}
	haveChild := make(map[string]bool, len(localNodes))
	for _, n := range localNodes {
		haveChild[n.child] = true
	}
	remoteNodes, err := remote.nodes()
	if err != nil {
		return err
	}
	for _, n := range remoteNodes {
		if haveChild[n.child] {
			continue
		}
		payload, err := remote.ReadPayload(n)
		if err != nil {
			return err
		}
		if _, err := c.pod.Write(n.name, payload); err != nil {
			return err
		}
	}
	return nil
}

// Truncate removes every commit file not named in keep (§4.4).
func (c *Changelog) Truncate(keep ...string) error {
	names, err := c.pod.Ls("")
	if err != nil {
		return err
	}
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}
	for _, name := range names {
		node, ok := parseCommitNode(name)
		if !ok {
			continue
		}
		if keepSet[node.parent+"-"+node.child] || keepSet[node.name] {
			continue
		}
		if err := c.pod.Rm(name, false); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes all commits, resetting history (§4.4).
func (c *Changelog) Clear() error {
	return c.pod.Clear()
}
