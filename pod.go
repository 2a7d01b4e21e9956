// Blob namespace abstraction (POD, per §1/§6 of the spec).
//
// POD is the only thing the core ever talks to for bytes: a flat,
// byte-addressable namespace with prefix listing, delete, and recursive
// clear. strata ships three implementations — MemPOD (in-process map,
// grounded on the teacher's in-memory-first test style), FilePOD
// (sandboxed to a directory via os.Root, the same primitive folio's
// db.go uses to open its database file), and S3POD (object store,
// grounded on launix-de-memcp's AWS SDK usage since none of the
// single-file teachers talk to an object store directly).
package strata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// POD is the blob store contract the core depends on. Every method
// operates on paths relative to the POD's own root — Cd narrows that
// root without mutating the receiver.
type POD interface {
	// Read returns the full contents of path, or an error wrapping
	// ErrNotFound if it does not exist.
	Read(path string) ([]byte, error)
	// Write is create-if-absent: existed is true and data is not
	// written if path was already present.
	Write(path string, data []byte) (existed bool, err error)
	// Ls lists the immediate children (files and sub-prefixes) of
	// prefix, one path segment deep.
	Ls(prefix string) ([]string, error)
	// Walk lists every file path under prefix (relative to prefix),
	// recursively, up to maxDepth path segments. maxDepth <= 0 means
	// unlimited depth only when maxDepth < 0; maxDepth == 0 yields
	// nothing, matching the spec's walk(max_depth=0) == [].
	Walk(prefix string, maxDepth int) ([]string, error)
	// Rm removes path. If path names a prefix with children, Rm fails
	// unless recursive is true.
	Rm(path string, recursive bool) error
	// IsFile reports whether path names an existing blob.
	IsFile(path string) bool
	// Clear removes everything except the paths listed in keep.
	Clear(keep ...string) error
	// Cd returns a POD rooted at prefix relative to the receiver.
	Cd(prefix string) POD
}

// LsOrEmpty lists prefix, demoting a not-found root to an empty list —
// the missing_ok behaviour the spec's POD contract documents.
func LsOrEmpty(p POD, prefix string) []string {
	out, err := p.Ls(prefix)
	if err != nil {
		return nil
	}
	return out
}

func joinPath(a, b string) string {
	a = strings.Trim(a, "/")
	b = strings.Trim(b, "/")
	switch {
	case a == "" && b == "":
		return ""
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "/" + b
	}
}

func splitTop(rel string) (head, rest string, hasRest bool) {
	rel = strings.Trim(rel, "/")
	i := strings.IndexByte(rel, '/')
	if i < 0 {
		return rel, "", false
	}
	return rel[:i], rel[i+1:], true
}

// FromURI builds a POD from a URI: file://path, memory://name, or
// s3://bucket/prefix. memory:// PODs sharing the same authority refer
// to the same underlying map, so two FromURI calls with the same URI
// see each other's writes — mirroring how a repeated file:// path
// reopens the same directory.
func FromURI(uri string) (POD, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: parse uri %q: %w", ErrValue, uri, err)
	}
	switch u.Scheme {
	case "file":
		dir := u.Path
		if dir == "" {
			dir = u.Opaque
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		return NewFilePOD(dir)
	case "memory":
		name := u.Host
		if name == "" {
			name = strings.TrimPrefix(u.Path, "/")
		}
		return memRegistry.get(name), nil
	case "s3":
		bucket := u.Host
		prefix := strings.TrimPrefix(u.Path, "/")
		return NewS3POD(bucket, prefix)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrValue, u.Scheme)
	}
}

// --- MemPOD --------------------------------------------------------

// MemPOD is an in-process blob store backed by a shared map, scoped
// by a root prefix. Multiple MemPOD values returned by Cd share the
// same underlying store, the same way cd() is a view in the spec.
type MemPOD struct {
	store *memStore
	root  string
}

type memStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

type memPODRegistry struct {
	mu    sync.Mutex
	named map[string]*memStore
}

var memRegistry = &memPODRegistry{named: map[string]*memStore{}}

func (r *memPODRegistry) get(name string) *MemPOD {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.named[name]
	if !ok {
		s = &memStore{data: map[string][]byte{}}
		r.named[name] = s
	}
	return &MemPOD{store: s}
}

// NewMemPOD returns a fresh, unshared in-memory POD.
func NewMemPOD() *MemPOD {
	return &MemPOD{store: &memStore{data: map[string][]byte{}}}
}

func (p *MemPOD) full(rel string) string { return joinPath(p.root, rel) }

func (p *MemPOD) Read(rel string) ([]byte, error) {
	key := p.full(rel)
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	data, ok := p.store.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (p *MemPOD) Write(rel string, data []byte) (bool, error) {
	key := p.full(rel)
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	if _, ok := p.store.data[key]; ok {
		return true, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	p.store.data[key] = cp
	return false, nil
}

func (p *MemPOD) Ls(prefix string) ([]string, error) {
	base := p.full(prefix)
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	seen := map[string]bool{}
	var found bool
	for key := range p.store.data {
		rel := strings.TrimPrefix(key, base)
		if rel == key && base != "" {
			continue
		}
		rel = strings.TrimPrefix(rel, "/")
		if base == "" {
			rel = key
		}
		found = true
		head, _, _ := splitTop(rel)
		if head != "" {
			seen[head] = true
		}
	}
	if !found && base != "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, base)
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (p *MemPOD) Walk(prefix string, maxDepth int) ([]string, error) {
	if maxDepth == 0 {
		return nil, nil
	}
	base := p.full(prefix)
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	var out []string
	for key := range p.store.data {
		rel := key
		if base != "" {
			if !strings.HasPrefix(key, base+"/") && key != base {
				continue
			}
			rel = strings.TrimPrefix(strings.TrimPrefix(key, base), "/")
		}
		if rel == "" {
			continue
		}
		if maxDepth > 0 && strings.Count(rel, "/")+1 > maxDepth {
			continue
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

func (p *MemPOD) Rm(rel string, recursive bool) error {
	key := p.full(rel)
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	if _, ok := p.store.data[key]; ok {
		delete(p.store.data, key)
		return nil
	}

	var children []string
	for k := range p.store.data {
		if strings.HasPrefix(k, key+"/") {
			children = append(children, k)
		}
	}
	if len(children) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if !recursive {
		return fmt.Errorf("strata: %s is a directory, recursive required", key)
	}
	for _, k := range children {
		delete(p.store.data, k)
	}
	return nil
}

func (p *MemPOD) IsFile(rel string) bool {
	key := p.full(rel)
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	_, ok := p.store.data[key]
	return ok
}

func (p *MemPOD) Clear(keep ...string) error {
	keepSet := map[string]bool{}
	for _, k := range keep {
		keepSet[p.full(k)] = true
	}
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	base := p.root
	for k := range p.store.data {
		if base != "" && !strings.HasPrefix(k, base) {
			continue
		}
		if keepSet[k] {
			continue
		}
		delete(p.store.data, k)
	}
	return nil
}

func (p *MemPOD) Cd(prefix string) POD {
	return &MemPOD{store: p.store, root: joinPath(p.root, prefix)}
}

// --- FilePOD ---------------------------------------------------------

// FilePOD is a POD sandboxed to a directory on the local filesystem,
// built on os.Root the same way folio's db.go sandboxes its data file.
type FilePOD struct {
	root *os.Root
	dir  string // absolute directory, for Cd/sub-root reopening
}

// NewFilePOD opens (creating if absent) a directory-sandboxed POD.
func NewFilePOD(dir string) (*FilePOD, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	return &FilePOD{root: root, dir: dir}, nil
}

func (p *FilePOD) Read(rel string) ([]byte, error) {
	f, err := p.root.Open(rel)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (p *FilePOD) Write(rel string, data []byte) (bool, error) {
	if _, err := p.root.Stat(rel); err == nil {
		return true, nil
	}
	if dir := path.Dir(rel); dir != "." {
		if err := p.mkdirAll(dir); err != nil {
			return false, err
		}
	}
	f, err := p.root.Create(rel)
	if err != nil {
		if os.IsExist(err) {
			return true, nil
		}
		return false, err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return false, err
	}
	return false, nil
}

func (p *FilePOD) mkdirAll(rel string) error {
	parts := strings.Split(rel, "/")
	cur := ""
	for _, part := range parts {
		cur = joinPath(cur, part)
		if err := p.root.Mkdir(cur, 0o755); err != nil && !os.IsExist(err) {
			return err
		}
	}
	return nil
}

func (p *FilePOD) Ls(prefix string) ([]string, error) {
	dir := prefix
	if dir == "" {
		dir = "."
	}
	f, err := p.root.Open(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, prefix)
		}
		return nil, err
	}
	defer f.Close()
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (p *FilePOD) Walk(prefix string, maxDepth int) ([]string, error) {
	if maxDepth == 0 {
		return nil, nil
	}
	dir := prefix
	if dir == "" {
		dir = "."
	}
	var out []string
	var walk func(rel string, depth int) error
	walk = func(rel string, depth int) error {
		listDir := joinPath(dir, rel)
		if listDir == "" {
			listDir = "."
		}
		f, err := p.root.Open(listDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		entries, err := f.ReadDir(-1)
		f.Close()
		if err != nil {
			return err
		}
		for _, e := range entries {
			childRel := joinPath(rel, e.Name())
			if e.IsDir() {
				if maxDepth < 0 || depth+1 <= maxDepth {
					if err := walk(childRel, depth+1); err != nil {
						return err
					}
				}
				continue
			}
			if maxDepth < 0 || depth+1 <= maxDepth {
				out = append(out, childRel)
			}
		}
		return nil
	}
	if err := walk("", 0); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (p *FilePOD) Rm(rel string, recursive bool) error {
	info, err := p.root.Stat(rel)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return err
	}
	if !info.IsDir() {
		return p.root.Remove(rel)
	}
	if !recursive {
		return fmt.Errorf("strata: %s is a directory, recursive required", rel)
	}
	return os.RemoveAll(path.Join(p.dir, rel))
}

func (p *FilePOD) IsFile(rel string) bool {
	info, err := p.root.Stat(rel)
	return err == nil && !info.IsDir()
}

func (p *FilePOD) Clear(keep ...string) error {
	keepSet := map[string]bool{}
	for _, k := range keep {
		keepSet[k] = true
	}
	entries, err := p.Ls("")
	if err != nil {
		return err
	}
	for _, e := range entries {
		if keepSet[e] {
			continue
		}
		if err := p.Rm(e, true); err != nil {
			return err
		}
	}
	return nil
}

func (p *FilePOD) Cd(prefix string) POD {
	sub := path.Join(p.dir, prefix)
	child, err := NewFilePOD(sub)
	if err != nil {
		// Defer the error to first use — Cd itself cannot fail in
		// the POD interface.
		return &errPOD{err: err}
	}
	return child
}

// errPOD is returned by Cd when the child root could not be opened;
// every operation on it returns the same error.
type errPOD struct{ err error }

func (e *errPOD) Read(string) ([]byte, error)        { return nil, e.err }
func (e *errPOD) Write(string, []byte) (bool, error) { return false, e.err }
func (e *errPOD) Ls(string) ([]string, error)        { return nil, e.err }
func (e *errPOD) Walk(string, int) ([]string, error) { return nil, e.err }
func (e *errPOD) Rm(string, bool) error              { return e.err }
func (e *errPOD) IsFile(string) bool                 { return false }
func (e *errPOD) Clear(...string) error              { return e.err }
func (e *errPOD) Cd(string) POD                      { return e }

// --- S3POD -----------------------------------------------------------

// S3POD stores blobs in an S3 bucket under a key prefix.
type S3POD struct {
	client *s3.Client
	bucket string
	root   string
}

// NewS3POD builds an S3-backed POD using the default AWS credential
// chain (environment, shared config, IMDS), the same resolution
// launix-de-memcp's storage layer relies on for its S3 backend.
func NewS3POD(bucket, prefix string) (*S3POD, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}
	return &S3POD{client: s3.NewFromConfig(cfg), bucket: bucket, root: prefix}, nil
}

func (p *S3POD) key(rel string) string { return joinPath(p.root, rel) }

func (p *S3POD) Read(rel string) ([]byte, error) {
	out, err := p.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(rel)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (p *S3POD) Write(rel string, data []byte) (bool, error) {
	if p.IsFile(rel) {
		return true, nil
	}
	_, err := p.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(rel)),
		Body:   bytes.NewReader(data),
	})
	return false, err
}

func (p *S3POD) Ls(prefix string) ([]string, error) {
	base := p.key(prefix)
	if base != "" {
		base += "/"
	}
	out, err := p.client.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
		Bucket:    aws.String(p.bucket),
		Prefix:    aws.String(base),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, err
	}
	var names []string
	for _, cp := range out.CommonPrefixes {
		rel := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, base), "/")
		names = append(names, rel)
	}
	for _, obj := range out.Contents {
		rel := strings.TrimPrefix(*obj.Key, base)
		if rel != "" {
			names = append(names, rel)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (p *S3POD) Walk(prefix string, maxDepth int) ([]string, error) {
	if maxDepth == 0 {
		return nil, nil
	}
	base := p.key(prefix)
	if base != "" {
		base += "/"
	}
	var out []string
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(base),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(*obj.Key, base)
			if rel == "" {
				continue
			}
			if maxDepth > 0 && strings.Count(rel, "/")+1 > maxDepth {
				continue
			}
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Rm deletes the object at rel. Without recursive it does not check
// for objects under rel as a prefix and does not fail when there are
// some; with recursive it deletes every object under rel.
func (p *S3POD) Rm(rel string, recursive bool) error {
	if !recursive {
		_, err := p.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(p.key(rel)),
		})
		return err
	}
	keys, err := p.Walk(rel, -1)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := p.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(p.key(joinPath(rel, k))),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (p *S3POD) IsFile(rel string) bool {
	_, err := p.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(rel)),
	})
	return err == nil
}

func (p *S3POD) Clear(keep ...string) error {
	keepSet := map[string]bool{}
	for _, k := range keep {
		keepSet[k] = true
	}
	keys, err := p.Walk("", -1)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if keepSet[k] {
			continue
		}
		if err := p.Rm(k, false); err != nil {
			return err
		}
	}
	return nil
}

func (p *S3POD) Cd(prefix string) POD {
	return &S3POD{client: p.client, bucket: p.bucket, root: joinPath(p.root, prefix)}
}

func isS3NotFound(err error) bool {
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
