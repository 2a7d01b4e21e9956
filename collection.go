// Collection & Repository: name→series and name→collection
// directories, themselves stored as internal Series of
// (label, schema_text) rows (§3 "Collection registry", §4.7).
package strata

import "fmt"

var registrySchema = mustRegistrySchema()

func mustRegistrySchema() *Schema {
	s, err := NewSchema([]Column{
		{Name: "label", DType: DString, Index: true},
		{Name: "schema", DType: DString},
	})
	if err != nil {
		panic(err)
	}
	return s
}

// registry is a Series of (label, schema_text) rows shared by
// Collection and Repository, grounded on baltic/registry.py's single
// Registry type (§4.7: "Each is a Series of (label, schema_text) in a
// well-known path").
type registry struct {
	schemaSeries *Series
	childPOD     POD // root of label-hashed child PODs ("series/")
	segmentPOD   POD
	config       RuntimeConfig
}

func newRegistry(pod POD, config RuntimeConfig) *registry {
	segmentPOD := pod.Cd("segment")
	return &registry{
		schemaSeries: NewSeries(registrySchema, NewChangelog(pod.Cd("registry")), segmentPOD, config),
		childPOD:     pod.Cd("series"),
		segmentPOD:   segmentPOD,
		config:       config,
	}
}

func (r *registry) labelsFrame() (*Frame, error) {
	return r.schemaSeries.Frame(nil, nil, nil, nil, ClosedBoth)
}

// Labels lists every registered label.
func (r *registry) Labels() ([]string, error) {
	frame, err := r.labelsFrame()
	if err != nil {
		return nil, err
	}
	arr, err := frame.Column("label")
	if err != nil {
		return nil, err
	}
	out := make([]string, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		out[i] = arr.Get(i).(string)
	}
	return out, nil
}

// Create writes one revision adding the given labels with the given
// schema text, failing if any already exist (§4.7 "create(schema,
// *labels)").
func (r *registry) Create(schemaText string, labels ...string) error {
	existing, err := r.Labels()
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, l := range existing {
		have[l] = true
	}
	for _, l := range labels {
		if have[l] {
			return fmt.Errorf("%w: label %q already exists", ErrConflict, l)
		}
	}
	labelArr := &strArray{vals: append([]string(nil), labels...)}
	schemaArr := &strArray{vals: make([]string, len(labels))}
	for i := range labels {
		schemaArr.vals[i] = schemaText
	}
	frame, err := NewFrame(registrySchema, map[string]Array{"label": labelArr, "schema": schemaArr})
	if err != nil {
		return err
	}
	if err := frame.CheckSorted(); err != nil {
		return fmt.Errorf("%w: labels must be passed in sorted order", ErrSchema)
	}
	_, err = r.schemaSeries.Write(frame, nil, nil, "")
	return err
}

// lookup returns the schema text registered for label.
func (r *registry) lookup(label string) (string, error) {
	frame, err := r.labelsFrame()
	if err != nil {
		return "", err
	}
	row := frame.RowDict(Key{label})
	if row == nil {
		return "", fmt.Errorf("%w: label %q", ErrNotFound, label)
	}
	return row["schema"].(string), nil
}

// childChangelogPOD returns the hashed-fan-out POD root for a child's
// own changelog, bounding directory sizes under high label
// cardinality (§4.7, §8 S7).
func (r *registry) childChangelogPOD(label string) POD {
	digest := digestHex([]byte(label))
	return r.childPOD.Cd(hashedPath(digest))
}

// Pack rewrites the registry's own Series if it has more than one
// revision, matching the original's test_pack edge case (§12:
// "Collection.Pack returning nil when ... a single revision").
func (r *registry) Pack() (bool, error) {
	nodes, err := r.schemaSeries.Changelog.Walk()
	if err != nil {
		return false, err
	}
	if len(nodes) <= 1 {
		return false, nil
	}
	if err := r.schemaSeries.Squash(); err != nil {
		return false, err
	}
	return true, nil
}

// Collection holds labeled series sharing nothing but a common POD
// root; each label carries its own schema (§2 item 8, §4.7).
type Collection struct {
	registry *registry
	config   RuntimeConfig
}

// NewCollection opens a Collection rooted at pod. Repository.Get
// roots each collection at `series/<hashed label>/` under the
// repository POD; the collection keeps its registry, segment pool and
// child series under `registry/`, `segment/` and `series/` there.
func NewCollection(pod POD, config RuntimeConfig) *Collection {
	return &Collection{registry: newRegistry(pod, config), config: config}
}

// Create registers new labeled series sharing schema (§4.7).
func (c *Collection) Create(schema *Schema, labels ...string) error {
	return c.registry.Create(schema.Dumps(), labels...)
}

// Labels lists every series label in the collection.
func (c *Collection) Labels() ([]string, error) {
	return c.registry.Labels()
}

// Get looks up label in the latest registry view and constructs its
// Series, stored at a hashed path so that enormous label cardinality
// does not blow up directory listings (§4.7, §8 S7).
func (c *Collection) Get(label string) (*Series, error) {
	schemaText, err := c.registry.lookup(label)
	if err != nil {
		return nil, err
	}
	schema, err := globalSchemaCache.get(schemaText)
	if err != nil {
		return nil, err
	}
	changelog := NewChangelog(c.registry.childChangelogPOD(label))
	return NewSeries(schema, changelog, c.registry.segmentPOD, c.config), nil
}

// Pack rewrites the collection's internal registry Series if needed
// (§4.7, §12).
func (c *Collection) Pack() (bool, error) {
	return c.registry.Pack()
}

// Squash squashes every child series plus the collection's own index
// (§4.7 "squash(archive?)", §12 fan-out semantics).
func (c *Collection) Squash() error {
	labels, err := c.Labels()
	if err != nil {
		return err
	}
	err = forEach(c.config, labels, func(label string) error {
		series, err := c.Get(label)
		if err != nil {
			return err
		}
		return series.Squash()
	})
	if err != nil {
		return err
	}
	return c.registry.schemaSeries.Squash()
}

// Revisions counts the collection's own registry commits (not the
// transitive child series commits, §12 fan-out semantics).
func (c *Collection) Revisions() (int, error) {
	nodes, err := c.registry.schemaSeries.Changelog.Walk()
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

// Repository is a name→collection directory, itself a registry of
// (collection-label, schema_text) rows (§4.7: "analogous"). The
// schema_text column is unused for collections (which hold many
// independently-schemaed series) and is written empty; the row shape
// is kept identical to Collection's registry so both reuse the same
// underlying registry type.
type Repository struct {
	registry *registry
	config   RuntimeConfig
}

// Open constructs a Repository rooted at the given POD uri (§6 URI
// scheme: file://, memory://, s3://).
func Open(uri string, config RuntimeConfig) (*Repository, error) {
	config = config.withDefaults()
	pod, err := FromURI(uri)
	if err != nil {
		return nil, err
	}
	return &Repository{registry: newRegistry(pod, config), config: config}, nil
}

// Create registers new collection labels.
func (r *Repository) Create(labels ...string) error {
	return r.registry.Create("", labels...)
}

// Labels lists every collection label in the repository.
func (r *Repository) Labels() ([]string, error) {
	return r.registry.Labels()
}

// Get opens the Collection registered under label.
func (r *Repository) Get(label string) (*Collection, error) {
	if _, err := r.registry.lookup(label); err != nil {
		return nil, err
	}
	pod := r.registry.childChangelogPOD(label)
	return NewCollection(pod, r.config), nil
}

// Squash fans squash out to every child collection plus the
// repository's own index (§4.7, §12).
func (r *Repository) Squash() error {
	labels, err := r.Labels()
	if err != nil {
		return err
	}
	err = forEach(r.config, labels, func(label string) error {
		coll, err := r.Get(label)
		if err != nil {
			return err
		}
		return coll.Squash()
	})
	if err != nil {
		return err
	}
	return r.registry.schemaSeries.Squash()
}

// Revisions counts the repository's own registry commits.
func (r *Repository) Revisions() (int, error) {
	nodes, err := r.registry.schemaSeries.Changelog.Walk()
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}
