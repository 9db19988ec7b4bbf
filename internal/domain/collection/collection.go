package collection

import (
	"fmt"
	"maps"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Distance is the similarity metric of a collection's vector index.
type Distance string

// Distance constants.
const (
	Cosine       Distance = "cosine"
	L2           Distance = "l2"
	InnerProduct Distance = "ip"
)

// IsValid checks if the distance metric is supported.
func (d Distance) IsValid() bool {
	return d == Cosine || d == L2 || d == InnerProduct
}

// Defaults used when a collection is created without configuration or embedding function.
const (
	DefaultDimension = 384
	DefaultDistance  = Cosine
)

// Configuration is the HNSW index configuration of a collection.
type Configuration struct {
	Dimension int
	Distance  Distance
}

// DefaultConfiguration returns 384 dimensions with cosine distance.
func DefaultConfiguration() Configuration {
	return Configuration{Dimension: DefaultDimension, Distance: DefaultDistance}
}

// Validate checks dimension and distance. An empty distance is filled with the default.
func (c *Configuration) Validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("vector dimension must be positive")
	}
	if c.Distance == "" {
		c.Distance = DefaultDistance
	}
	if !c.Distance.IsValid() {
		return fmt.Errorf("invalid distance metric %q", c.Distance)
	}
	return nil
}

// Binding associates a collection handle with an optional embedding function.
type Binding struct {
	fn        domain.EmbeddingFunction
	dimension int
}

// NewBinding creates a binding for a collection of the given dimension.
func NewBinding(fn domain.EmbeddingFunction, dimension int) Binding {
	return Binding{fn: fn, dimension: dimension}
}

// Function returns the bound embedding function, nil if none.
func (b Binding) Function() domain.EmbeddingFunction { return b.fn }

// HasFunction reports whether an embedding function is bound.
func (b Binding) HasFunction() bool { return b.fn != nil }

// Dimension returns the declared dimension, 0 if unknown.
func (b Binding) Dimension() int { return b.dimension }

// Collection is the record collection aggregate (immutable value object).
type Collection struct {
	id        string
	name      string
	config    Configuration
	metadata  map[string]any
	fields    []field.Field
	createdAt int64
	binding   Binding
}

// ValidateName checks a collection name: ^[a-zA-Z0-9_-]+$, 1-64 chars.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name must be alphanumeric with underscores and hyphens")
	}
	return nil
}

func validateFields(fields []field.Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name()] {
			return fmt.Errorf("duplicate field name: %s", f.Name())
		}
		seen[f.Name()] = true
	}
	return nil
}

// New validates and creates a Collection with a fresh id.
func New(name string, cfg Configuration, metadata map[string]any, fields []field.Field) (Collection, error) {
	if err := ValidateName(name); err != nil {
		return Collection{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Collection{}, err
	}
	if err := validateFields(fields); err != nil {
		return Collection{}, err
	}
	return Collection{
		id:        uuid.NewString(),
		name:      name,
		config:    cfg,
		metadata:  maps.Clone(metadata),
		fields:    fields,
		createdAt: time.Now().UnixMilli(),
		binding:   NewBinding(nil, cfg.Dimension),
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(
	id, name string, cfg Configuration, metadata map[string]any,
	fields []field.Field, createdAt int64,
) Collection {
	if cfg.Distance == "" {
		cfg.Distance = DefaultDistance
	}
	return Collection{
		id:        id,
		name:      name,
		config:    cfg,
		metadata:  metadata,
		fields:    fields,
		createdAt: createdAt,
		binding:   NewBinding(nil, cfg.Dimension),
	}
}

// Bind returns a handle with fn bound. The receiver is not modified.
func (c Collection) Bind(fn domain.EmbeddingFunction) Collection {
	c.binding = NewBinding(fn, c.config.Dimension)
	return c
}

// ID returns the collection id.
func (c Collection) ID() string { return c.id }

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Dimension returns the fixed vector dimension.
func (c Collection) Dimension() int { return c.config.Dimension }

// Distance returns the distance metric.
func (c Collection) Distance() Distance { return c.config.Distance }

// Configuration returns the index configuration.
func (c Collection) Configuration() Configuration { return c.config }

// Metadata returns a copy of the collection metadata.
func (c Collection) Metadata() map[string]any { return maps.Clone(c.metadata) }

// Fields returns the known metadata fields.
func (c Collection) Fields() []field.Field { return c.fields }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// Binding returns the embedding function binding.
func (c Collection) Binding() Binding { return c.binding }

// FieldByName looks up a field by name.
func (c Collection) FieldByName(name string) (field.Field, bool) {
	for _, f := range c.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// InferFields checks metadata values against the known fields and returns
// the fields seen for the first time, sorted by name. Keys that are not
// filterable identifiers are stored but never enter the schema.
func (c Collection) InferFields(metadatas []map[string]any) ([]field.Field, error) {
	known := make(map[string]field.Family, len(c.fields))
	for _, f := range c.fields {
		known[f.Name()] = f.Family()
	}
	added := map[string]field.Family{}
	for i, m := range metadatas {
		for k, v := range m {
			fam, ok := field.FamilyOf(v)
			if !ok {
				return nil, fmt.Errorf("%w: metadata %d key %q has unsupported value type %T",
					domain.ErrSchemaConflict, i, k, v)
			}
			if field.ValidateName(k) != nil {
				continue
			}
			if want, ok := known[k]; ok {
				if want != fam {
					return nil, fmt.Errorf("%w: metadata %d key %q is %s, field is %s",
						domain.ErrSchemaConflict, i, k, fam, want)
				}
				continue
			}
			known[k] = fam
			added[k] = fam
		}
	}
	names := make([]string, 0, len(added))
	for k := range added {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]field.Field, 0, len(names))
	for _, n := range names {
		out = append(out, field.Reconstruct(n, added[n]))
	}
	return out, nil
}

// WithFields returns a copy with extra fields appended.
func (c Collection) WithFields(extra []field.Field) Collection {
	fields := make([]field.Field, 0, len(c.fields)+len(extra))
	fields = append(fields, c.fields...)
	c.fields = append(fields, extra...)
	return c
}
