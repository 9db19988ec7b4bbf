package seekdb

import "github.com/kailas-cloud/seekdb/internal/domain"

// CollectionOption configures collection creation and lookup.
type CollectionOption func(*collectionConfig)

type collectionConfig struct {
	configuration *HNSWConfiguration
	metadata      map[string]any
	function      domain.EmbeddingFunction
	functionSet   bool
}

// WithConfiguration fixes the dimension and distance of a new collection.
// Without it the dimension is probed from the embedding function.
func WithConfiguration(cfg HNSWConfiguration) CollectionOption {
	return func(c *collectionConfig) {
		c.configuration = &cfg
	}
}

// WithMetadata attaches free-form metadata to a new collection.
func WithMetadata(md map[string]any) CollectionOption {
	return func(c *collectionConfig) {
		c.metadata = md
	}
}

// WithFunction binds fn instead of the client's embedding function.
// Its dimension must match the collection.
func WithFunction(fn EmbeddingFunction) CollectionOption {
	return func(c *collectionConfig) {
		c.function = fn
		c.functionSet = true
	}
}

// WithoutFunction binds no embedding function; writes and queries must
// then carry vectors.
func WithoutFunction() CollectionOption {
	return WithFunction(nil)
}
