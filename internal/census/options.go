package census

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/census-mcp/internal/codec"
	"github.com/dshills/census-mcp/internal/logging"
	"github.com/dshills/census-mcp/pkg/manifold"
)

// DefaultSchemaCacheSize bounds the registry's schema cache.
const DefaultSchemaCacheSize = 64

// SchemaCache remembers column declarations per catalog relation, so that
// reconfigured tables skip introspection.
type SchemaCache = lru.Cache[string, map[string]string]

// NewSchemaCache returns a schema cache holding up to size relations.
func NewSchemaCache(size int) (*SchemaCache, error) {
	if size <= 0 {
		size = DefaultSchemaCacheSize
	}
	return lru.New[string, map[string]string](size)
}

type options struct {
	factory manifold.Factory
	hasher  manifold.Hasher
	decoder codec.MatrixDecoder
	logger  *slog.Logger
	schemas *SchemaCache
}

func defaultOptions() options {
	return options{
		factory: manifold.NewRecord,
		hasher:  manifold.BodyHash,
		decoder: codec.DecodeMatrices,
		logger:  logging.Discard(),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures tables, lookups and registries.
type Option func(*options)

// WithFactory sets the constructor for empty manifolds.
// Default: manifold.NewRecord.
func WithFactory(f manifold.Factory) Option {
	return func(o *options) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithHasher sets the function whose output is matched against the hash
// column. Default: manifold.BodyHash.
func WithHasher(h manifold.Hasher) Option {
	return func(o *options) {
		if h != nil {
			o.hasher = h
		}
	}
}

// WithMatrixDecoder replaces the change-of-basis block decoder.
func WithMatrixDecoder(d codec.MatrixDecoder) Option {
	return func(o *options) {
		if d != nil {
			o.decoder = d
		}
	}
}

// WithLogger sets the structured logger. Default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSchemaCache shares a schema cache between tables.
func WithSchemaCache(c *SchemaCache) Option {
	return func(o *options) {
		o.schemas = c
	}
}
