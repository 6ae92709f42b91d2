package voyager

import (
	"github.com/canbakiskan/voyager-node/resource"
	"github.com/canbakiskan/voyager-node/storage"
)

// Options configures a new index.
type Options struct {
	// M is the maximum neighbor count per node on layers above zero
	// (layer zero allows 2*M).
	M int

	// EfConstruction is the candidate beam width during insertion.
	EfConstruction int

	// RandomSeed seeds the layer assignment RNG.
	RandomSeed int64

	// MaxElements is the initial capacity; grow with ResizeIndex.
	MaxElements int

	// StorageDataType selects the stored vector encoding.
	StorageDataType storage.DataType

	// Ef is the default query beam width, used when a query passes ef=-1.
	Ef int

	// Logger receives structured logs. Defaults to a no-op logger.
	Logger *Logger

	// Controller throttles snapshot operations. Nil means unlimited.
	Controller *resource.Controller
}

// DefaultOptions returns the defaults: M=12, efConstruction=200,
// randomSeed=1, maxElements=1, Float32 storage, ef=10.
func DefaultOptions() Options {
	return Options{
		M:               12,
		EfConstruction:  200,
		RandomSeed:      1,
		MaxElements:     1,
		StorageDataType: storage.DataTypeFloat32,
		Ef:              10,
	}
}

// Option mutates Options.
type Option func(*Options)

// WithM sets the per-node neighbor cap.
func WithM(m int) Option {
	return func(o *Options) { o.M = m }
}

// WithEfConstruction sets the construction beam width.
func WithEfConstruction(ef int) Option {
	return func(o *Options) { o.EfConstruction = ef }
}

// WithRandomSeed seeds the layer assignment RNG.
func WithRandomSeed(seed int64) Option {
	return func(o *Options) { o.RandomSeed = seed }
}

// WithMaxElements sets the initial capacity.
func WithMaxElements(n int) Option {
	return func(o *Options) { o.MaxElements = n }
}

// WithStorageDataType selects the stored vector encoding.
func WithStorageDataType(t storage.DataType) Option {
	return func(o *Options) { o.StorageDataType = t }
}

// WithEf sets the default query beam width.
func WithEf(ef int) Option {
	return func(o *Options) { o.Ef = ef }
}

// WithLogger sets the structured logger.
func WithLogger(l *Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithResourceController sets the snapshot throttling controller.
func WithResourceController(c *resource.Controller) Option {
	return func(o *Options) { o.Controller = c }
}
