package querysync

import "github.com/vango-dev/querysync/pkg/vango"

// Option configures a Synchronizer.
type Option func(*options)

type options struct {
	deps    []vango.Source
	context string
}

// WithDeps delays the first query-to-store pass until one of deps changes,
// and repeats it on every later change instead of running it at mount.
func WithDeps(deps ...vango.Source) Option {
	return func(o *options) {
		o.deps = append(o.deps, deps...)
	}
}

// WithContext prefixes the query key with context and an underscore.
func WithContext(context string) Option {
	return func(o *options) {
		o.context = context
	}
}
