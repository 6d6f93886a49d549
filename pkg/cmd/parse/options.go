package parse

import (
	"github.com/maxgio92/xperfasm/pkg/cmd/options"
)

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := new(Options)
	o.CommonOptions = options.NewCommonOptions()

	for _, f := range opts {
		f(o)
	}

	return o
}

// WithCommonOptions shares the options bound to the root command flags.
func WithCommonOptions(common *options.CommonOptions) Option {
	return func(o *Options) {
		o.CommonOptions = common
	}
}
