package tagcsv

import "log/slog"

// Option configures a Cascade, Decoder or Sniffer.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	mode        HeaderMode
	maxFileSize int64
	schema      []string
	strategies  []Strategy
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.DiscardHandler),
		mode:   AutoRepairHeaders,
		schema: FixedSchema(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger every stage reports to. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHeaderMode selects strict or auto-repairing header normalization.
func WithHeaderMode(m HeaderMode) Option {
	return func(o *options) { o.mode = m }
}

// WithMaxFileSize rejects files larger than n bytes. Zero means no limit.
func WithMaxFileSize(n int64) Option {
	return func(o *options) { o.maxFileSize = n }
}

// WithFixedSchema replaces the column layout assumed by the last-resort stage.
func WithFixedSchema(names []string) Option {
	return func(o *options) {
		if len(names) > 0 {
			o.schema = append([]string(nil), names...)
		}
	}
}

// WithStrategies replaces the default stage list of a Cascade.
func WithStrategies(s ...Strategy) Option {
	return func(o *options) { o.strategies = s }
}
