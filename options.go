package heapview

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
}

// Option configures History construction.
//
// Options exist to avoid exploding the constructor surface; the zero
// configuration (no logging, no metrics) is fully functional.
type Option func(*options)

// WithLogger configures structured logging for record, rebuild and dump
// operations. If nil is passed, logging stays disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures operational metrics collection.
// If nil is passed, metrics stay disabled.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}
