package profscale

// Option configures a Controller with optional dependencies.
type Option func(*controllerOptions)

// controllerOptions holds optional Controller configuration.
type controllerOptions struct {
	logger  Logger
	metrics MetricsCollector
	hooks   *Hooks
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewController
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	ctrl, err := profscale.NewController(cfg, services, profscale.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *controllerOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewController
//
// Example:
//
//	ctrl, err := profscale.NewController(cfg, services,
//	    profscale.WithMetrics(profscale.NewPrometheusMetrics(nil, "")))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *controllerOptions) {
		o.metrics = metrics
	}
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewController
//
// Example:
//
//	hooks := &profscale.Hooks{
//	    OnReconcilePass: func(ctx context.Context, result profscale.PassResult) error {
//	        return recordPass(result)
//	    },
//	}
//	ctrl, err := profscale.NewController(cfg, services, profscale.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *controllerOptions) {
		o.hooks = hooks
	}
}
