package connfx

// NewRegistryOption defines functional options for Registry.
type NewRegistryOption func(*Registry)

// WithLogger sets the logger for the registry.
func WithLogger(logger Logger) NewRegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithFactories registers a caller-supplied set of connection factories.
// Unlike the upstream ajan connfx (which ships default SQL/Redis/AMQP/HTTP/OTLP
// factories), this engine only ever connects shard Stores and replication
// links, so the node's appcontext registers those two factories explicitly
// instead of relying on a built-in default set.
func WithFactories(factories ...ConnectionFactory) NewRegistryOption {
	return func(r *Registry) {
		for _, factory := range factories {
			r.RegisterFactory(factory)
		}
	}
}
