package publisher

// Registry is an explicit name -> Publisher map built once at startup and
// handed to the dispatcher. Nothing looks publishers up through globals.
type Registry struct {
	publishers map[string]Publisher
	names      []string
}

func NewRegistry(publishers ...Publisher) *Registry {
	r := &Registry{publishers: make(map[string]Publisher)}
	for _, p := range publishers {
		if _, exists := r.publishers[p.Name()]; exists {
			continue
		}
		r.publishers[p.Name()] = p
		r.names = append(r.names, p.Name())
	}
	return r
}

func (r *Registry) Get(name string) Publisher {
	return r.publishers[name]
}

func (r *Registry) Has(name string) bool {
	_, ok := r.publishers[name]
	return ok
}

// Names returns registered publisher names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}
