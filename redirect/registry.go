package redirect

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrNotResolved is returned by [Registry.Resolve] if no registered
	// handler matched the request.
	ErrNotResolved = errors.New("no handler resolved the assembly")
	// ErrNoLoader is returned when a handler needs to load an assembly,
	// but the registry has no [Loader].
	ErrNoLoader = errors.New("no assembly loader configured")
)

// Request is an assembly load request that the default resolution
// could not satisfy.
type Request struct {
	// Display name of the requested assembly.
	Name string
	// Display name of the assembly that caused the load, or "" if unknown.
	RequestingAssembly string
}

// Assembly is a loaded assembly.
type Assembly interface {
	Identity() AssemblyName
}

// Loader loads assemblies by identity.
type Loader interface {
	Load(name AssemblyName) (Assembly, error)
}

// LoaderFunc adapts a function to the [Loader] interface.
type LoaderFunc func(name AssemblyName) (Assembly, error)

func (f LoaderFunc) Load(name AssemblyName) (Assembly, error) {
	return f(name)
}

// Handler takes part in assembly resolution.
//
// Match is called with the registry locked and must not call back into
// the registry. Resolve is only called after Match returned true, with
// the registry unlocked.
type Handler interface {
	Match(req Request) bool
	Resolve(req Request) (Assembly, error)
}

type registerOptions struct {
	once bool
}

// RegisterOption configures a single [Registry.Register] call.
type RegisterOption func(*registerOptions)

// Once makes the handler run at most once: it is removed in the same
// critical section that decides it matches.
func Once() RegisterOption {
	return func(o *registerOptions) {
		o.once = true
	}
}

type entry struct {
	h    Handler
	once bool
}

// Registration is the result of registering a handler.
type Registration struct {
	reg *Registry
	e   *entry
}

// Unregister removes the handler. It reports whether the handler was
// still registered.
func (r *Registration) Unregister() bool {
	r.reg.mu.Lock()
	defer r.reg.mu.Unlock()
	return r.reg.removeLocked(r.e)
}

// Option configures a [Registry].
type Option func(*Registry)

// WithLoader sets the loader used by redirect handlers.
func WithLoader(l Loader) Option {
	return func(r *Registry) {
		r.loader = l
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// Registry is a loader-hook registry: an ordered set of handlers that are
// consulted when an assembly cannot be found.
//
// The zero value is not usable; use [NewRegistry].
type Registry struct {
	mu      sync.Mutex
	entries []*entry
	loader  Loader
	log     *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetLoader replaces the loader used by redirect handlers.
func (r *Registry) SetLoader(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loader = l
}

// Loader returns the current loader, which may be nil.
func (r *Registry) Loader() Loader {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loader
}

// SetLogger replaces the logger. A nil log discards everything.
func (r *Registry) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = log
}

// Logger returns the registry's logger.
func (r *Registry) Logger() *zap.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log
}

// Register appends h to the handler list.
func (r *Registry) Register(h Handler, opts ...RegisterOption) *Registration {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	e := &entry{h: h, once: o.once}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return &Registration{reg: r, e: e}
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) removeLocked(e *entry) bool {
	for i, x := range r.entries {
		if x == e {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Resolve asks the registered handlers, in registration order, to resolve
// req. The first handler that matches decides the result; run-once
// handlers are unregistered before they resolve.
//
// If no handler matches, Resolve returns [ErrNotResolved].
func (r *Registry) Resolve(req Request) (Assembly, error) {
	r.mu.Lock()
	var h Handler
	for _, e := range r.entries {
		if !e.h.Match(req) {
			continue
		}
		h = e.h
		if e.once {
			r.removeLocked(e)
		}
		break
	}
	r.mu.Unlock()

	if h == nil {
		return nil, fmt.Errorf("%v: %w", req.Name, ErrNotResolved)
	}
	asm, err := h.Resolve(req)
	if err != nil {
		return nil, fmt.Errorf("resolve %v: %w", req.Name, err)
	}
	return asm, nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry used by generated code.
// Its logger discards everything until [Registry.SetLogger] is called.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}
