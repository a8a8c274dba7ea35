package redirect

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeAssembly struct {
	id AssemblyName
}

func (a *fakeAssembly) Identity() AssemblyName { return a.id }

// recordingLoader returns a fake assembly for every load and remembers
// the requested identities.
type recordingLoader struct {
	mu     sync.Mutex
	loaded []AssemblyName
	err    error
}

func (l *recordingLoader) Load(name AssemblyName) (Assembly, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = append(l.loaded, name)
	if l.err != nil {
		return nil, l.err
	}
	return &fakeAssembly{id: name}, nil
}

type funcHandler struct {
	match   func(Request) bool
	resolve func(Request) (Assembly, error)
}

func (h funcHandler) Match(req Request) bool                { return h.match(req) }
func (h funcHandler) Resolve(req Request) (Assembly, error) { return h.resolve(req) }

func constHandler(name string, calls *int) Handler {
	return funcHandler{
		match: func(req Request) bool { return req.Name == name },
		resolve: func(req Request) (Assembly, error) {
			*calls++
			return &fakeAssembly{id: AssemblyName{Name: name}}, nil
		},
	}
}

func TestRegistryFirstMatchWins(t *testing.T) {
	require := require.New(t)

	reg := NewRegistry()
	var a, b int
	reg.Register(constHandler("X", &a))
	reg.Register(constHandler("X", &b))

	asm, err := reg.Resolve(Request{Name: "X"})
	require.NoError(err)
	require.Equal("X", asm.Identity().Name)
	require.Equal(1, a)
	require.Equal(0, b)
	require.Equal(2, reg.Len())
}

func TestRegistryNotResolved(t *testing.T) {
	reg := NewRegistry()
	var calls int
	reg.Register(constHandler("X", &calls))

	_, err := reg.Resolve(Request{Name: "Y"})
	require.ErrorIs(t, err, ErrNotResolved)
	require.Equal(t, 0, calls)
	require.Equal(t, 1, reg.Len())
}

func TestRegistryOnce(t *testing.T) {
	require := require.New(t)

	reg := NewRegistry()
	var calls int
	reg.Register(constHandler("X", &calls), Once())

	_, err := reg.Resolve(Request{Name: "X"})
	require.NoError(err)
	require.Equal(0, reg.Len())

	_, err = reg.Resolve(Request{Name: "X"})
	require.ErrorIs(err, ErrNotResolved)
	require.Equal(1, calls)
}

func TestRegistrationUnregister(t *testing.T) {
	require := require.New(t)

	reg := NewRegistry()
	var calls int
	r := reg.Register(constHandler("X", &calls))
	require.True(r.Unregister())
	require.False(r.Unregister())
	require.Equal(0, reg.Len())
}

func TestRegistryResolveMayReenter(t *testing.T) {
	require := require.New(t)

	reg := NewRegistry()
	var inner int
	reg.Register(funcHandler{
		match: func(req Request) bool { return req.Name == "Outer" },
		resolve: func(req Request) (Assembly, error) {
			return reg.Resolve(Request{Name: "Inner", RequestingAssembly: req.Name})
		},
	})
	reg.Register(constHandler("Inner", &inner))

	asm, err := reg.Resolve(Request{Name: "Outer"})
	require.NoError(err)
	require.Equal("Inner", asm.Identity().Name)
	require.Equal(1, inner)
}

func TestRegistryPropagatesErrors(t *testing.T) {
	errBoom := errors.New("boom")
	reg := NewRegistry()
	reg.Register(funcHandler{
		match:   func(Request) bool { return true },
		resolve: func(Request) (Assembly, error) { return nil, errBoom },
	})
	_, err := reg.Resolve(Request{Name: "X"})
	require.ErrorIs(t, err, errBoom)
}

func TestRegistryOnceConcurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	require := require.New(t)

	reg := NewRegistry()
	var fired atomic.Int32
	reg.Register(funcHandler{
		match: func(req Request) bool { return req.Name == "X" },
		resolve: func(Request) (Assembly, error) {
			fired.Add(1)
			return &fakeAssembly{}, nil
		},
	}, Once())
	var other int
	reg.Register(constHandler("Y", &other))

	const n = 64
	var wg sync.WaitGroup
	var resolved atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Resolve(Request{Name: "X"}); err == nil {
				resolved.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(1, fired.Load())
	require.EqualValues(1, resolved.Load())
	require.Equal(1, reg.Len())
}

func TestDefaultRegistry(t *testing.T) {
	require.Same(t, Default(), Default())
}
