package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedProvider struct{ name string }

func (p *namedProvider) GetName() string                   { return p.name }
func (p *namedProvider) ContextWindow() int                { return 100 }
func (p *namedProvider) HealthCheck(context.Context) error { return nil }

func (p *namedProvider) Correct(_ context.Context, req *Request) (*Response, error) {
	return &Response{Text: req.Text}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	p := &namedProvider{name: "alpha"}

	require.NoError(t, reg.Register("alpha", p))

	got, err := reg.Get("alpha")
	require.NoError(t, err)
	assert.Same(t, p, got)
}

func TestRegistryDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("alpha", &namedProvider{name: "alpha"}))
	assert.Error(t, reg.Register("alpha", &namedProvider{name: "alpha"}))
}

func TestRegistryGetMissing(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("ghost")
	assert.Error(t, err)
}

func TestRegistryListSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(name, &namedProvider{name: name}))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.List())
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("alpha", &namedProvider{name: "alpha"}))
	reg.Remove("alpha")
	_, err := reg.Get("alpha")
	assert.Error(t, err)
}
