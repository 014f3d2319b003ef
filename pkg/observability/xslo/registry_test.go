package xslo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(
		New("search").Latency(Ms100, P95),
		New("api").SuccessRate(P99_9),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"api", "search"}, r.Names())

	o, ok := r.Lookup("api")
	require.True(t, ok)
	assert.Equal(t, "api", o.Name())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestNewRegistry_Errors(t *testing.T) {
	_, err := NewRegistry(New("a").SuccessRate(P99), New("a").SuccessRate(P95))
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = NewRegistry(New("a"))
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestRegistry_NilSafe(t *testing.T) {
	var r *Registry
	_, ok := r.Lookup("a")
	assert.False(t, ok)
	assert.Nil(t, r.Names())
	assert.Zero(t, r.Len())
}

func TestRegistry_NamesIsCopy(t *testing.T) {
	r, err := NewRegistry(New("a").SuccessRate(P99))
	require.NoError(t, err)

	names := r.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"a"}, r.Names())
}

func TestDefinition_Objective(t *testing.T) {
	d := Definition{
		Name:        "api",
		SuccessRate: "99.9",
		Latency:     &LatencyDefinition{Threshold: "250ms", Percentile: "99"},
	}
	o, err := d.Objective()
	require.NoError(t, err)
	assert.Equal(t, New("api").SuccessRate(P99_9).Latency(Ms250, P99), o)
}

func TestDefinition_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		err  error
	}{
		{"bad rate", Definition{Name: "a", SuccessRate: "12"}, ErrInvalidPercentile},
		{"bad threshold", Definition{Name: "a", Latency: &LatencyDefinition{Threshold: "3ms", Percentile: "99"}}, ErrInvalidLatency},
		{"bad latency percentile", Definition{Name: "a", Latency: &LatencyDefinition{Threshold: "1s", Percentile: "1"}}, ErrInvalidPercentile},
		{"no target", Definition{Name: "a"}, ErrNoTarget},
		{"no name", Definition{SuccessRate: "99"}, ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.def.Objective()
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRegistryFromDefinitions(t *testing.T) {
	r, err := RegistryFromDefinitions([]Definition{
		{Name: "api", SuccessRate: "99"},
		{Name: "batch", Latency: &LatencyDefinition{Threshold: "10s", Percentile: "90"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "batch"}, r.Names())

	_, err = RegistryFromDefinitions([]Definition{{Name: "x"}})
	assert.ErrorIs(t, err, ErrNoTarget)
}
