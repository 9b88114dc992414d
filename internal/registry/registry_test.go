package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mharrison-oss/sessiond/internal/registry"
)

func TestNew_StartsEmpty(t *testing.T) {
	r := registry.New()
	assert.Equal(t, []int64{}, r.Ascending())
	assert.False(t, r.Has(0))
}

func TestAddRemove(t *testing.T) {
	r := registry.New()
	r.Add(5)
	r.Add(3)
	assert.Equal(t, []int64{3, 5}, r.Ascending())

	r.Remove(3)
	assert.False(t, r.Has(3))
	assert.Equal(t, []int64{5}, r.Ascending())
}

func TestRemove_Idempotent(t *testing.T) {
	r := registry.New()
	r.Remove(42)
	assert.Equal(t, []int64{}, r.Ascending())
}
