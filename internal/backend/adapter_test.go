package backend

import (
	"context"
	"testing"

	"github.com/lookout-vision/lookout/internal/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	name string
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Detect(_ context.Context, _ string) (*detection.Result, error) {
	return detection.NewResult(f.name, nil, 0), nil
}

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry(&fakeAdapter{name: NameYOLO}, &fakeAdapter{name: NameHaar})

	a, err := reg.Get(NameYOLO)
	require.NoError(t, err)
	assert.Equal(t, NameYOLO, a.Name())
}

func TestRegistry_Get_Unknown(t *testing.T) {
	reg := NewRegistry(&fakeAdapter{name: NameYOLO})

	_, err := reg.Get("nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, detection.ErrUnknownBackend)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestRegistry_Names_Sorted(t *testing.T) {
	reg := NewRegistry(
		&fakeAdapter{name: NameYOLO},
		&fakeAdapter{name: NameCloudB},
		&fakeAdapter{name: NameHaar},
		&fakeAdapter{name: NameCloudA},
	)

	assert.Equal(t, []string{NameCloudA, NameCloudB, NameHaar, NameYOLO}, reg.Names())
}

func TestRegistry_DuplicateNameReplaces(t *testing.T) {
	first := &fakeAdapter{name: NameYOLO}
	second := &fakeAdapter{name: NameYOLO}
	reg := NewRegistry(first, second)

	a, err := reg.Get(NameYOLO)
	require.NoError(t, err)
	assert.Same(t, second, a)
	assert.Len(t, reg.Names(), 1)
}
