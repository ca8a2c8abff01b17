package observable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spinobs/container"
	"github.com/hupe1980/spinobs/observable"
)

func TestParseComponent(t *testing.T) {
	tests := []struct {
		name string
		want observable.Component
	}{
		{"xx", observable.ComponentXX},
		{"XY", observable.ComponentXY},
		{" zz ", observable.ComponentZZ},
		{"yx", observable.ComponentYX},
		{"all", observable.ComponentAll},
		{"ALL", observable.ComponentAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := observable.ParseComponent(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := observable.ParseComponent("qq")
	assert.ErrorIs(t, err, observable.ErrUnknownComponent)

	_, err = observable.ParseComponent("")
	assert.ErrorIs(t, err, observable.ErrUnknownComponent)
}

func TestComponentString(t *testing.T) {
	assert.Equal(t, "xx", observable.ComponentXX.String())
	assert.Equal(t, "zy", observable.ComponentZY.String())
	assert.Equal(t, "all", observable.ComponentAll.String())
}

func TestComponentReduce(t *testing.T) {
	tensor := container.Tensor{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}

	tests := []struct {
		component observable.Component
		want      float64
	}{
		{observable.ComponentXX, 1},
		{observable.ComponentXZ, 3},
		{observable.ComponentYY, 5},
		{observable.ComponentYZ, 6},
		{observable.ComponentZX, 7},
		{observable.ComponentZZ, 9},
		{observable.ComponentAll, 15},
	}
	for _, tt := range tests {
		t.Run(tt.component.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.component.Reduce(tensor))
		})
	}
}
