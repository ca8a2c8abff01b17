package compare_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spinobs/compare"
	"github.com/hupe1980/spinobs/container"
	"github.com/hupe1980/spinobs/testutil"
)

func decode(t *testing.T, data []byte) *container.Container {
	t.Helper()
	c, err := container.Decode(data)
	require.NoError(t, err)
	return c
}

func buildContainer(t *testing.T, mutate func(w *container.Writer)) *container.Container {
	t.Helper()

	w, err := testutil.NewTriangular().Writer()
	require.NoError(t, err)
	if mutate != nil {
		mutate(w)
	}
	data, err := w.Encode()
	require.NoError(t, err)
	return decode(t, data)
}

func TestContainersEqual(t *testing.T) {
	a := buildContainer(t, nil)
	b := buildContainer(t, nil)
	assert.NoError(t, compare.Containers(a, b))
}

func TestContainersWithinTolerance(t *testing.T) {
	a := buildContainer(t, nil)
	b := buildContainer(t, func(w *container.Writer) {
		meta := w.Group(testutil.ObservableName, container.GroupMeta)
		// Nudge one coordinate by less than the tolerance.
		require.NoError(t, meta.PutFloat64s(container.DatasetBasis, []int{2, 3},
			[]float64{0, 0, 1e-6, 1, 0, 0}))
	})

	assert.NoError(t, compare.Containers(a, b))
	assert.Error(t, compare.Containers(a, b, compare.WithTolerance(1e-9)))
}

func TestContainersValueMismatch(t *testing.T) {
	a := buildContainer(t, nil)
	b := buildContainer(t, func(w *container.Writer) {
		meta := w.Group(testutil.ObservableName, container.GroupMeta)
		require.NoError(t, meta.PutFloat64s(container.DatasetBasis, []int{2, 3},
			[]float64{0, 0, 0, 1.5, 0, 0}))
	})

	err := compare.Containers(a, b)
	var m *compare.Mismatch
	require.ErrorAs(t, err, &m)
	assert.Equal(t, testutil.ObservableName+"/meta/basis", m.Path)
}

func TestContainersShapeMismatch(t *testing.T) {
	a := buildContainer(t, nil)
	b := buildContainer(t, func(w *container.Writer) {
		meta := w.Group(testutil.ObservableName, container.GroupMeta)
		require.NoError(t, meta.PutFloat64s(container.DatasetBasis, []int{1, 3},
			[]float64{0, 0, 0}))
	})

	err := compare.Containers(a, b)
	var m *compare.Mismatch
	require.ErrorAs(t, err, &m)
	assert.Contains(t, m.Reason, "shape")
}

func TestContainersMissingDataset(t *testing.T) {
	a := buildContainer(t, nil)
	b := buildContainer(t, func(w *container.Writer) {
		meta := w.Group(testutil.ObservableName, container.GroupMeta)
		require.NoError(t, meta.PutFloat64s("extra", []int{1}, []float64{1}))
	})

	err := compare.Containers(a, b)
	var m *compare.Mismatch
	require.ErrorAs(t, err, &m)
	assert.Contains(t, m.Reason, "dataset")
}

func TestContainersAttrMismatch(t *testing.T) {
	a := buildContainer(t, nil)
	b := buildContainer(t, func(w *container.Writer) {
		data := w.Group(testutil.ObservableName, container.GroupData, "measurement_0")
		data.SetFloat64Attr(container.AttrFlowCutoff, 0.5)
	})

	err := compare.Containers(a, b)
	var m *compare.Mismatch
	require.ErrorAs(t, err, &m)
	assert.Equal(t, testutil.ObservableName+"/data/measurement_0/cutoff", m.Path)
}
