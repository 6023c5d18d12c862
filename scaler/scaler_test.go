package scaler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalers(t *testing.T) {
	rows := [][]float64{
		{1, -4, 5},
		{2, 2, 5},
		{3, 0, 5},
		{6, 2, 5},
	}

	testData := map[string]struct {
		kind     Kind
		expected [][]float64
	}{
		"identity": {
			kind:     KindIdentity,
			expected: rows,
		},
		"standard": {
			kind: KindStandard,
			// col0 mean 3 std sqrt(3.5), col1 mean 0 std sqrt(6), col2 constant
			expected: [][]float64{
				{-2 / 1.8708286933869707, -4 / 2.449489742783178, 0},
				{-1 / 1.8708286933869707, 2 / 2.449489742783178, 0},
				{0, 0, 0},
				{3 / 1.8708286933869707, 2 / 2.449489742783178, 0},
			},
		},
		"minmax": {
			kind: KindMinMax,
			expected: [][]float64{
				{0, 0, 0},
				{0.2, 1, 0},
				{0.4, 4.0 / 6.0, 0},
				{1, 1, 0},
			},
		},
		"maxabs": {
			kind: KindMaxAbs,
			expected: [][]float64{
				{1.0 / 6.0, -1, 1},
				{2.0 / 6.0, 0.5, 1},
				{0.5, 0, 1},
				{1, 0.5, 1},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s, err := New(td.kind)
			require.Nil(t, err)
			assert.Equal(t, td.kind, s.Kind())

			_, err = s.Transform(rows)
			assert.ErrorIs(t, err, ErrNotFitted)

			require.Nil(t, s.Fit(rows))

			res, err := s.Transform(rows)
			require.Nil(t, err)
			for i := range rows {
				assert.InDeltaSlice(t, td.expected[i], res[i], 1e-9)
			}

			back, err := s.Inverse(res)
			require.Nil(t, err)
			for i := range rows {
				assert.InDeltaSlice(t, rows[i], back[i], 1e-9)
			}

			_, err = s.Transform([][]float64{{1, 2}})
			assert.ErrorIs(t, err, ErrWidthMismatch)
		})
	}
}

func TestNewUnknown(t *testing.T) {
	_, err := New("robust")
	assert.ErrorIs(t, err, ErrUnknownScaling)
}

func TestFitErrors(t *testing.T) {
	s, err := New(KindStandard)
	require.Nil(t, err)

	assert.ErrorIs(t, s.Fit(nil), ErrNoRows)
	assert.ErrorIs(t, s.Fit([][]float64{{1, 2}, {3}}), ErrWidthMismatch)
}

func TestColumnFlatten(t *testing.T) {
	y := []float64{1, 2, 3}
	assert.Equal(t, [][]float64{{1}, {2}, {3}}, Column(y))
	assert.Equal(t, y, Flatten(Column(y)))
}
