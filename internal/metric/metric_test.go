package metric_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"marketbrief/internal/metric"
)

func ptr(v float64) *float64 { return &v }

func TestChangePercent(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name      string
		current   *float64
		reference *float64
		want      *float64
	}{
		{name: "missing current", current: nil, reference: ptr(100)},
		{name: "missing reference", current: ptr(100), reference: nil},
		{name: "zero reference", current: ptr(100), reference: ptr(0)},
		{name: "nan current", current: ptr(math.NaN()), reference: ptr(100)},
		{name: "nan reference", current: ptr(100), reference: ptr(math.NaN())},
		{name: "inf reference", current: ptr(100), reference: ptr(math.Inf(-1))},
		{name: "up", current: ptr(110), reference: ptr(100), want: ptr(10)},
		{name: "down", current: ptr(90), reference: ptr(100), want: ptr(-10)},
		{name: "flat", current: ptr(100), reference: ptr(100), want: ptr(0)},
		{name: "negative reference", current: ptr(-90), reference: ptr(-100), want: ptr(-10)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Act: compute the change
			got := metric.ChangePercent(tc.current, tc.reference)

			// Assert: absent or within tolerance
			if tc.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.InDelta(t, *tc.want, *got, 1e-9)
		})
	}
}

func TestChangePercent_EndToEndValue(t *testing.T) {
	t.Parallel()

	// Act: ES=F at 4500.25 against 4480.00
	got := metric.ChangePercent(ptr(4500.25), ptr(4480))

	// Assert: roughly 0.452%
	require.NotNil(t, got)
	require.InDelta(t, 0.452, *got, 0.001)
}
