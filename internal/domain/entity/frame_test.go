package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func frameWith(index int, labels ...string) Frame {
	f := Frame{Index: index, ImageURL: "http://svc/frames/f.jpg"}
	for _, l := range labels {
		f.Detections = append(f.Detections, Detection{Label: l})
	}
	return f
}

func TestFilterFrames_KeepsOrderedSubsequence(t *testing.T) {
	frames := []Frame{
		frameWith(0),
		frameWith(30, "pothole"),
		frameWith(60),
		frameWith(90, "lateral crack", "pothole"),
		frameWith(120, "longitudinal crack"),
	}

	filtered := FilterFrames(frames)
	require.Len(t, filtered, 3)
	require.Equal(t, []int{30, 90, 120}, []int{filtered[0].Index, filtered[1].Index, filtered[2].Index})
	require.LessOrEqual(t, len(filtered), len(frames))

	for _, f := range filtered {
		require.NotEmpty(t, f.Detections)
	}
}

func TestFilterFrames_Empty(t *testing.T) {
	require.Empty(t, FilterFrames(nil))
	require.Empty(t, FilterFrames([]Frame{frameWith(0), frameWith(1)}))
}

func TestSelectFrame(t *testing.T) {
	filtered := []Frame{frameWith(1, "pothole"), frameWith(2, "pothole"), frameWith(3, "pothole")}

	tests := []struct {
		name      string
		frames    []Frame
		requested int
		want      int
		ok        bool
	}{
		{"in range", filtered, 1, 1, true},
		{"negative", filtered, -5, 0, true},
		{"past end", filtered, 10, 2, true},
		{"empty", nil, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectFrame(tt.frames, tt.requested)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStepFrame_WrapsAround(t *testing.T) {
	filtered := []Frame{frameWith(1, "pothole"), frameWith(2, "pothole"), frameWith(3, "pothole")}

	next, ok := StepFrame(filtered, 2, 1)
	require.True(t, ok)
	require.Equal(t, 0, next)

	prev, ok := StepFrame(filtered, 0, -1)
	require.True(t, ok)
	require.Equal(t, 2, prev)

	_, ok = StepFrame(nil, 0, 1)
	require.False(t, ok)
}

func TestStepFrame_NeverOutOfRange(t *testing.T) {
	filtered := []Frame{frameWith(1, "pothole"), frameWith(2, "pothole")}
	current := 0
	for _, delta := range []int{1, 1, -3, 7, -11, 0, 2} {
		var ok bool
		current, ok = StepFrame(filtered, current, delta)
		require.True(t, ok)
		require.GreaterOrEqual(t, current, 0)
		require.Less(t, current, len(filtered))
	}
}

func TestFormatElapsed(t *testing.T) {
	require.Equal(t, "0m 3s", FormatElapsed(90, 30))
	require.Equal(t, "1m 1s", FormatElapsed(1830, 30))
	require.Equal(t, "0m 0s", FormatElapsed(0, 30))
	require.Equal(t, "0m 1s", FormatElapsed(59, 29.97))
	require.Equal(t, "0m 2s", FormatElapsed(60, 0))
}
