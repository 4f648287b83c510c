package entity

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func selectedSession(t *testing.T) Session {
	t.Helper()
	s := NewSession(10, 0.4)
	s = Reduce(s, FileSelected{File: SourceFile{Name: "road.jpg", MediaType: "image/jpeg", Data: []byte("img")}})
	require.Equal(t, StatusFileSelected, s.Status)
	return s
}

func TestNewSession_DefaultState(t *testing.T) {
	s := NewSession(10, 1.7)
	require.Equal(t, StatusIdle, s.Status)
	require.Equal(t, int64(10), s.ChatID)
	require.Equal(t, 1.0, s.Threshold)
	require.ErrorIs(t, s.CanSubmit(), ErrNoFileSelected)
}

func TestClampThreshold(t *testing.T) {
	require.Equal(t, 0.0, ClampThreshold(-0.3))
	require.Equal(t, 1.0, ClampThreshold(3))
	require.Equal(t, 0.5, ClampThreshold(0.5))
	require.Equal(t, 0.0, ClampThreshold(math.NaN()))
}

func TestReduce_ImageFlow(t *testing.T) {
	s := selectedSession(t)
	gen := s.Generation

	s = Reduce(s, SubmissionStarted{})
	require.Equal(t, StatusSubmitting, s.Status)
	require.ErrorIs(t, s.CanSubmit(), ErrSubmissionPending)

	// второй старт во время отправки ничего не меняет
	again := Reduce(s, SubmissionStarted{})
	require.Equal(t, s.Status, again.Status)

	s = Reduce(s, SubmissionSucceeded{Generation: gen, Result: ImageResult{Image: []byte("jpg"), Detections: []Detection{{Label: "pothole"}}}})
	require.Equal(t, StatusAnalyzed, s.Status)
	require.Equal(t, ModeImage, s.Result.Mode())
	require.False(t, s.HasFrame)
	require.Empty(t, s.Filtered)
}

func TestReduce_VideoFlowSelectsFirstFilteredFrame(t *testing.T) {
	s := selectedSession(t)
	s = Reduce(s, SubmissionStarted{})

	video := VideoResult{FPS: 30, Frames: []Frame{
		{Index: 0},
		{Index: 30, Detections: []Detection{{Label: "pothole"}}},
		{Index: 60, Detections: []Detection{{Label: "lateral crack"}}},
	}}
	s = Reduce(s, SubmissionSucceeded{Generation: s.Generation, Result: video})

	require.Equal(t, StatusAnalyzed, s.Status)
	require.Len(t, s.Filtered, 2)
	frame, ok := s.CurrentFrame()
	require.True(t, ok)
	require.Equal(t, 30, frame.Index)

	s = Reduce(s, FrameSelected{Index: 99})
	require.Equal(t, 1, s.FrameIndex)
	s = Reduce(s, FrameSelected{Index: -1})
	require.Equal(t, 0, s.FrameIndex)
}

func TestReduce_VideoWithoutDetectionsHasNoFrame(t *testing.T) {
	s := Reduce(selectedSession(t), SubmissionStarted{})
	s = Reduce(s, SubmissionSucceeded{Generation: s.Generation, Result: VideoResult{FPS: 25, Frames: []Frame{{Index: 0}, {Index: 25}}}})

	require.Equal(t, StatusAnalyzed, s.Status)
	require.Empty(t, s.Filtered)
	require.False(t, s.HasFrame)
	_, ok := s.CurrentFrame()
	require.False(t, ok)

	s = Reduce(s, FrameSelected{Index: 0})
	require.False(t, s.HasFrame)
}

func TestReduce_FailureReturnsToFileSelected(t *testing.T) {
	s := Reduce(selectedSession(t), SubmissionStarted{})
	s = Reduce(s, SubmissionFailed{Generation: s.Generation, Err: errors.New("connection refused")})

	require.Equal(t, StatusFileSelected, s.Status)
	require.Equal(t, "connection refused", s.LastError)
	require.NoError(t, s.CanSubmit())

	s = Reduce(s, SubmissionStarted{})
	require.Equal(t, StatusSubmitting, s.Status)
	require.Empty(t, s.LastError)
}

func TestReduce_StaleResponseDiscarded(t *testing.T) {
	s := Reduce(selectedSession(t), SubmissionStarted{})
	staleGen := s.Generation

	s = Reduce(s, FileSelected{File: SourceFile{Name: "other.mp4", MediaType: "video/mp4", Data: []byte("v")}})
	require.Equal(t, StatusFileSelected, s.Status)

	after := Reduce(s, SubmissionSucceeded{Generation: staleGen, Result: ImageResult{}})
	require.Equal(t, StatusFileSelected, after.Status)
	require.Nil(t, after.Result)

	after = Reduce(s, SubmissionFailed{Generation: staleGen, Err: errors.New("late")})
	require.Empty(t, after.LastError)
}

func TestReduce_FileSelectedReplacesSession(t *testing.T) {
	s := Reduce(selectedSession(t), SubmissionStarted{})
	s = Reduce(s, SubmissionSucceeded{Generation: s.Generation, Result: VideoResult{FPS: 30, Frames: []Frame{{Index: 1, Detections: []Detection{{Label: "pothole"}}}}}})
	require.True(t, s.HasFrame)

	next := Reduce(s, FileSelected{File: SourceFile{Name: "b.jpg", MediaType: "image/jpeg", Data: []byte("b")}, Preview: []byte("p")})
	require.Equal(t, StatusFileSelected, next.Status)
	require.Nil(t, next.Result)
	require.Nil(t, next.Filtered)
	require.False(t, next.HasFrame)
	require.Equal(t, s.Threshold, next.Threshold)
	require.Equal(t, s.Generation+1, next.Generation)
	require.Equal(t, "b.jpg", next.Source.Name)

	// старая сессия не изменилась
	require.Equal(t, StatusAnalyzed, s.Status)
}

func TestReduce_ResetAndThreshold(t *testing.T) {
	s := selectedSession(t)
	s = Reduce(s, ThresholdChanged{Value: 7})
	require.Equal(t, 1.0, s.Threshold)

	gen := s.Generation
	s = Reduce(s, Reset{})
	require.Equal(t, StatusIdle, s.Status)
	require.Nil(t, s.Source)
	require.Equal(t, gen+1, s.Generation)
	require.Equal(t, 1.0, s.Threshold)
}
