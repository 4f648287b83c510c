package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"aurorai/internal/domain/entity"
	"aurorai/internal/infrastructure/knowledge"
)

func TestHazardText_SkipsUnknownLabels(t *testing.T) {
	kb := knowledge.MustDefault()

	text := hazardText(kb, []entity.Detection{
		{Label: "pothole", Confidence: 0.82},
		{Label: "manhole"},
		{Label: "lateral crack"},
	})

	require.Contains(t, text, "Hazard: pothole (82%)")
	require.Contains(t, text, "Hazard: lateral crack")
	require.NotContains(t, text, "manhole")
	require.Equal(t, 2, strings.Count(text, "Recommendations:"))
}

func TestHazardText_NothingKnown(t *testing.T) {
	kb := knowledge.MustDefault()
	require.Equal(t, msgNoHazards, hazardText(kb, nil))
	require.Equal(t, msgNoHazards, hazardText(kb, []entity.Detection{{Label: "manhole"}}))
}

func TestFrameText(t *testing.T) {
	kb := knowledge.MustDefault()
	s := entity.Session{
		Status:   entity.StatusAnalyzed,
		Result:   entity.VideoResult{FPS: 30},
		Filtered: []entity.Frame{{Index: 30, Detections: []entity.Detection{{Label: "pothole"}}}, {Index: 1830, Detections: []entity.Detection{{Label: "d20"}}}},
		HasFrame: true,
	}
	s.FrameIndex = 1

	text, ok := frameText(kb, s)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(text, "🎞 Frame 1830 (1m 1s), 2 of 2"))
	require.Contains(t, text, "Hazard: d20")

	_, ok = frameText(kb, entity.Session{Status: entity.StatusAnalyzed})
	require.False(t, ok)
}

func TestStatusText(t *testing.T) {
	s := entity.NewSession(1, 0.3)
	require.Contains(t, statusText(s), "Status: idle")
	require.Contains(t, statusText(s), "Confidence threshold: 0.30")

	s = entity.Reduce(s, entity.FileSelected{File: entity.SourceFile{Name: "road.mp4", MediaType: "video/mp4", Data: []byte{1}}})
	s = entity.Reduce(s, entity.SubmissionStarted{})
	s = entity.Reduce(s, entity.SubmissionFailed{Generation: s.Generation, Err: &entity.NetworkError{Op: "analyze_video", Err: errFake}})

	text := statusText(s)
	require.Contains(t, text, "Status: file selected")
	require.Contains(t, text, "File: road.mp4 (video)")
	require.Contains(t, text, "Last error: analyze_video: timeout")
}

func TestReportCaption(t *testing.T) {
	require.Equal(t, "📄 Report: 3 pages, 2 hazard sections", reportCaption(entity.ReportSummary{Pages: 3, Sections: 2}))

	caption := reportCaption(entity.ReportSummary{Pages: 3, MissingAssets: []entity.AssetFailure{{Locator: "x"}}})
	require.Contains(t, caption, "1 image(s) were unavailable")
}

func TestSplitMessage(t *testing.T) {
	require.Equal(t, []string{"short"}, splitMessage("short", 10))

	text := "line one\nline two\nline three\n" + strings.Repeat("x", 25)
	parts := splitMessage(text, 10)
	for _, p := range parts {
		require.LessOrEqual(t, len([]rune(p)), 10)
	}
	require.Equal(t, text, strings.Join(parts, ""))
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var errFake error = fakeErr("timeout")
