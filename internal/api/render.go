package telegram

import (
	"fmt"
	"strings"

	"aurorai/internal/domain/entity"
	"aurorai/internal/domain/port"
)

// maxMessageLen лимит Telegram 4096 символов, берём с запасом.
const maxMessageLen = 4000

// hazardText описывает найденные дефекты. Метки без описания пропускаются.
func hazardText(kb port.HazardKnowledgeBase, detections []entity.Detection) string {
	var b strings.Builder
	for _, d := range detections {
		h, ok := kb.Classify(d.Label).(entity.KnownHazard)
		if !ok {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("⚠️ Hazard: " + h.Label)
		if d.Confidence > 0 {
			fmt.Fprintf(&b, " (%.0f%%)", d.Confidence*100)
		}
		b.WriteString("\n\nDescription:\n" + h.Info.Description)
		writeList(&b, "Impact:", h.Info.Impact)
		writeList(&b, "Recommendations:", h.Info.Recommendations)
	}

	if b.Len() == 0 {
		return msgNoHazards
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	b.WriteString("\n\n" + title)
	for _, item := range items {
		b.WriteString("\n• " + item)
	}
}

// frameText подпись текущего кадра и описание его дефектов.
func frameText(kb port.HazardKnowledgeBase, s entity.Session) (string, bool) {
	f, ok := s.CurrentFrame()
	if !ok {
		return msgNoFrames, false
	}

	var fps float64
	if video, ok := s.Result.(entity.VideoResult); ok {
		fps = video.FPS
	}

	header := fmt.Sprintf("🎞 Frame %d (%s), %d of %d", f.Index, entity.FormatElapsed(f.Index, fps), s.FrameIndex+1, len(s.Filtered))
	return header + "\n\n" + hazardText(kb, f.Detections), true
}

// statusText краткое состояние сессии для /status.
func statusText(s entity.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Status: %s\n", strings.ReplaceAll(string(s.Status), "_", " "))

	if s.Source != nil {
		mode, err := s.Source.Mode()
		if err == nil {
			fmt.Fprintf(&b, "File: %s (%s)\n", s.Source.Name, mode)
		} else {
			fmt.Fprintf(&b, "File: %s\n", s.Source.Name)
		}
	}
	fmt.Fprintf(&b, "Confidence threshold: %.2f", s.Threshold)

	if s.Status == entity.StatusAnalyzed {
		switch r := s.Result.(type) {
		case entity.ImageResult:
			fmt.Fprintf(&b, "\nDetections: %d", len(r.Detections))
		case entity.VideoResult:
			fmt.Fprintf(&b, "\nFrames with hazards: %d of %d", len(s.Filtered), len(r.Frames))
			if s.HasFrame {
				fmt.Fprintf(&b, " (viewing %d)", s.FrameIndex+1)
			}
		}
	}
	if s.LastError != "" {
		fmt.Fprintf(&b, "\nLast error: %s", s.LastError)
	}
	return b.String()
}

// reportCaption подпись к файлу отчёта.
func reportCaption(summary entity.ReportSummary) string {
	caption := fmt.Sprintf("📄 Report: %d pages, %d hazard sections", summary.Pages, summary.Sections)
	if len(summary.MissingAssets) > 0 {
		caption += fmt.Sprintf("\n%d image(s) were unavailable and replaced with placeholders.", len(summary.MissingAssets))
	}
	return caption
}

// splitMessage режет длинный текст по строкам на части не длиннее limit символов.
func splitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var parts []string
	var cur []rune
	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		for len(r) > limit {
			if len(cur) > 0 {
				parts = append(parts, string(cur))
				cur = nil
			}
			parts = append(parts, string(r[:limit]))
			r = r[limit:]
		}
		if len(cur)+len(r) > limit {
			parts = append(parts, string(cur))
			cur = nil
		}
		cur = append(cur, r...)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}
