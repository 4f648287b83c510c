package entity

import (
	"fmt"
	"math"
)

// DefaultFPS частота кадров, если сервис её не сообщил.
const DefaultFPS = 30.0

// FilterFrames оставляет только кадры с находками, сохраняя порядок.
func FilterFrames(frames []Frame) []Frame {
	filtered := make([]Frame, 0, len(frames))
	for _, f := range frames {
		if len(f.Detections) > 0 {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// SelectFrame приводит запрошенный индекс к диапазону [0, len-1].
// Для пустого списка возвращает false.
func SelectFrame(filtered []Frame, requested int) (int, bool) {
	if len(filtered) == 0 {
		return 0, false
	}
	if requested < 0 {
		return 0, true
	}
	if requested >= len(filtered) {
		return len(filtered) - 1, true
	}
	return requested, true
}

// StepFrame сдвигает выбор на delta кадров по кругу.
func StepFrame(filtered []Frame, current, delta int) (int, bool) {
	n := len(filtered)
	if n == 0 {
		return 0, false
	}
	current, _ = SelectFrame(filtered, current)
	next := (current + delta) % n
	if next < 0 {
		next += n
	}
	return next, true
}

// FormatElapsed переводит номер кадра во время от начала видео: "1m 1s".
func FormatElapsed(frameIndex int, fps float64) string {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = DefaultFPS
	}
	if frameIndex < 0 {
		frameIndex = 0
	}
	totalSeconds := int(math.Floor(float64(frameIndex) / fps))
	return fmt.Sprintf("%dm %ds", totalSeconds/60, totalSeconds%60)
}
