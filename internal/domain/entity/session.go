package entity

import "math"

// SessionStatus состояние сессии анализа
type SessionStatus string

const (
	StatusIdle         SessionStatus = "idle"          // файл не выбран
	StatusFileSelected SessionStatus = "file_selected" // файл выбран, можно отправлять
	StatusSubmitting   SessionStatus = "submitting"    // ждём ответ сервиса
	StatusAnalyzed     SessionStatus = "analyzed"      // результат получен
)

// Session одна сессия «загрузка → анализ → отчёт» в чате.
// Значение не изменяется на месте: каждое событие даёт новую сессию через Reduce.
type Session struct {
	ChatID     int64
	Generation uint64 // растёт при каждой смене файла и сбросе
	Source     *SourceFile
	Preview    []byte // JPEG-превью выбранного файла, может отсутствовать
	Threshold  float64
	Status     SessionStatus
	Result     AnalysisResult
	Filtered   []Frame // кадры с находками, только для видео
	FrameIndex int     // индекс в Filtered, валиден только при HasFrame
	HasFrame   bool
	LastError  string // описание последней ошибки анализа
}

// NewSession создаёт пустую сессию с начальным порогом уверенности.
func NewSession(chatID int64, threshold float64) Session {
	return Session{
		ChatID:    chatID,
		Threshold: ClampThreshold(threshold),
		Status:    StatusIdle,
	}
}

// ClampThreshold приводит порог к [0, 1]. NaN превращается в 0.
func ClampThreshold(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// CanSubmit проверяет, можно ли отправить файл на анализ.
func (s Session) CanSubmit() error {
	switch s.Status {
	case StatusSubmitting:
		return ErrSubmissionPending
	case StatusFileSelected:
		if s.Source == nil {
			return ErrNoFileSelected
		}
		return nil
	case StatusAnalyzed:
		// повторный анализ того же файла возможен только после его повторного выбора
		return ErrNoFileSelected
	default:
		return ErrNoFileSelected
	}
}

// CurrentFrame возвращает выбранный кадр видео.
func (s Session) CurrentFrame() (Frame, bool) {
	if !s.HasFrame || s.FrameIndex < 0 || s.FrameIndex >= len(s.Filtered) {
		return Frame{}, false
	}
	return s.Filtered[s.FrameIndex], true
}

// Event событие, меняющее сессию.
type Event interface {
	isSessionEvent()
}

// FileSelected пользователь выбрал новый файл.
type FileSelected struct {
	File    SourceFile
	Preview []byte
}

// SubmissionStarted файл отправлен на анализ.
type SubmissionStarted struct{}

// SubmissionSucceeded сервис вернул результат для поколения Generation.
type SubmissionSucceeded struct {
	Generation uint64
	Result     AnalysisResult
}

// SubmissionFailed анализ поколения Generation завершился ошибкой.
type SubmissionFailed struct {
	Generation uint64
	Err        error
}

// FrameSelected пользователь выбрал кадр видео.
type FrameSelected struct {
	Index int
}

// ThresholdChanged пользователь изменил порог уверенности.
type ThresholdChanged struct {
	Value float64
}

// Reset сброс сессии.
type Reset struct{}

func (FileSelected) isSessionEvent()        {}
func (SubmissionStarted) isSessionEvent()   {}
func (SubmissionSucceeded) isSessionEvent() {}
func (SubmissionFailed) isSessionEvent()    {}
func (FrameSelected) isSessionEvent()       {}
func (ThresholdChanged) isSessionEvent()    {}
func (Reset) isSessionEvent()               {}

// Reduce применяет событие к сессии и возвращает новую сессию.
// Недопустимые в текущем состоянии и устаревшие события возвращают сессию без изменений.
func Reduce(s Session, ev Event) Session {
	switch ev := ev.(type) {
	case FileSelected:
		file := ev.File
		return Session{
			ChatID:     s.ChatID,
			Generation: s.Generation + 1,
			Source:     &file,
			Preview:    ev.Preview,
			Threshold:  ClampThreshold(s.Threshold),
			Status:     StatusFileSelected,
		}

	case SubmissionStarted:
		if s.CanSubmit() != nil {
			return s
		}
		s.Status = StatusSubmitting
		s.LastError = ""
		return s

	case SubmissionSucceeded:
		if s.Status != StatusSubmitting || ev.Generation != s.Generation || ev.Result == nil {
			return s
		}
		s.Status = StatusAnalyzed
		s.Result = ev.Result
		s.Filtered = nil
		s.FrameIndex, s.HasFrame = 0, false
		if video, ok := ev.Result.(VideoResult); ok {
			s.Filtered = FilterFrames(video.Frames)
			s.FrameIndex, s.HasFrame = SelectFrame(s.Filtered, 0)
		}
		return s

	case SubmissionFailed:
		if s.Status != StatusSubmitting || ev.Generation != s.Generation {
			return s
		}
		s.Status = StatusFileSelected
		s.LastError = "analysis failed"
		if ev.Err != nil {
			s.LastError = ev.Err.Error()
		}
		return s

	case FrameSelected:
		if s.Status != StatusAnalyzed {
			return s
		}
		s.FrameIndex, s.HasFrame = SelectFrame(s.Filtered, ev.Index)
		return s

	case ThresholdChanged:
		s.Threshold = ClampThreshold(ev.Value)
		return s

	case Reset:
		return Session{
			ChatID:     s.ChatID,
			Generation: s.Generation + 1,
			Threshold:  ClampThreshold(s.Threshold),
			Status:     StatusIdle,
		}

	default:
		return s
	}
}
