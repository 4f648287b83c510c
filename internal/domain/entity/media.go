package entity

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Mode режим анализа, зависит от типа файла
type Mode string

const (
	ModeImage Mode = "image"
	ModeVideo Mode = "video"
)

// SourceFile файл, выбранный пользователем для анализа
type SourceFile struct {
	Name      string // имя файла
	MediaType string // MIME-тип, заявленный клиентом (может быть пустым)
	Data      []byte // содержимое
}

// DetectedMediaType возвращает заявленный MIME-тип, а если его нет или он
// слишком общий, определяет тип по содержимому.
func (f SourceFile) DetectedMediaType() string {
	declared := strings.ToLower(strings.TrimSpace(f.MediaType))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if strings.HasPrefix(declared, "image/") || strings.HasPrefix(declared, "video/") {
		return declared
	}
	if len(f.Data) == 0 {
		return declared
	}
	return mimetype.Detect(f.Data).String()
}

// Mode определяет режим анализа по типу файла.
func (f SourceFile) Mode() (Mode, error) {
	if len(f.Data) == 0 {
		return "", ErrEmptyFile
	}

	mediaType := f.DetectedMediaType()
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return ModeImage, nil
	case strings.HasPrefix(mediaType, "video/"):
		return ModeVideo, nil
	default:
		return "", &UnsupportedMediaError{MediaType: mediaType}
	}
}
