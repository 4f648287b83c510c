package entity

import (
	"errors"
	"fmt"
)

// ErrInvalidInput запрос отклонён до обращения к сети.
var ErrInvalidInput = errors.New("invalid input")

var (
	ErrNoFileSelected    = fmt.Errorf("%w: no file selected", ErrInvalidInput)
	ErrSubmissionPending = fmt.Errorf("%w: submission already in flight", ErrInvalidInput)
	ErrEmptyFile         = fmt.Errorf("%w: file is empty", ErrInvalidInput)
	ErrNotAnalyzed       = fmt.Errorf("%w: session has no analysis result", ErrInvalidInput)
	ErrNoFrames          = fmt.Errorf("%w: no frames with detections", ErrInvalidInput)
)

// ErrStaleSubmission ответ пришёл для сессии, которую уже заменили.
var ErrStaleSubmission = errors.New("submission result discarded: session was replaced")

// UnsupportedMediaError файл не является ни изображением, ни видео.
type UnsupportedMediaError struct {
	MediaType string
}

func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf("unsupported media type %q", e.MediaType)
}

func (e *UnsupportedMediaError) Unwrap() error { return ErrInvalidInput }

// NetworkError ошибка обращения к сервису инференса.
type NetworkError struct {
	Op     string // predict или analyze_video
	Status int    // HTTP-статус, 0 если ответа не было
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FetchError не удалось скачать ассет.
type FetchError struct {
	Locator string
	Status  int
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Locator, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError содержимое ассета не является изображением.
type DecodeError struct {
	Locator string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Locator, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
