// Package vision строит превью выбранных файлов.
// С тегом сборки gocv используется OpenCV, без него чистый Go.
package vision

const (
	previewMaxSide = 640
	previewQuality = 80
)
