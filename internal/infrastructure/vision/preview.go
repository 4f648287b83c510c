//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"aurorai/internal/domain/entity"
	"aurorai/internal/domain/port"
)

// Previewer строит превью через OpenCV: миниатюру изображения или первый кадр видео.
type Previewer struct {
	MaxSide int
	TempDir string // пусто: системный каталог
}

// NewPreviewer создаёт генератор превью.
func NewPreviewer() *Previewer {
	return &Previewer{MaxSide: previewMaxSide}
}

// Preview возвращает JPEG-превью выбранного файла.
func (p *Previewer) Preview(ctx context.Context, file entity.SourceFile) ([]byte, error) {
	mode, err := file.Mode()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var mat gocv.Mat
	switch mode {
	case entity.ModeVideo:
		mat, err = p.firstFrame(file)
	default:
		mat, err = decodeToMat(file.Data)
	}
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	// Приводим к размеру превью, маленькие не увеличиваем.
	if mat.Cols() > p.MaxSide || mat.Rows() > p.MaxSide {
		scale := float64(p.MaxSide) / float64(max(mat.Cols(), mat.Rows()))
		resized := gocv.NewMat()
		gocv.Resize(mat, &resized, image.Pt(int(float64(mat.Cols())*scale), int(float64(mat.Rows())*scale)), 0, 0, gocv.InterpolationArea)
		mat.Close()
		mat = resized
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: previewQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// firstFrame читает первый кадр видео. VideoCapture работает только с файлом.
func (p *Previewer) firstFrame(file entity.SourceFile) (gocv.Mat, error) {
	tmp, err := os.CreateTemp(p.TempDir, "preview-*"+filepath.Ext(file.Name))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("create temp video: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(file.Data); err != nil {
		tmp.Close()
		return gocv.NewMat(), fmt.Errorf("write temp video: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return gocv.NewMat(), fmt.Errorf("close temp video: %w", err)
	}

	vc, err := gocv.VideoCaptureFile(tmp.Name())
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("open video: %w", err)
	}
	defer vc.Close()

	mat := gocv.NewMat()
	if ok := vc.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errors.New("video has no readable frames")
	}
	return mat, nil
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}

var _ port.PreviewGenerator = (*Previewer)(nil)
