package asset

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/fogleman/gg"

	"aurorai/internal/domain/entity"
)

const (
	brandColor       = "#fcb900"
	placeholderColor = "#e3e1dc"
	cardWidth        = 320
	cardHeight       = 180
)

// Placeholder рисует серую карточку с текстом вместо изображения, которое не удалось получить.
func Placeholder(locator, text string) (entity.Asset, error) {
	return card(locator, placeholderColor, "#555555", text, cardWidth, cardHeight)
}

// BrandMark рисует логотип по умолчанию, если адрес логотипа не задан.
func BrandMark(title string) (entity.Asset, error) {
	return card("brand:"+title, brandColor, "#000000", title, cardHeight, cardHeight)
}

func card(locator, bg, fg, text string, w, h int) (entity.Asset, error) {
	dc := gg.NewContext(w, h)
	dc.SetHexColor(bg)
	dc.Clear()

	dc.SetHexColor(fg)
	dc.SetLineWidth(2)
	dc.DrawRectangle(4, 4, float64(w-8), float64(h-8))
	dc.Stroke()

	// Шрифт по умолчанию у gg встроенный (basicfont), внешние файлы не нужны.
	dc.DrawStringWrapped(text, float64(w)/2, float64(h)/2, 0.5, 0.5, float64(w-24), 1.4, gg.AlignCenter)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return entity.Asset{}, fmt.Errorf("encode placeholder: %w", err)
	}

	return entity.Asset{Locator: locator, Data: buf.Bytes(), Width: w, Height: h}, nil
}
