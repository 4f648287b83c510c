package report

import (
	"sync"

	"github.com/go-pdf/fpdf"
)

// Measure возвращает ширину строки в миллиметрах при заданном стиле.
type Measure func(text string, style TextStyle) float64

// helvetica метрики стандартного шрифта, которым Render выводит текст.
var helvetica = sync.OnceValue(func() Measure {
	m := &textMetrics{pdf: fpdf.New("P", "mm", "A4", "")}
	m.tr = m.pdf.UnicodeTranslatorFromDescriptor("")
	return m.width
})

type textMetrics struct {
	mu  sync.Mutex
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (m *textMetrics) width(text string, style TextStyle) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := ""
	if style.Bold {
		s = "B"
	}
	m.pdf.SetFont(fontFamily, s, style.Size)
	return m.pdf.GetStringWidth(m.tr(text))
}
