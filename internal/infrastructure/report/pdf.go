package report

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"io"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "Helvetica"

// Render выводит свёрстанный документ в PDF: A4, книжная ориентация, миллиметры.
func Render(doc Document, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.CreatedAt)
	pdf.SetModificationDate(doc.CreatedAt)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("AurorAI", true)

	// стандартные шрифты PDF знают только cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	registered := make(map[string]string)
	for _, page := range doc.Pages {
		pdf.AddPage()

		for _, el := range page.Elements {
			switch el := el.(type) {
			case TextElement:
				style := ""
				if el.Style.Bold {
					style = "B"
				}
				pdf.SetFont(fontFamily, style, el.Style.Size)
				pdf.SetTextColor(el.Style.Color.R, el.Style.Color.G, el.Style.Color.B)

				text := tr(el.Text)
				x := el.X
				if el.Align == AlignCenter {
					x -= pdf.GetStringWidth(text) / 2
				}
				pdf.Text(x, el.Y, text)

			case ImageElement:
				if len(el.Asset.Data) == 0 {
					continue
				}
				name := imageName(el.Asset.Data)
				if _, ok := registered[name]; !ok {
					pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(el.Asset.Data))
					registered[name] = el.Asset.Locator
				}
				pdf.ImageOptions(name, el.X, el.Y, el.W, el.H, false, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
			}
		}

		if pdf.Err() {
			return fmt.Errorf("render page %d: %w", pdf.PageNo(), pdf.Error())
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// imageName одинаковые изображения (логотип в шапке) встраиваются один раз.
func imageName(data []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(data)
	return fmt.Sprintf("img-%x", h.Sum64())
}
