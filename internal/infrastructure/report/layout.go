package report

import (
	"fmt"
	"strings"
	"time"

	"aurorai/internal/domain/entity"
)

// Геометрия страницы A4 в миллиметрах.
const (
	pageWidth    = 210.0
	marginLeft   = 20.0
	bulletIndent = 25.0
	bulletHang   = 4.0 // отступ строк продолжения пункта
	contentWidth = 170.0
	rightEdge    = marginLeft + contentWidth

	headerLogoY      = 8.0
	headerLogoHeight = 16.0
	headerTitleY     = 20.0

	topOffset   = 35.0  // курсор после шапки
	bottomLimit = 280.0 // ниже этой линии ничего не пишется
	lineHeight  = 6.0

	mediaMaxHeight = 150.0
	coverLogoSize  = 50.0
	coverLogoY     = 60.0
	coverTitleY    = 130.0
)

// RGB цвет текста
type RGB struct{ R, G, B int }

var (
	colorBrand = RGB{252, 185, 0}
	colorText  = RGB{0, 0, 0}
	colorMuted = RGB{90, 90, 90}
	colorAlert = RGB{190, 30, 30}
)

// Align выравнивание строки относительно X
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// TextStyle параметры шрифта строки
type TextStyle struct {
	Size  float64
	Bold  bool
	Color RGB
}

var (
	styleTitle   = TextStyle{Size: 24, Bold: true, Color: colorBrand}
	styleHeader  = TextStyle{Size: 16, Bold: true, Color: colorBrand}
	styleHeading = TextStyle{Size: 14, Bold: true, Color: colorText}
	styleLabel   = TextStyle{Size: 12, Bold: true, Color: colorText}
	styleBody    = TextStyle{Size: 11, Color: colorText}
	styleCaption = TextStyle{Size: 11, Bold: true, Color: colorMuted}
	styleNotice  = TextStyle{Size: 11, Bold: true, Color: colorAlert}
)

// PageKind назначение страницы
type PageKind int

const (
	PageCover PageKind = iota // обложка
	PageText                  // продолжение текста
	PageMedia                 // страница с кадром или изображением
)

// Element элемент страницы: TextElement или ImageElement.
type Element interface {
	isElement()
}

// TextElement строка текста, Y задаёт базовую линию.
type TextElement struct {
	X, Y  float64
	Text  string
	Style TextStyle
	Align Align
}

// ImageElement изображение в прямоугольнике X, Y, W, H.
type ImageElement struct {
	X, Y, W, H float64
	Asset      entity.Asset
}

func (TextElement) isElement()  {}
func (ImageElement) isElement() {}

// Page страница документа. Первые HeaderLen элементов занимает шапка.
type Page struct {
	Kind      PageKind
	HeaderLen int
	Elements  []Element
}

// Document свёрстанный документ, готовый к выводу в PDF.
type Document struct {
	Title      string
	CreatedAt  time.Time
	Pages      []Page
	MediaPages int
	Sections   int
	Missing    []entity.AssetFailure
}

// ResolvedAsset результат получения изображения. При ошибке Asset содержит заглушку.
type ResolvedAsset struct {
	Locator string
	Asset   entity.Asset
	Err     error
}

// Block единица содержимого отчёта: MediaBlock, SectionBlock или NoticeBlock.
type Block interface {
	isBlock()
}

// MediaBlock страница с изображением. Locator или Inline задают источник.
type MediaBlock struct {
	Caption  string
	Locator  string
	Inline   []byte
	Resolved ResolvedAsset
}

// SectionBlock раздел с описанием дефекта.
type SectionBlock struct {
	Hazard entity.KnownHazard
}

// NoticeBlock отдельная строка-уведомление.
type NoticeBlock struct {
	Text string
}

func (MediaBlock) isBlock()   {}
func (SectionBlock) isBlock() {}
func (NoticeBlock) isBlock()  {}

// Input всё, что нужно для вёрстки. Изображения уже получены.
type Input struct {
	Title     string
	Subtitle  []string
	CreatedAt time.Time
	Logo      ResolvedAsset
	Blocks    []Block
	Measure   Measure // nil: метрики Helvetica
}

// Cursor позиция записи: номер страницы и вертикальная координата.
type Cursor struct {
	Page int
	Y    float64
}

// Paginator правило разрыва страниц.
type Paginator struct {
	Top        float64
	Bottom     float64
	LineHeight float64
}

// DefaultPaginator параметры страницы A4.
var DefaultPaginator = Paginator{Top: topOffset, Bottom: bottomLimit, LineHeight: lineHeight}

// Next возвращает позицию для следующей строки и курсор после неё.
// Граница проверяется до и после записи строки; broke сообщает о переносе перед строкой.
func (p Paginator) Next(c Cursor) (line Cursor, next Cursor, broke bool) {
	if c.Y > p.Bottom {
		c = Cursor{Page: c.Page + 1, Y: p.Top}
		broke = true
	}
	line = c

	next = Cursor{Page: c.Page, Y: c.Y + p.LineHeight}
	if next.Y > p.Bottom {
		next = Cursor{Page: c.Page + 1, Y: p.Top}
	}
	return line, next, broke
}

// Layout верстает документ. Функция чистая: никакого ввода-вывода.
func Layout(in Input) Document {
	measure := in.Measure
	if measure == nil {
		measure = helvetica()
	}
	b := &builder{
		p:       DefaultPaginator,
		measure: measure,
		header:  headerElements(in.Title, in.Logo.Asset),
		doc: Document{
			Title:     in.Title,
			CreatedAt: in.CreatedAt,
		},
	}
	if in.Logo.Err != nil {
		b.doc.Missing = append(b.doc.Missing, failure(in.Logo))
	}

	b.cover(in)
	for _, block := range in.Blocks {
		switch block := block.(type) {
		case MediaBlock:
			b.media(block)
		case SectionBlock:
			b.section(block.Hazard)
		case NoticeBlock:
			b.paragraph(block.Text, styleNotice)
		}
	}

	return b.doc
}

type builder struct {
	p       Paginator
	measure Measure
	header  []Element
	doc     Document
	cursor  Cursor
}

// widthOf ширина строки при фиксированном стиле.
func (b *builder) widthOf(style TextStyle) func(string) float64 {
	return func(s string) float64 { return b.measure(s, style) }
}

func (b *builder) cover(in Input) {
	page := Page{Kind: PageCover}

	if logo := in.Logo.Asset; len(logo.Data) > 0 {
		w, h := fit(logo, coverLogoSize, coverLogoSize)
		page.Elements = append(page.Elements, ImageElement{X: (pageWidth - w) / 2, Y: coverLogoY, W: w, H: h, Asset: logo})
	}
	page.Elements = append(page.Elements, TextElement{X: pageWidth / 2, Y: coverTitleY, Text: in.Title, Style: styleTitle, Align: AlignCenter})

	y := coverTitleY + 2*lineHeight
	for _, s := range in.Subtitle {
		s = truncate(s, contentWidth, b.widthOf(styleCaption))
		page.Elements = append(page.Elements, TextElement{X: pageWidth / 2, Y: y, Text: s, Style: styleCaption, Align: AlignCenter})
		y += lineHeight
	}

	b.doc.Pages = append(b.doc.Pages, page)
	b.cursor = Cursor{Page: 1, Y: b.p.Top}
}

// ensure создаёт страницы с шапкой до номера n включительно.
func (b *builder) ensure(n int, kind PageKind) {
	for len(b.doc.Pages) <= n {
		page := Page{Kind: kind, HeaderLen: len(b.header)}
		page.Elements = append(page.Elements, b.header...)
		b.doc.Pages = append(b.doc.Pages, page)
	}
}

// line пишет одну строку и двигает курсор.
func (b *builder) line(x float64, text string, style TextStyle) {
	at, next, _ := b.p.Next(b.cursor)
	b.ensure(at.Page, PageText)
	page := &b.doc.Pages[at.Page]
	page.Elements = append(page.Elements, TextElement{X: x, Y: at.Y, Text: text, Style: style})
	b.cursor = next
}

// paragraph пишет текст с переносом по ширине колонки.
func (b *builder) paragraph(text string, style TextStyle) {
	for _, l := range wrapText(text, contentWidth, b.widthOf(style)) {
		b.line(marginLeft, l, style)
	}
}

func (b *builder) gap() {
	_, next, _ := b.p.Next(b.cursor)
	b.cursor = next
}

// media начинает новую страницу с изображением.
func (b *builder) media(m MediaBlock) {
	idx := len(b.doc.Pages)
	b.ensure(idx, PageMedia)
	b.doc.MediaPages++
	b.cursor = Cursor{Page: idx, Y: b.p.Top}

	if m.Caption != "" {
		b.paragraph(m.Caption, styleCaption)
	}

	asset := m.Resolved.Asset
	if len(asset.Data) > 0 {
		w, h := fit(asset, contentWidth, mediaMaxHeight)
		top := b.cursor.Y
		page := &b.doc.Pages[idx]
		page.Elements = append(page.Elements, ImageElement{X: marginLeft + (contentWidth-w)/2, Y: top, W: w, H: h, Asset: asset})
		// следующая строка под изображением; базовая линия на высоту строки ниже его края
		b.cursor = Cursor{Page: idx, Y: top + h + b.p.LineHeight}
	}

	if m.Resolved.Err != nil {
		b.doc.Missing = append(b.doc.Missing, failure(m.Resolved))
		b.line(marginLeft, truncate("Image unavailable: "+m.Resolved.Err.Error(), contentWidth, b.widthOf(styleNotice)), styleNotice)
	}
	b.gap()
}

// section пишет раздел дефекта: заголовок, описание, последствия, рекомендации.
func (b *builder) section(h entity.KnownHazard) {
	b.doc.Sections++

	b.paragraph("Hazard: "+h.Label, styleHeading)

	b.line(marginLeft, "Description:", styleLabel)
	b.paragraph(h.Info.Description, styleBody)

	b.line(marginLeft, "Impact:", styleLabel)
	for _, item := range h.Info.Impact {
		b.bullet(item)
	}

	b.line(marginLeft, "Recommendations:", styleLabel)
	for _, item := range h.Info.Recommendations {
		b.bullet(item)
	}

	b.gap()
}

// bullet пишет пункт списка; строки продолжения выровнены под текст пункта.
func (b *builder) bullet(item string) {
	for i, l := range wrapText(item, rightEdge-bulletIndent-bulletHang, b.widthOf(styleBody)) {
		if i == 0 {
			b.line(bulletIndent, "• "+l, styleBody)
			continue
		}
		b.line(bulletIndent+bulletHang, l, styleBody)
	}
}

func headerElements(title string, logo entity.Asset) []Element {
	var els []Element
	x := marginLeft
	if len(logo.Data) > 0 {
		w, h := fit(logo, 3*headerLogoHeight, headerLogoHeight)
		els = append(els, ImageElement{X: marginLeft, Y: headerLogoY, W: w, H: h, Asset: logo})
		x += w + 5
	}
	els = append(els, TextElement{X: x, Y: headerTitleY, Text: title, Style: styleHeader})
	return els
}

// fit вписывает изображение в прямоугольник с сохранением пропорций.
func fit(a entity.Asset, maxW, maxH float64) (float64, float64) {
	if a.Width <= 0 || a.Height <= 0 {
		return maxW, maxH
	}
	w := maxW
	h := w * float64(a.Height) / float64(a.Width)
	if h > maxH {
		h = maxH
		w = h * float64(a.Width) / float64(a.Height)
	}
	return w, h
}

// wrapText переносит текст по словам так, чтобы строка не шире maxWidth;
// слишком длинные слова режутся.
func wrapText(text string, maxWidth float64, width func(string) float64) []string {
	var lines []string
	cur := ""

	for _, word := range strings.Fields(text) {
		for width(word) > maxWidth {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			head, tail := cut(word, maxWidth, width)
			lines = append(lines, head)
			word = tail
		}
		if word == "" {
			continue
		}

		switch {
		case cur == "":
			cur = word
		case width(cur+" "+word) > maxWidth:
			lines = append(lines, cur)
			cur = word
		default:
			cur += " " + word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}

	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// cut отрезает самый длинный помещающийся префикс, но не меньше одной буквы.
func cut(word string, maxWidth float64, width func(string) float64) (string, string) {
	r := []rune(word)
	n := 1
	for n < len(r) && width(string(r[:n+1])) <= maxWidth {
		n++
	}
	return string(r[:n]), string(r[n:])
}

// truncate укорачивает строку до maxWidth, добавляя многоточие.
func truncate(text string, maxWidth float64, width func(string) float64) string {
	if width(text) <= maxWidth {
		return text
	}
	r := []rune(text)
	for len(r) > 0 && width(string(r)+"...") > maxWidth {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func failure(r ResolvedAsset) entity.AssetFailure {
	return entity.AssetFailure{Locator: r.Locator, Reason: r.Err.Error()}
}

// frameCaption подпись страницы кадра: "Frame 30 (0m 1s)".
func frameCaption(f entity.Frame, fps float64) string {
	return fmt.Sprintf("Frame %d (%s)", f.Index, entity.FormatElapsed(f.Index, fps))
}
