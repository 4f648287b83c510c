package entity

// ReportFileName фиксированное имя файла отчёта, повторный экспорт перезаписывает его.
const ReportFileName = "AurorAI_Report.pdf"

// ReportSummary итог сборки отчёта.
type ReportSummary struct {
	Path          string         // путь к файлу, заполняется при экспорте
	Pages         int            // всего страниц, включая обложку
	MediaPages    int            // страниц с кадрами или изображением
	Sections      int            // разделов с описанием дефектов
	MissingAssets []AssetFailure // изображения, заменённые заглушкой
}

// AssetFailure изображение, которое не удалось получить.
type AssetFailure struct {
	Locator string
	Reason  string
}
