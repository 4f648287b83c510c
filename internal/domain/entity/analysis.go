package entity

// Detection одна находка сервиса инференса.
type Detection struct {
	Label      string  // метка модели, может отсутствовать в базе знаний
	Confidence float64 // 0, если сервис её не вернул
}

// Frame кадр видео с найденными дефектами.
type Frame struct {
	Index      int         // номер кадра в исходном видео
	ImageURL   string      // абсолютный адрес изображения кадра
	Detections []Detection // находки в порядке, заданном сервисом
}

// AnalysisResult результат анализа: ImageResult или VideoResult.
type AnalysisResult interface {
	Mode() Mode
	isAnalysisResult()
}

// ImageResult результат анализа изображения.
type ImageResult struct {
	Image      []byte // размеченное изображение от сервиса
	Detections []Detection
}

// VideoResult результат анализа видео.
type VideoResult struct {
	Frames []Frame // по возрастанию Index
	FPS    float64
}

func (ImageResult) Mode() Mode { return ModeImage }
func (VideoResult) Mode() Mode { return ModeVideo }

func (ImageResult) isAnalysisResult() {}
func (VideoResult) isAnalysisResult() {}

// Asset изображение, готовое для встраивания в документ.
type Asset struct {
	Locator string
	Data    []byte // JPEG
	Width   int
	Height  int
}
