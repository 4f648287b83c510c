package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "aurorai/internal/application"
	"aurorai/internal/container"
	"aurorai/internal/domain/entity"
	"aurorai/internal/domain/port"
)

const (
	msgStart = `👋 Hi! I am AurorAI, a road hazard inspection bot.

📸 Send me a photo or a video of the road surface and I will look for cracks and potholes.

📋 Commands:
/analyze — run the analysis of the selected file
/report — export the PDF report
/help — help`

	msgHelp = `ℹ️ How to use the bot:

1️⃣ Send a photo, an image file or a video
2️⃣ Send /analyze and wait for the result
3️⃣ Browse the hazards and export the report

📋 Commands:
/analyze — analyze the selected file
/next, /prev — next or previous video frame with hazards
/frame <n> — jump to frame number n
/confidence <0..1> — detection confidence threshold
/report — export AurorAI_Report.pdf
/status — current session
/reset — start over`

	msgSendFile        = "📸 Please send a photo or a video to analyze."
	msgUnknownCommand  = "❓ Unknown command. Use /help for the list of commands."
	msgAnalyzing       = "⏳ Analyzing the file, this may take a while..."
	msgNoFile          = "📸 Select a file first: send a photo or a video."
	msgPending         = "⏳ The analysis is already running, please wait."
	msgReceiving       = "⏳ Still receiving your file, send /analyze again in a moment."
	msgNotAnalyzed     = "ℹ️ Nothing to show yet. Send /analyze first."
	msgNoFrames        = "✅ No frames with hazards in this video."
	msgNoHazards       = "✅ No known hazards detected."
	msgReset           = "🔄 Session reset. Send a new photo or video."
	msgBuildingReport  = "📝 Building the report..."
	msgReportError     = "⚠️ Could not build the report. Please try again."
	msgDownloadError   = "⚠️ Could not download the file. Please send it again."
	msgFileTooLarge    = "⚠️ The file is too large. Telegram bots can download files up to 20 MB."
	msgUnsupportedFile = "⚠️ Only images and videos are supported."
	msgBadConfidence   = "⚠️ Usage: /confidence 0.25 (a number from 0 to 1)."
	msgBadFrame        = "⚠️ Usage: /frame 3 (frame number in the list of frames with hazards)."
)

// maxDownloadBytes лимит Bot API на скачивание файлов.
const maxDownloadBytes = 20 * 1024 * 1024

// Bot представляет Telegram-бота
type Bot struct {
	api      *tgbotapi.BotAPI
	sessions *app.SessionService
	reports  *app.ReportService
	kb       port.HazardKnowledgeBase
	assets   port.AssetResolver
	http     *http.Client
	logger   *slog.Logger

	downloads *downloads
	wg        sync.WaitGroup
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger := c.Logger.With("component", "telegram")
	logger.Info("authorized", "account", api.Self.UserName)

	return &Bot{
		api:      api,
		sessions: c.SessionService,
		reports:  c.ReportService,
		kb:       c.Knowledge,
		assets:   c.Assets,
		http:     &http.Client{Timeout: 2 * time.Minute},
		logger:   logger,

		downloads: newDownloads(),
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx.
// Скачивание файлов, анализ и экспорт идут в отдельных горутинах, Run дожидается их завершения.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if file, ok := incomingFile(msg); ok {
		b.handleFile(ctx, msg.Chat.ID, file)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendFile)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "analyze":
		b.startAnalysis(ctx, chatID)

	case "next":
		b.showFrame(ctx, chatID, func() (entity.Session, error) { return b.sessions.StepFrame(ctx, chatID, 1) })

	case "prev":
		b.showFrame(ctx, chatID, func() (entity.Session, error) { return b.sessions.StepFrame(ctx, chatID, -1) })

	case "frame":
		n, err := strconv.Atoi(args)
		if err != nil {
			b.sendMessage(chatID, msgBadFrame)
			return
		}
		// пользователь считает кадры с единицы
		b.showFrame(ctx, chatID, func() (entity.Session, error) { return b.sessions.SelectFrame(ctx, chatID, n-1) })

	case "confidence":
		v, err := strconv.ParseFloat(strings.ReplaceAll(args, ",", "."), 64)
		if err != nil || v < 0 || v > 1 {
			b.sendMessage(chatID, msgBadConfidence)
			return
		}
		s, err := b.sessions.SetThreshold(ctx, chatID, v)
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.sendMessage(chatID, fmt.Sprintf("🎚 Confidence threshold set to %.2f. It applies to the next analysis.", s.Threshold))

	case "report":
		b.startExport(ctx, chatID)

	case "status":
		s, err := b.sessions.Get(ctx, chatID)
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.sendMessage(chatID, statusText(s))

	case "reset":
		if _, err := b.sessions.Reset(ctx, chatID); err != nil {
			b.replyError(chatID, err)
			return
		}
		b.sendMessage(chatID, msgReset)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// telegramFile ссылка на файл во входящем сообщении
type telegramFile struct {
	id        string
	name      string
	mediaType string
	size      int
}

// incomingFile находит фото, видео или документ в сообщении.
func incomingFile(msg *tgbotapi.Message) (telegramFile, bool) {
	switch {
	case len(msg.Photo) > 0:
		// Получаем файл с максимальным разрешением
		photo := msg.Photo[len(msg.Photo)-1]
		return telegramFile{id: photo.FileID, name: "photo.jpg", mediaType: "image/jpeg", size: photo.FileSize}, true
	case msg.Video != nil:
		name := msg.Video.FileName
		if name == "" {
			name = "video.mp4"
		}
		return telegramFile{id: msg.Video.FileID, name: name, mediaType: msg.Video.MimeType, size: msg.Video.FileSize}, true
	case msg.Document != nil:
		return telegramFile{id: msg.Document.FileID, name: msg.Document.FileName, mediaType: msg.Document.MimeType, size: msg.Document.FileSize}, true
	default:
		return telegramFile{}, false
	}
}

// handleFile скачивает файл в отдельной горутине и делает его выбранным для анализа.
func (b *Bot) handleFile(ctx context.Context, chatID int64, f telegramFile) {
	if f.size > maxDownloadBytes {
		b.sendMessage(chatID, msgFileTooLarge)
		return
	}

	ticket := b.downloads.begin(chatID)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.downloads.done(chatID)

		b.selectFile(ctx, chatID, f, ticket)
	}()
}

func (b *Bot) selectFile(ctx context.Context, chatID int64, f telegramFile, ticket uint64) {
	data, err := b.downloadFile(ctx, f.id)
	if err != nil {
		b.logger.Warn("download failed", "chat_id", chatID, "file", f.name, "err", err)
		b.sendMessage(chatID, msgDownloadError)
		return
	}

	if !b.downloads.current(chatID, ticket) {
		// пока файл качался, пользователь прислал другой
		b.logger.Info("superseded file dropped", "chat_id", chatID, "file", f.name)
		return
	}

	s, err := b.sessions.SelectFile(ctx, chatID, entity.SourceFile{Name: f.name, MediaType: f.mediaType, Data: data})
	if err != nil {
		var unsupported *entity.UnsupportedMediaError
		if errors.As(err, &unsupported) {
			b.sendMessage(chatID, msgUnsupportedFile)
			return
		}
		b.replyError(chatID, err)
		return
	}

	mode, _ := s.Source.Mode()
	caption := fmt.Sprintf("📎 Selected %s: %s\nSend /analyze to start.", mode, s.Source.Name)
	if len(s.Preview) == 0 {
		b.sendMessage(chatID, caption)
		return
	}
	b.sendPhoto(chatID, "preview.jpg", s.Preview, caption)
}

// startAnalysis занимает сессию сразу, а сам анализ идёт в отдельной горутине,
// чтобы бот отвечал другим чатам.
func (b *Bot) startAnalysis(ctx context.Context, chatID int64) {
	if b.downloads.pending(chatID) {
		b.sendMessage(chatID, msgReceiving)
		return
	}

	started, err := b.sessions.Start(ctx, chatID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	b.sendMessage(chatID, msgAnalyzing)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		s, err := b.sessions.Finish(ctx, started)
		if errors.Is(err, entity.ErrStaleSubmission) {
			// пользователь уже выбрал другой файл
			return
		}
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.showResult(ctx, chatID, s)
	}()
}

func (b *Bot) showResult(ctx context.Context, chatID int64, s entity.Session) {
	switch r := s.Result.(type) {
	case entity.ImageResult:
		if len(r.Image) > 0 {
			b.sendPhoto(chatID, "analyzed.jpg", r.Image, fmt.Sprintf("🔍 Detections: %d", len(r.Detections)))
		}
		b.sendLong(chatID, hazardText(b.kb, r.Detections))

	case entity.VideoResult:
		b.sendMessage(chatID, fmt.Sprintf("🎬 Analysis complete: %d of %d sampled frames contain hazards.", len(s.Filtered), len(r.Frames)))
		if s.HasFrame {
			b.sendFrame(ctx, chatID, s)
		}
	}
}

func (b *Bot) showFrame(ctx context.Context, chatID int64, move func() (entity.Session, error)) {
	s, err := move()
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.sendFrame(ctx, chatID, s)
}

// sendFrame отправляет изображение текущего кадра и описание его дефектов.
func (b *Bot) sendFrame(ctx context.Context, chatID int64, s entity.Session) {
	text, ok := frameText(b.kb, s)
	if !ok {
		b.sendMessage(chatID, text)
		return
	}

	f, _ := s.CurrentFrame()
	if b.assets != nil && f.ImageURL != "" {
		a, err := b.assets.Resolve(ctx, f.ImageURL)
		if err == nil {
			b.sendPhoto(chatID, fmt.Sprintf("frame_%d.jpg", f.Index), a.Data, "")
		} else {
			b.logger.Warn("frame image unavailable", "chat_id", chatID, "frame", f.Index, "err", err)
		}
	}
	b.sendLong(chatID, text)
}

// startExport собирает отчёт в отдельной горутине и отправляет файл.
func (b *Bot) startExport(ctx context.Context, chatID int64) {
	s, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if s.Status != entity.StatusAnalyzed {
		b.replyError(chatID, entity.ErrNotAnalyzed)
		return
	}

	b.sendMessage(chatID, msgBuildingReport)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		summary, err := b.reports.Export(ctx, chatID)
		if err != nil {
			if app.IsUserError(err) {
				b.replyError(chatID, err)
				return
			}
			b.logger.Error("export failed", "chat_id", chatID, "err", err)
			b.sendMessage(chatID, msgReportError)
			return
		}

		doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(summary.Path))
		doc.Caption = reportCaption(summary)
		if _, err := b.api.Send(doc); err != nil {
			b.logger.Error("send report failed", "chat_id", chatID, "err", err)
		}
	}()
}

// replyError превращает ошибку в понятное пользователю сообщение.
func (b *Bot) replyError(chatID int64, err error) {
	var netErr *entity.NetworkError
	switch {
	case errors.Is(err, entity.ErrSubmissionPending):
		b.sendMessage(chatID, msgPending)
	case errors.Is(err, entity.ErrNoFileSelected):
		b.sendMessage(chatID, msgNoFile)
	case errors.Is(err, entity.ErrNotAnalyzed):
		b.sendMessage(chatID, msgNotAnalyzed)
	case errors.Is(err, entity.ErrNoFrames):
		b.sendMessage(chatID, msgNoFrames)
	case errors.Is(err, entity.ErrInvalidInput):
		b.sendMessage(chatID, "⚠️ "+err.Error())
	case errors.As(err, &netErr):
		b.sendMessage(chatID, "⚠️ The analysis service failed: "+netErr.Error()+"\nSend /analyze to try again.")
	default:
		b.logger.Error("request failed", "chat_id", chatID, "err", err)
		b.sendMessage(chatID, "⚠️ Something went wrong. Send /analyze to try again.")
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, errors.New("file exceeds download limit")
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send message failed", "chat_id", chatID, "err", err)
	}
}

// sendLong отправляет текст частями, если он не помещается в одно сообщение.
func (b *Bot) sendLong(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLen) {
		b.sendMessage(chatID, part)
	}
}

func (b *Bot) sendPhoto(chatID int64, name string, data []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = caption
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("send photo failed", "chat_id", chatID, "err", err)
	}
}
