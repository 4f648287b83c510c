package telegram

import "sync"

// downloads учитывает скачивания файлов по чатам.
// Выбранным становится только последний присланный в чат файл.
type downloads struct {
	mu     sync.Mutex
	seq    uint64
	latest map[int64]uint64
	active map[int64]int
}

func newDownloads() *downloads {
	return &downloads{latest: make(map[int64]uint64), active: make(map[int64]int)}
}

// begin регистрирует новое скачивание и возвращает его номер.
func (d *downloads) begin(chatID int64) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	d.latest[chatID] = d.seq
	d.active[chatID]++
	return d.seq
}

// current сообщает, что после ticket в чат не присылали других файлов.
func (d *downloads) current(chatID int64, ticket uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest[chatID] == ticket
}

func (d *downloads) done(chatID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.active[chatID]--
	if d.active[chatID] <= 0 {
		delete(d.active, chatID)
		delete(d.latest, chatID)
	}
}

// pending true, пока в чате скачивается хотя бы один файл.
func (d *downloads) pending(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active[chatID] > 0
}
