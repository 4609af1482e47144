package sync

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
)

// ConfigKey ключ настроек, под которым хранится конфигурация удаленного хранилища
const ConfigKey = "githubConfig"

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// Config учетные данные и адрес репозитория
type Config struct {
	Token     string `json:"token"`
	RepoOwner string `json:"repoOwner"`
	RepoName  string `json:"repoName"`
}

// Normalize обрезает пробелы во всех полях
func (c Config) Normalize() Config {
	return Config{
		Token:     strings.TrimSpace(c.Token),
		RepoOwner: strings.TrimSpace(c.RepoOwner),
		RepoName:  strings.TrimSpace(c.RepoName),
	}
}

// Validate проверяет, что все поля заполнены
func (c Config) Validate() error {
	var missing []string
	if c.Token == "" {
		missing = append(missing, "token")
	}
	if c.RepoOwner == "" {
		missing = append(missing, "repoOwner")
	}
	if c.RepoName == "" {
		missing = append(missing, "repoName")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrNotConfigured, "missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Masked возвращает копию с замаскированным токеном
func (c Config) Masked() Config {
	masked := c
	if len(c.Token) > 4 {
		masked.Token = strings.Repeat("*", 8) + c.Token[len(c.Token)-4:]
	} else if c.Token != "" {
		masked.Token = strings.Repeat("*", 8)
	}
	return masked
}

// RemoteObject объект в удаленном хранилище вместе с токеном конкурентности
type RemoteObject struct {
	ID      string
	SHA     string
	Content []byte
}

// Author автор коммита
type Author struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// Commit запись истории изменений удаленного хранилища.
// DrawingID заполнен для коммитов, созданных синхронизацией.
type Commit struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	DrawingID string `json:"drawingId,omitempty"`
	Author    Author `json:"author"`
}

// CommitDrawingID извлекает id документа из сообщений вида "Save|Update|Delete drawing {id}"
func CommitDrawingID(message string) string {
	fields := strings.Fields(message)
	if len(fields) != 3 || fields[1] != "drawing" {
		return ""
	}
	switch fields[0] {
	case "Save", "Update", "Delete":
		return fields[2]
	default:
		return ""
	}
}

// ConflictRecord локальная и удаленная версии документа после отклоненной записи.
// Живет только в памяти до разрешения пользователем.
type ConflictRecord struct {
	ID         string             `json:"id"`
	Local      *document.Document `json:"localDrawing"`
	Remote     *document.Document `json:"remoteDrawing"`
	DetectedAt time.Time          `json:"detectedAt"`
}

// Status итог операции синхронизации
type Status string

const (
	StatusOK              Status = "ok"
	StatusSynced          Status = "synced"
	StatusNotSynced       Status = "not_synced"
	StatusNotConfigured   Status = "not_configured"
	StatusUnauthenticated Status = "unauthenticated"
	StatusConflict        Status = "conflict"
	StatusFailed          Status = "failed"
)

// Result типизированный результат операции движка. Движок никогда не возвращает голые ошибки.
type Result struct {
	Success  bool            `json:"success"`
	Status   Status          `json:"status"`
	Error    string          `json:"error,omitempty"`
	Conflict *ConflictRecord `json:"conflict,omitempty"`

	err error
}

// Err возвращает исходную ошибку для errors.Is
func (r Result) Err() error {
	return r.err
}

// PullResult результат PullAll
type PullResult struct {
	Result
	Pulled  int      `json:"pulled"`
	Skipped int      `json:"skipped"`
	IDs     []string `json:"ids,omitempty"`
}

func ok(status Status) Result {
	return Result{Success: true, Status: status}
}

func quiet(status Status) Result {
	return Result{Status: status}
}

func failure(err error) Result {
	return Result{
		Status: statusFor(err),
		Error:  err.Error(),
		err:    err,
	}
}

func statusFor(err error) Status {
	switch {
	case errors.Is(err, ErrConflict):
		return StatusConflict
	case errors.Is(err, ErrUnauthenticated):
		return StatusUnauthenticated
	case errors.Is(err, ErrNotConfigured):
		return StatusNotConfigured
	default:
		return StatusFailed
	}
}
