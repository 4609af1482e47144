package document

import (
	"strings"
	"time"
)

const (
	// KeyPrefix отличает ключи документов от служебных ключей хранилища
	KeyPrefix = "drawing:"

	// FoldersKey ключ списка папок
	FoldersKey = "folders"

	// SyncFolderName имя папки-индекса синхронизируемых документов
	SyncFolderName = "excalidraw-sync"
)

// Payload сериализованное состояние редактора. Для синхронизации это непрозрачный блок.
type Payload struct {
	Excalidraw       string `json:"excalidraw"`
	ExcalidrawState  string `json:"excalidrawState"`
	VersionFiles     string `json:"versionFiles"`
	VersionDataState string `json:"versionDataState"`
}

// Document единица синхронизации
type Document struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"createdAt"`
	SyncEnabled     bool      `json:"sync"`
	PreviewImage    string    `json:"imageBase64,omitempty"`
	BackgroundColor string    `json:"viewBackgroundColor,omitempty"`
	Payload         Payload   `json:"data"`
}

// Clone возвращает независимую копию документа
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// Folder пользовательская коллекция документов
type Folder struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	DrawingIDs []string `json:"drawingIds"`
}

// Contains проверяет, входит ли документ в папку
func (f *Folder) Contains(id string) bool {
	for _, v := range f.DrawingIDs {
		if v == id {
			return true
		}
	}
	return false
}

// ChangeOp тип изменения ключа
type ChangeOp string

const (
	ChangeSet    ChangeOp = "set"
	ChangeRemove ChangeOp = "remove"
)

// Change уведомление об изменении ключа хранилища
type Change struct {
	Key string   `json:"key"`
	Op  ChangeOp `json:"op"`
}

// IsDocument сообщает, относится ли изменение к документу
func (c Change) IsDocument() bool {
	return IsDocumentKey(c.Key)
}

// IsDocumentKey проверяет префикс ключа
func IsDocumentKey(key string) bool {
	return strings.HasPrefix(key, KeyPrefix) && len(key) > len(KeyPrefix)
}
