package document

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/utils/logger"
)

// Store типизированный доступ к документам и папкам поверх KV хоста
type Store struct {
	kv  KV
	log *slog.Logger

	// foldersMu сериализует чтение-изменение-запись ключа folders
	foldersMu sync.Mutex
}

// NewStore создает хранилище документов
func NewStore(kv KV, log *slog.Logger) *Store {
	return &Store{
		kv:  kv,
		log: log.With("component", "document_store"),
	}
}

// GetAll возвращает все документы. Записи, которые не удалось разобрать, пропускаются.
func (s *Store) GetAll(ctx context.Context) (map[string]*Document, error) {
	raw, err := s.kv.List(ctx, KeyPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "list documents")
	}

	docs := make(map[string]*Document, len(raw))
	for key, value := range raw {
		var doc Document
		if err := json.Unmarshal(value, &doc); err != nil {
			s.log.Warn("skipping unreadable document", "key", key, logger.Err(err))
			continue
		}
		docs[key] = &doc
	}

	return docs, nil
}

// Get возвращает документ по id или ErrNotFound
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	if !IsDocumentKey(id) {
		return nil, errors.Wrapf(ErrInvalidID, "%q", id)
	}

	value, err := s.kv.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(value, &doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "decode %s: %v", id, err)
	}

	return &doc, nil
}

// Set сохраняет документ под ключом id
func (s *Store) Set(ctx context.Context, id string, doc *Document) error {
	if !IsDocumentKey(id) {
		return errors.Wrapf(ErrInvalidID, "%q", id)
	}
	if doc.ID == "" {
		doc.ID = id
	}
	if doc.ID != id {
		return errors.Wrapf(ErrInvalidID, "document id %q does not match key %q", doc.ID, id)
	}

	value, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode document")
	}

	return s.kv.Set(ctx, id, value)
}

// Remove удаляет документ. Отсутствие документа ошибкой не считается.
func (s *Store) Remove(ctx context.Context, id string) error {
	if !IsDocumentKey(id) {
		return errors.Wrapf(ErrInvalidID, "%q", id)
	}
	return s.kv.Remove(ctx, id)
}

// OnChange подписывает на изменения хранилища
func (s *Store) OnChange(fn func(Change)) (cancel func()) {
	return s.kv.Subscribe(fn)
}

// Folders возвращает список папок
func (s *Store) Folders(ctx context.Context) ([]Folder, error) {
	value, err := s.kv.Get(ctx, FoldersKey)
	if errors.Is(err, ErrNotFound) {
		return []Folder{}, nil
	}
	if err != nil {
		return nil, err
	}

	var folders []Folder
	if err := json.Unmarshal(value, &folders); err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "decode folders: %v", err)
	}

	return folders, nil
}

// SaveFolders перезаписывает список папок
func (s *Store) SaveFolders(ctx context.Context, folders []Folder) error {
	s.foldersMu.Lock()
	defer s.foldersMu.Unlock()
	return s.saveFolders(ctx, folders)
}

func (s *Store) saveFolders(ctx context.Context, folders []Folder) error {
	value, err := json.Marshal(folders)
	if err != nil {
		return errors.Wrap(err, "encode folders")
	}
	return s.kv.Set(ctx, FoldersKey, value)
}

// EnsureSyncFolder создает папку синхронизации, если ее еще нет
func (s *Store) EnsureSyncFolder(ctx context.Context) (*Folder, error) {
	s.foldersMu.Lock()
	defer s.foldersMu.Unlock()

	folders, err := s.Folders(ctx)
	if err != nil {
		return nil, err
	}

	folders, idx, created := withSyncFolder(folders)
	if created {
		if err := s.saveFolders(ctx, folders); err != nil {
			return nil, err
		}
		s.log.Debug("sync folder created", "folder_id", folders[idx].ID)
	}

	folder := folders[idx]
	return &folder, nil
}

// IndexSync добавляет ids в папку синхронизации (enabled) или убирает их оттуда
func (s *Store) IndexSync(ctx context.Context, enabled bool, ids ...string) error {
	s.foldersMu.Lock()
	defer s.foldersMu.Unlock()

	folders, err := s.Folders(ctx)
	if err != nil {
		return err
	}

	folders, idx, _ := withSyncFolder(folders)
	for _, id := range ids {
		if enabled && !folders[idx].Contains(id) {
			folders[idx].DrawingIDs = append(folders[idx].DrawingIDs, id)
		}
		if !enabled {
			folders[idx].DrawingIDs = without(folders[idx].DrawingIDs, id)
		}
	}

	return s.saveFolders(ctx, folders)
}

// Unindex убирает документ из всех папок
func (s *Store) Unindex(ctx context.Context, id string) error {
	s.foldersMu.Lock()
	defer s.foldersMu.Unlock()

	folders, err := s.Folders(ctx)
	if err != nil {
		return err
	}

	changed := false
	for i := range folders {
		if folders[i].Contains(id) {
			folders[i].DrawingIDs = without(folders[i].DrawingIDs, id)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	return s.saveFolders(ctx, folders)
}

// withSyncFolder возвращает индекс папки синхронизации, добавляя ее при отсутствии
func withSyncFolder(folders []Folder) ([]Folder, int, bool) {
	for i := range folders {
		if folders[i].Name == SyncFolderName {
			return folders, i, false
		}
	}

	folders = append(folders, Folder{
		ID:         "folder:" + uuid.NewString(),
		Name:       SyncFolderName,
		DrawingIDs: []string{},
	})
	return folders, len(folders) - 1, true
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
