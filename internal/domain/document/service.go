package document

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/utils/logger"
)

// SaveRequest данные документа, присланные редактором
type SaveRequest struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Sync             bool   `json:"sync"`
	PreviewImage     string `json:"imageBase64,omitempty"`
	BackgroundColor  string `json:"viewBackgroundColor,omitempty"`
	Excalidraw       string `json:"excalidraw"`
	ExcalidrawState  string `json:"excalidrawState"`
	VersionFiles     string `json:"versionFiles"`
	VersionDataState string `json:"versionDataState"`
}

func (r SaveRequest) payload() Payload {
	return Payload{
		Excalidraw:       r.Excalidraw,
		ExcalidrawState:  r.ExcalidrawState,
		VersionFiles:     r.VersionFiles,
		VersionDataState: r.VersionDataState,
	}
}

// Service бизнес-операции над локальными документами
type Service struct {
	store *Store
	log   *slog.Logger
	now   func() time.Time
}

// NewService создает сервис документов
func NewService(store *Store, log *slog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With("component", "document_service"),
		now:   time.Now,
	}
}

// NewID генерирует новый идентификатор документа
func NewID() string {
	return KeyPrefix + uuid.NewString()
}

// Get возвращает документ
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	return s.store.Get(ctx, id)
}

// List возвращает документы, новые первыми
func (s *Service) List(ctx context.Context) ([]*Document, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]*Document, 0, len(all))
	for _, doc := range all {
		docs = append(docs, doc)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	return docs, nil
}

// Create сохраняет новый документ. Документ пишется до индексации в папку синхронизации.
func (s *Service) Create(ctx context.Context, req SaveRequest) (*Document, error) {
	id := req.ID
	if id == "" {
		id = NewID()
	}
	if !IsDocumentKey(id) {
		return nil, errors.Wrapf(ErrInvalidID, "%q", id)
	}

	doc := &Document{
		ID:              id,
		Name:            req.Name,
		CreatedAt:       s.now().UTC(),
		SyncEnabled:     req.Sync,
		PreviewImage:    req.PreviewImage,
		BackgroundColor: req.BackgroundColor,
		Payload:         req.payload(),
	}

	if err := s.store.Set(ctx, id, doc); err != nil {
		return nil, errors.Wrap(err, "save document")
	}

	if doc.SyncEnabled {
		if err := s.store.IndexSync(ctx, true, id); err != nil {
			s.log.Warn("failed to index document into sync folder", "id", id, logger.Err(err))
		}
	}

	s.log.Debug("document created", "id", id, "sync", doc.SyncEnabled)
	return doc, nil
}

// Update сливает присланные данные с сохраненным документом.
// Пустые поля не затирают старые значения, payload заменяется целиком.
func (s *Service) Update(ctx context.Context, req SaveRequest) (*Document, error) {
	existing, err := s.store.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	doc := existing.Clone()
	if req.Name != "" {
		doc.Name = req.Name
	}
	doc.SyncEnabled = req.Sync || existing.SyncEnabled
	if req.PreviewImage != "" {
		doc.PreviewImage = req.PreviewImage
	}
	if req.BackgroundColor != "" {
		doc.BackgroundColor = req.BackgroundColor
	}
	doc.Payload = req.payload()

	if err := s.store.Set(ctx, doc.ID, doc); err != nil {
		return nil, errors.Wrap(err, "save document")
	}

	if doc.SyncEnabled && !existing.SyncEnabled {
		if err := s.store.IndexSync(ctx, true, doc.ID); err != nil {
			s.log.Warn("failed to index document into sync folder", "id", doc.ID, logger.Err(err))
		}
	}

	return doc, nil
}

// SetSync включает или выключает синхронизацию документа
func (s *Service) SetSync(ctx context.Context, id string, enabled bool) (*Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	doc.SyncEnabled = enabled
	if err := s.store.Set(ctx, id, doc); err != nil {
		return nil, errors.Wrap(err, "save document")
	}

	if err := s.store.IndexSync(ctx, enabled, id); err != nil {
		return doc, errors.Wrap(err, "update sync folder")
	}

	return doc, nil
}

// Delete удаляет документ локально и убирает его из папок
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return errors.Wrap(err, "remove document")
	}

	if err := s.store.Unindex(ctx, id); err != nil {
		s.log.Warn("failed to unindex deleted document", "id", id, logger.Err(err))
	}

	return nil
}

// UsedFileIDs возвращает уникальные fileId изображений, на которые ссылаются документы.
// Документы с нечитаемым payload пропускаются.
func (s *Service) UsedFileIDs(ctx context.Context) ([]string, error) {
	docs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, doc := range docs {
		fileIDs, err := doc.Payload.ImageFileIDs()
		if err != nil {
			s.log.Debug("skipping malformed payload during cleanup", "id", doc.ID, logger.Err(err))
			continue
		}
		for _, fileID := range fileIDs {
			if _, ok := seen[fileID]; ok {
				continue
			}
			seen[fileID] = struct{}{}
			ids = append(ids, fileID)
		}
	}

	return ids, nil
}
