package search

import (
	"context"

	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
)

// Lister источник документов для поиска
type Lister interface {
	List(ctx context.Context) ([]*document.Document, error)
}

// Service поиск по локальным документам
type Service struct {
	docs Lister
	log  *slog.Logger
}

// NewService создает сервис поиска
func NewService(docs Lister, log *slog.Logger) *Service {
	return &Service{
		docs: docs,
		log:  log.With("component", "search_service"),
	}
}

// Search ранжирует все документы по запросу
func (s *Service) Search(ctx context.Context, query string) ([]*document.Document, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, err
	}

	ranked := Rank(docs, query)
	s.log.Debug("search finished", "query", query, "total", len(docs), "matched", len(ranked))
	return ranked, nil
}
