package github

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	gh "github.com/google/go-github/v66/github"
	"golang.org/x/exp/slog"

	dsync "github.com/atharvakadlag/excalisave/internal/domain/sync"
	"github.com/atharvakadlag/excalisave/internal/utils/logger"
)

const fileExt = ".json"

var _ dsync.Provider = (*Provider)(nil)

// Provider хранит документы файлами {id}.json в корне репозитория GitHub
type Provider struct {
	cfg    dsync.Config
	client *gh.Client
	log    *slog.Logger
}

// New создает провайдер для репозитория из cfg
func New(cfg dsync.Config, opts Options, log *slog.Logger) *Provider {
	log = log.With("component", "github_provider", "repo", cfg.RepoOwner+"/"+cfg.RepoName)
	return &Provider{
		cfg:    cfg,
		client: newClient(cfg.Token, opts, log),
		log:    log,
	}
}

// Factory возвращает фабрику провайдеров для движка синхронизации
func Factory(opts Options, log *slog.Logger) dsync.ProviderFactory {
	return func(cfg dsync.Config) dsync.Provider {
		return New(cfg, opts, log)
	}
}

// CheckAuth проверяет доступ токена к репозиторию
func (p *Provider) CheckAuth(ctx context.Context) error {
	_, resp, err := p.client.Repositories.Get(ctx, p.cfg.RepoOwner, p.cfg.RepoName)
	err = mapError(resp, err)
	if errors.Is(err, dsync.ErrRemoteNotFound) {
		return errors.Wrapf(dsync.ErrUnauthenticated, "repository %s/%s is not accessible", p.cfg.RepoOwner, p.cfg.RepoName)
	}
	return err
}

// Get читает документ вместе с SHA
func (p *Provider) Get(ctx context.Context, id string) (*dsync.RemoteObject, error) {
	file, _, resp, err := p.client.Repositories.GetContents(ctx, p.cfg.RepoOwner, p.cfg.RepoName, id+fileExt, nil)
	if err != nil {
		return nil, mapError(resp, err)
	}
	if file == nil {
		return nil, errors.Newf("%s%s is not a file", id, fileExt)
	}

	content, err := p.fileContent(ctx, file)
	if err != nil {
		return nil, err
	}

	return &dsync.RemoteObject{ID: id, SHA: file.GetSHA(), Content: content}, nil
}

// Put создает файл (sha пустой) или обновляет его
func (p *Provider) Put(ctx context.Context, id string, content []byte, sha string) (string, error) {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr("Save drawing " + id),
		Content: content,
	}

	var (
		res  *gh.RepositoryContentResponse
		resp *gh.Response
		err  error
	)
	if sha == "" {
		res, resp, err = p.client.Repositories.CreateFile(ctx, p.cfg.RepoOwner, p.cfg.RepoName, id+fileExt, opts)
	} else {
		opts.Message = gh.Ptr("Update drawing " + id)
		opts.SHA = gh.Ptr(sha)
		res, resp, err = p.client.Repositories.UpdateFile(ctx, p.cfg.RepoOwner, p.cfg.RepoName, id+fileExt, opts)
	}
	if err != nil {
		return "", mapError(resp, err)
	}

	newSHA := res.GetContent().GetSHA()
	p.log.Debug("file written", "id", id, "sha", newSHA)
	return newSHA, nil
}

// Delete удаляет файл с заданным SHA
func (p *Provider) Delete(ctx context.Context, id, sha string) error {
	_, resp, err := p.client.Repositories.DeleteFile(ctx, p.cfg.RepoOwner, p.cfg.RepoName, id+fileExt, &gh.RepositoryContentFileOptions{
		Message: gh.Ptr("Delete drawing " + id),
		SHA:     gh.Ptr(sha),
	})
	return mapError(resp, err)
}

// List загружает все файлы документов из корня репозитория
func (p *Provider) List(ctx context.Context) ([]*dsync.RemoteObject, error) {
	_, entries, resp, err := p.client.Repositories.GetContents(ctx, p.cfg.RepoOwner, p.cfg.RepoName, "", nil)
	err = mapError(resp, err)
	if errors.Is(err, dsync.ErrRemoteNotFound) {
		// Пустой репозиторий
		return []*dsync.RemoteObject{}, nil
	}
	if err != nil {
		return nil, err
	}

	objects := make([]*dsync.RemoteObject, 0, len(entries))
	for _, entry := range entries {
		if entry.GetType() != "file" || !strings.HasSuffix(entry.GetName(), fileExt) {
			continue
		}

		content, err := p.fileContent(ctx, entry)
		if err != nil {
			p.log.Warn("failed to download file", "name", entry.GetName(), logger.Err(err))
			continue
		}

		objects = append(objects, &dsync.RemoteObject{
			ID:      strings.TrimSuffix(entry.GetName(), fileExt),
			SHA:     entry.GetSHA(),
			Content: content,
		})
	}

	return objects, nil
}

// History возвращает последние коммиты репозитория
func (p *Provider) History(ctx context.Context, limit int) ([]dsync.Commit, error) {
	list, resp, err := p.client.Repositories.ListCommits(ctx, p.cfg.RepoOwner, p.cfg.RepoName, &gh.CommitsListOptions{
		ListOptions: gh.ListOptions{PerPage: limit},
	})
	err = mapError(resp, err)
	if errors.Is(err, dsync.ErrConflict) {
		// GitHub отвечает 409 для репозитория без коммитов
		return []dsync.Commit{}, nil
	}
	if err != nil {
		return nil, err
	}

	commits := make([]dsync.Commit, 0, len(list))
	for _, c := range list {
		message := c.GetCommit().GetMessage()
		commits = append(commits, dsync.Commit{
			ID:        c.GetSHA(),
			Message:   message,
			DrawingID: dsync.CommitDrawingID(message),
			Author: dsync.Author{
				Name: c.GetCommit().GetAuthor().GetName(),
				Date: c.GetCommit().GetAuthor().GetDate().Time,
			},
		})
	}

	return commits, nil
}

// fileContent декодирует встроенное содержимое или скачивает файл по download_url.
// Для файлов больше 1 МБ GitHub не присылает содержимое (encoding "none").
func (p *Provider) fileContent(ctx context.Context, file *gh.RepositoryContent) ([]byte, error) {
	if file.GetEncoding() == "base64" && file.Content != nil && *file.Content != "" {
		decoded, err := file.GetContent()
		if err != nil {
			return nil, errors.Wrapf(err, "decode content of %s", file.GetName())
		}
		return []byte(decoded), nil
	}

	if file.GetDownloadURL() == "" {
		return nil, errors.Newf("file %s has neither content nor download url", file.GetName())
	}

	req, err := p.client.NewRequest(http.MethodGet, file.GetDownloadURL(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build download request")
	}

	var buf bytes.Buffer
	resp, err := p.client.Do(ctx, req, &buf)
	if err != nil {
		return nil, mapError(resp, err)
	}
	return buf.Bytes(), nil
}
