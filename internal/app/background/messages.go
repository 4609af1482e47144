package background

// Типы сообщений фонового процесса
const (
	SaveNewDrawing          = "SAVE_NEW_DRAWING"
	SaveDrawing             = "SAVE_DRAWING"
	SyncDrawing             = "SYNC_DRAWING"
	SetDrawingSync          = "SET_DRAWING_SYNC"
	DeleteDrawing           = "DELETE_DRAWING"
	DeleteDrawingSync       = "DELETE_DRAWING_SYNC"
	GetDrawings             = "GET_DRAWINGS"
	SearchDrawings          = "SEARCH_DRAWINGS"
	CleanupFiles            = "CLEANUP_FILES"
	ConfigureGitHubProvider = "CONFIGURE_GITHUB_PROVIDER"
	RemoveGitHubProvider    = "REMOVE_GITHUB_PROVIDER"
	GetGitHubConfig         = "GET_GITHUB_CONFIG"
	CheckGitHubAuth         = "CHECK_GITHUB_AUTH"
	GetChangeHistory        = "GET_CHANGE_HISTORY"
	PullAll                 = "PULL_ALL"
	GetConflicts            = "GET_CONFLICTS"
	ResolveConflict         = "RESOLVE_CONFLICT"
)

// IDPayload сообщение, адресованное одному документу
type IDPayload struct {
	ID string `json:"id"`
}

// SetSyncPayload включение или выключение синхронизации документа
type SetSyncPayload struct {
	ID   string `json:"id"`
	Sync bool   `json:"sync"`
}

// SearchPayload поисковый запрос
type SearchPayload struct {
	Query string `json:"query"`
}

// HistoryPayload ограничение истории изменений
type HistoryPayload struct {
	Limit int `json:"limit"`
}

// ResolvePayload выбор стороны конфликта
type ResolvePayload struct {
	ID        string `json:"id"`
	KeepLocal bool   `json:"keepLocal"`
}
