package backend

// TaskAccepted is the backend's response to an accepted long-running
// operation. The task identifier is opaque and keys all status tracking.
type TaskAccepted struct {
	TaskID string `json:"task_id"`
}

// ProcessDocumentRequest asks the backend to ingest a single document.
type ProcessDocumentRequest struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
}

// ImportRequest asks the backend to import a batch of documents.
type ImportRequest struct {
	Paths  []string `json:"paths"`
	Source string   `json:"source,omitempty"`
}

// SearchRequest is a semantic search query.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResult is one ranked chunk returned by the backend.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	Path       string  `json:"path"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Page       int     `json:"page,omitempty"`
}

// SearchResponse is the backend's answer to a search query.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// errorBody is the backend's error response shape.
type errorBody struct {
	Error   string `json:"error,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Message string `json:"message,omitempty"`
}

// message returns the most specific error text present.
func (b errorBody) message() string {
	switch {
	case b.Message != "":
		return b.Message
	case b.Error != "":
		return b.Error
	default:
		return b.Detail
	}
}
