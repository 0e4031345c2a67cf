package service

import (
	"html"
	"log/slog"
	"strings"

	"github.com/citygallery/citygallery/internal/model"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

// SearchService keeps the posts search index in sync with the database.
// Indexing failures are logged and never surfaced to the caller; the
// database stays the source of truth.
type SearchService interface {
	IndexPost(post *model.Post)
	DeletePost(id uuid.UUID)
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

// NewNoopSearchService is used when no search backend is configured.
func NewNoopSearchService() SearchService {
	return noopSearch{}
}

type noopSearch struct{}

func (noopSearch) IndexPost(*model.Post) {}
func (noopSearch) DeletePost(uuid.UUID)  {}

func (s *searchService) initIndexes() {
	filterable := []any{"author_id", "group_id"}
	if _, err := s.client.Index("posts").UpdateFilterableAttributes(&filterable); err != nil {
		slog.Warn("failed to update posts filterable attributes", "error", err)
	}

	sortable := []string{"created_at"}
	if _, err := s.client.Index("posts").UpdateSortableAttributes(&sortable); err != nil {
		slog.Warn("failed to update posts sortable attributes", "error", err)
	}
}

type meiliPostDoc struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	AuthorID  string `json:"author_id"`
	Author    string `json:"author"`
	GroupID   string `json:"group_id"`
	CreatedAt int64  `json:"created_at"`
}

func (s *searchService) cleanContentForIndex(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)

	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *searchService) IndexPost(post *model.Post) {
	doc := meiliPostDoc{
		ID:        post.ID.String(),
		Title:     post.Title,
		Content:   s.cleanContentForIndex(post.Content),
		AuthorID:  post.AuthorID.String(),
		Author:    post.Author.Username,
		CreatedAt: post.CreatedAt.Unix(),
	}
	if post.GroupID != nil {
		doc.GroupID = post.GroupID.String()
	}

	primaryKey := "id"
	if _, err := s.client.Index("posts").AddDocuments([]meiliPostDoc{doc}, &primaryKey); err != nil {
		slog.Warn("failed to index post", "post_id", post.ID, "error", err)
	}
}

func (s *searchService) DeletePost(id uuid.UUID) {
	if _, err := s.client.Index("posts").DeleteDocument(id.String()); err != nil {
		slog.Warn("failed to delete post from index", "post_id", id, "error", err)
	}
}
