package service

import (
	"context"
	"sort"
	"time"

	"github.com/citygallery/citygallery/internal/dto"
	"github.com/citygallery/citygallery/internal/model"
	"github.com/citygallery/citygallery/internal/repository"
	"github.com/citygallery/citygallery/pkg/apperror"
	"github.com/google/uuid"
)

const (
	defaultFeedLimit   = 24
	maxFeedLimit       = 100
	defaultItemsPerGrp = 5
	maxItemsPerGrp     = 20
	dayFormat          = "2006-01-02"
)

// FeedService builds the filtered, paginated, optionally grouped post views.
// viewer is nil for anonymous requests.
type FeedService interface {
	List(ctx context.Context, viewer *uuid.UUID, filter dto.FeedFilter) (*dto.FeedPage, error)
	ListGrouped(ctx context.Context, viewer *uuid.UUID, filter dto.FeedFilter) (*dto.GroupedFeed, error)
}

type feedService struct {
	postRepo    repository.PostRepository
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
}

func NewFeedService(postRepo repository.PostRepository, likeRepo repository.LikeRepository, commentRepo repository.CommentRepository) FeedService {
	return &feedService{
		postRepo:    postRepo,
		likeRepo:    likeRepo,
		commentRepo: commentRepo,
	}
}

func (s *feedService) List(ctx context.Context, viewer *uuid.UUID, filter dto.FeedFilter) (*dto.FeedPage, error) {
	query, err := compileFeedQuery(viewer, filter)
	if err != nil {
		return nil, err
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	offset := (page - 1) * limit

	posts, total, err := s.postRepo.FindFeedPage(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}

	items, err := s.decorate(ctx, viewer, posts)
	if err != nil {
		return nil, err
	}

	return &dto.FeedPage{
		Items: items,
		Total: total,
		Page:  page,
		Pages: pageCount(total, limit),
		Limit: limit,
	}, nil
}

func (s *feedService) ListGrouped(ctx context.Context, viewer *uuid.UUID, filter dto.FeedFilter) (*dto.GroupedFeed, error) {
	switch filter.GroupBy {
	case "day", "author", "group":
	default:
		return nil, apperror.BadRequest("unsupported groupBy value")
	}

	query, err := compileFeedQuery(viewer, filter)
	if err != nil {
		return nil, err
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	itemsPerGroup := clamp(filter.ItemsPerGroup, 1, maxItemsPerGrp, defaultItemsPerGrp)

	rows, err := s.postRepo.FindFeedKeys(ctx, query)
	if err != nil {
		return nil, err
	}

	buckets := bucketRows(rows, filter.GroupBy)

	if filter.Sort == "count" {
		sort.SliceStable(buckets, func(i, j int) bool {
			if buckets[i].count != buckets[j].count {
				return buckets[i].count > buckets[j].count
			}
			if !buckets[i].latestAt.Equal(buckets[j].latestAt) {
				return buckets[i].latestAt.After(buckets[j].latestAt)
			}
			return buckets[i].sortKey < buckets[j].sortKey
		})
	} else {
		sort.SliceStable(buckets, func(i, j int) bool {
			if !buckets[i].latestAt.Equal(buckets[j].latestAt) {
				return buckets[i].latestAt.After(buckets[j].latestAt)
			}
			return buckets[i].sortKey < buckets[j].sortKey
		})
	}

	totalGroups := int64(len(buckets))

	// Pagination windows the bucket list, never the items inside a bucket.
	offset := (page - 1) * limit
	if offset > len(buckets) {
		offset = len(buckets)
	}
	end := offset + limit
	if end > len(buckets) {
		end = len(buckets)
	}
	window := buckets[offset:end]

	var itemIDs []uuid.UUID
	for _, b := range window {
		n := itemsPerGroup
		if n > len(b.itemIDs) {
			n = len(b.itemIDs)
		}
		itemIDs = append(itemIDs, b.itemIDs[:n]...)
	}

	posts, err := s.postRepo.FindByIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	postsByID := make(map[uuid.UUID]*model.Post, len(posts))
	for _, p := range posts {
		postsByID[p.ID] = p
	}

	items, err := s.decorate(ctx, viewer, posts)
	if err != nil {
		return nil, err
	}
	itemsByID := make(map[uuid.UUID]dto.FeedItem, len(items))
	for _, it := range items {
		itemsByID[it.ID] = it
	}

	groups := make([]dto.FeedBucket, 0, len(window))
	for _, b := range window {
		n := itemsPerGroup
		if n > len(b.itemIDs) {
			n = len(b.itemIDs)
		}

		bucketItems := make([]dto.FeedItem, 0, n)
		for _, id := range b.itemIDs[:n] {
			if it, ok := itemsByID[id]; ok {
				bucketItems = append(bucketItems, it)
			}
		}

		groups = append(groups, dto.FeedBucket{
			Key:      resolveGroupKey(filter.GroupBy, b, postsByID),
			Count:    b.count,
			LatestAt: b.latestAt,
			Items:    bucketItems,
		})
	}

	return &dto.GroupedFeed{
		GroupBy:       filter.GroupBy,
		Groups:        groups,
		TotalGroups:   totalGroups,
		Page:          page,
		Pages:         pageCount(totalGroups, limit),
		Limit:         limit,
		ItemsPerGroup: itemsPerGroup,
	}, nil
}

// decorate shapes posts into feed items with counts and the viewer's like
// state. The raw like and comment rows never leave the service.
func (s *feedService) decorate(ctx context.Context, viewer *uuid.UUID, posts []*model.Post) ([]dto.FeedItem, error) {
	ids := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	likeCounts, err := s.likeRepo.CountsByPosts(ctx, ids)
	if err != nil {
		return nil, err
	}
	commentCounts, err := s.commentRepo.CountsByPosts(ctx, ids)
	if err != nil {
		return nil, err
	}

	liked := map[uuid.UUID]bool{}
	if viewer != nil {
		liked, err = s.likeRepo.LikedByUser(ctx, *viewer, ids)
		if err != nil {
			return nil, err
		}
	}

	items := make([]dto.FeedItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, dto.FeedItem{
			ID:            p.ID,
			Title:         p.Title,
			Content:       p.Content,
			Images:        p.Images,
			Author:        dto.AuthorRef{ID: p.AuthorID, Username: p.Author.Username},
			Group:         groupRefOf(p),
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
			LikesCount:    likeCounts[p.ID],
			CommentsCount: commentCounts[p.ID],
			UserLiked:     liked[p.ID],
		})
	}
	return items, nil
}

type feedBucket struct {
	sortKey  string
	authorID uuid.UUID
	groupID  *uuid.UUID
	day      string
	count    int64
	latestAt time.Time
	itemIDs  []uuid.UUID
}

// bucketRows groups the key projection. Rows arrive newest-first, so each
// bucket's items are already ordered and latestAt is the first timestamp.
func bucketRows(rows []repository.FeedKeyRow, groupBy string) []*feedBucket {
	index := make(map[string]*feedBucket)
	var buckets []*feedBucket

	for _, row := range rows {
		var key string
		switch groupBy {
		case "day":
			key = row.CreatedAt.UTC().Format(dayFormat)
		case "author":
			key = row.AuthorID.String()
		case "group":
			if row.GroupID != nil {
				key = row.GroupID.String()
			}
		}

		b, ok := index[key]
		if !ok {
			b = &feedBucket{
				sortKey:  key,
				authorID: row.AuthorID,
				groupID:  row.GroupID,
				day:      row.CreatedAt.UTC().Format(dayFormat),
				latestAt: row.CreatedAt,
			}
			index[key] = b
			buckets = append(buckets, b)
		}

		b.count++
		b.itemIDs = append(b.itemIDs, row.ID)
		if row.CreatedAt.After(b.latestAt) {
			b.latestAt = row.CreatedAt
		}
	}

	return buckets
}

func resolveGroupKey(groupBy string, b *feedBucket, posts map[uuid.UUID]*model.Post) dto.GroupKey {
	switch groupBy {
	case "day":
		return dto.GroupKey{Kind: dto.KeyDay, Day: b.day}
	case "author":
		key := dto.GroupKey{Kind: dto.KeyAuthor, ID: b.authorID}
		// Every bucket carries at least one item, whose author is the key.
		if len(b.itemIDs) > 0 {
			if p, ok := posts[b.itemIDs[0]]; ok {
				key.DisplayName = p.Author.Username
			}
		}
		return key
	case "group":
		if b.groupID == nil {
			return dto.GroupKey{Kind: dto.KeyNone}
		}
		key := dto.GroupKey{Kind: dto.KeyGroup, ID: *b.groupID}
		if len(b.itemIDs) > 0 {
			if p, ok := posts[b.itemIDs[0]]; ok && p.Group != nil {
				key.DisplayName = p.Group.Name
			}
		}
		return key
	}
	return dto.GroupKey{Kind: dto.KeyNone}
}

func groupRefOf(p *model.Post) *dto.GroupRef {
	if p.GroupID == nil || p.Group == nil {
		return nil
	}
	return &dto.GroupRef{ID: *p.GroupID, Name: p.Group.Name}
}

func compileFeedQuery(viewer *uuid.UUID, filter dto.FeedFilter) (repository.FeedQuery, error) {
	var query repository.FeedQuery

	query.Search = filter.Query

	if filter.Group != "" {
		groupID, err := uuid.Parse(filter.Group)
		if err != nil {
			return query, apperror.BadRequest("invalid group id")
		}
		query.GroupID = &groupID
	}

	if filter.From != "" {
		from, err := parseTimeBound(filter.From)
		if err != nil {
			return query, apperror.BadRequest("invalid from date")
		}
		query.From = &from
	}
	if filter.To != "" {
		to, err := parseTimeBound(filter.To)
		if err != nil {
			return query, apperror.BadRequest("invalid to date")
		}
		query.To = &to
	}

	if filter.Mine {
		// Restricting to own posts without a session is an error, never an
		// empty result.
		if viewer == nil {
			return query, apperror.ErrUnauthorized
		}
		query.AuthorID = viewer
	}

	return query, nil
}

func parseTimeBound(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(dayFormat, value)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	return page, clamp(limit, 1, maxFeedLimit, defaultFeedLimit)
}

// clamp caps v at max; zero or negative values fall back to the default.
func clamp(v, min, max, def int) int {
	if v < min {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func pageCount(total int64, limit int) int {
	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages < 1 {
		pages = 1
	}
	return pages
}
