package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/citygallery/citygallery/internal/dto"
	"github.com/citygallery/citygallery/internal/repository"
	"github.com/citygallery/citygallery/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newFeedService(db *gorm.DB) FeedService {
	return NewFeedService(
		repository.NewPostRepository(db),
		repository.NewLikeRepository(db),
		repository.NewCommentRepository(db),
	)
}

func TestFeedPaginationCoversEveryPost(t *testing.T) {
	db := setupTestDB(t)
	svc := newFeedService(db)
	author := createTestUser(t, db, "paginator")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		createTestPost(t, db, author.ID, nil, fmt.Sprintf("post-%02d", i), base.Add(time.Duration(i)*time.Minute))
	}

	seen := make(map[uuid.UUID]bool)
	var pages int
	for page := 1; ; page++ {
		resp, err := svc.List(context.Background(), nil, dto.FeedFilter{Page: page, Limit: 10})
		if err != nil {
			t.Fatalf("List page %d failed: %v", page, err)
		}
		if page == 1 {
			if resp.Total != 30 {
				t.Errorf("total: expected 30, got %d", resp.Total)
			}
			if resp.Pages != 3 {
				t.Errorf("pages: expected 3, got %d", resp.Pages)
			}
		}
		for _, item := range resp.Items {
			if seen[item.ID] {
				t.Errorf("post %s appeared on more than one page", item.ID)
			}
			seen[item.ID] = true
		}
		pages = page
		if page >= resp.Pages {
			break
		}
	}

	if pages != 3 {
		t.Errorf("walked %d pages, expected 3", pages)
	}
	if len(seen) != 30 {
		t.Errorf("pages covered %d posts, expected 30", len(seen))
	}
}

func TestFeedOrderIsStableAcrossIdenticalTimestamps(t *testing.T) {
	db := setupTestDB(t)
	svc := newFeedService(db)
	author := createTestUser(t, db, "tied")

	at := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		createTestPost(t, db, author.ID, nil, fmt.Sprintf("tied-%02d", i), at)
	}

	first, err := svc.List(context.Background(), nil, dto.FeedFilter{Limit: 12})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	second, err := svc.List(context.Background(), nil, dto.FeedFilter{Limit: 12})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	for i := range first.Items {
		if first.Items[i].ID != second.Items[i].ID {
			t.Fatalf("order changed between identical queries at index %d", i)
		}
	}
}

func TestFeedLimitIsClamped(t *testing.T) {
	db := setupTestDB(t)
	svc := newFeedService(db)
	author := createTestUser(t, db, "clamper")
	createTestPost(t, db, author.ID, nil, "single", time.Now().UTC())

	resp, err := svc.List(context.Background(), nil, dto.FeedFilter{Limit: 5000})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if resp.Limit != 100 {
		t.Errorf("limit: expected clamp to 100, got %d", resp.Limit)
	}

	resp, err = svc.List(context.Background(), nil, dto.FeedFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if resp.Limit != 24 {
		t.Errorf("limit: expected default 24, got %d", resp.Limit)
	}
	if resp.Pages != 1 {
		t.Errorf("pages: expected floor of 1, got %d", resp.Pages)
	}

	// Negative values are treated as unset, not clamped to the minimum.
	resp, err = svc.List(context.Background(), nil, dto.FeedFilter{Limit: -3})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if resp.Limit != 24 {
		t.Errorf("limit: expected default 24 for negative input, got %d", resp.Limit)
	}

	grouped, err := svc.ListGrouped(context.Background(), nil, dto.FeedFilter{GroupBy: "day", ItemsPerGroup: -1})
	if err != nil {
		t.Fatalf("ListGrouped failed: %v", err)
	}
	if len(grouped.Groups) != 1 || len(grouped.Groups[0].Items) != 1 {
		t.Fatalf("expected the single post under one bucket, got %+v", grouped.Groups)
	}
}

func TestFeedMineWithoutViewerIsUnauthorized(t *testing.T) {
	db := setupTestDB(t)
	svc := newFeedService(db)

	_, err := svc.List(context.Background(), nil, dto.FeedFilter{Mine: true})
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	_, err = svc.ListGrouped(context.Background(), nil, dto.FeedFilter{Mine: true, GroupBy: "day"})
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for grouped mine, got %v", err)
	}
}

func TestFeedMineFiltersToViewer(t *testing.T) {
	db := setupTestDB(t)
	svc := newFeedService(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	now := time.Now().UTC()
	createTestPost(t, db, alice.ID, nil, "alice-1", now)
	createTestPost(t, db, bob.ID, nil, "bob-1", now)

	resp, err := svc.List(context.Background(), &alice.ID, dto.FeedFilter{Mine: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.Items[0].Author.ID != alice.ID {
		t.Errorf("expected only alice's posts")
	}
}

func TestFeedRejectsUnknownGroupBy(t *testing.T) {
	db := setupTestDB(t)
	svc := newFeedService(db)

	_, err := svc.ListGrouped(context.Background(), nil, dto.FeedFilter{GroupBy: "color"})
	if !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestFeedGroupedByDay(t *testing.T) {
	db := setupTestDB(t)
	svc := newFeedService(db)
	author := createTestUser(t, db, "daily")

	dayOne := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	dayTwo := time.Date(2026, 8, 21, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		createTestPost(t, db, author.ID, nil, fmt.Sprintf("one-%d", i), dayOne.Add(time.Duration(i)*time.Hour))
	}
	for i := 0; i < 2; i++ {
		createTestPost(t, db, author.ID, nil, fmt.Sprintf("two-%d", i), dayTwo.Add(time.Duration(i)*time.Hour))
	}

	resp, err := svc.ListGrouped(context.Background(), nil, dto.FeedFilter{GroupBy: "day"})
	if err != nil {
		t.Fatalf("ListGrouped failed: %v", err)
	}

	if resp.TotalGroups != 2 {
		t.Fatalf("totalGroups: expected 2, got %d", resp.TotalGroups)
	}
	if len(resp.Groups) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(resp.Groups))
	}

	// Newest day first.
	if resp.Groups[0].Key.Day != "2026-08-21" {
		t.Errorf("first bucket: expected 2026-08-21, got %s", resp.Groups[0].Key.Day)
	}
	if resp.Groups[0].Count != 2 {
		t.Errorf("first bucket count: expected 2, got %d", resp.Groups[0].Count)
	}
	if resp.Groups[1].Key.Day != "2026-08-20" {
		t.Errorf("second bucket: expected 2026-08-20, got %s", resp.Groups[1].Key.Day)
	}
	if resp.Groups[1].Count != 3 {
		t.Errorf("second bucket count: expected 3, got %d", resp.Groups[1].Count)
	}

	wantLatest := dayTwo.Add(time.Hour)
	if !resp.Groups[0].LatestAt.Equal(wantLatest) {
		t.Errorf("latestAt: expected %v, got %v", wantLatest, resp.Groups[0].LatestAt)
	}

	// Items inside a bucket stay newest first.
	items := resp.Groups[1].Items
	if len(items) != 3 {
		t.Fatalf("expected 3 items in second bucket, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].CreatedAt.After(items[i-1].CreatedAt) {
			t.Errorf("bucket items out of order at index %d", i)
		}
	}
}

func TestFeedGroupedByGroupKeepsUngroupedBucket(t *testing.T) {
	db := setupTestDB(t)
	svc := newFeedService(db)
	author := createTestUser(t, db, "grouper")
	group := createTestGroup(t, db, "street-art", author.ID)

	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	createTestPost(t, db, author.ID, &group.ID, "in-group", now)
	createTestPost(t, db, author.ID, nil, "loose", now.Add(time.Minute))

	resp, err := svc.ListGrouped(context.Background(), nil, dto.FeedFilter{GroupBy: "group"})
	if err != nil {
		t.Fatalf("ListGrouped failed: %v", err)
	}
	if resp.TotalGroups != 2 {
		t.Fatalf("totalGroups: expected 2, got %d", resp.TotalGroups)
	}

	var sawGroup, sawNone bool
	for _, bucket := range resp.Groups {
		switch bucket.Key.Kind {
		case dto.KeyGroup:
			sawGroup = true
			if bucket.Key.ID != group.ID {
				t.Errorf("group key id mismatch")
			}
			if bucket.Key.DisplayName != "street-art" {
				t.Errorf("displayName: expected street-art, got %s", bucket.Key.DisplayName)
			}
		case dto.KeyNone:
			sawNone = true
			if bucket.Count != 1 {
				t.Errorf("ungrouped bucket count: expected 1, got %d", bucket.Count)
			}
		}
	}
	if !sawGroup || !sawNone {
		t.Errorf("expected one group bucket and one ungrouped bucket")
	}
}

func TestFeedGroupedSortByCount(t *testing.T) {
	db := setupTestDB(t)
	svc := newFeedService(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	base := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	// bob posts more but alice posts later.
	createTestPost(t, db, bob.ID, nil, "bob-1", base)
	createTestPost(t, db, bob.ID, nil, "bob-2", base.Add(time.Minute))
	createTestPost(t, db, alice.ID, nil, "alice-1", base.Add(time.Hour))

	resp, err := svc.ListGrouped(context.Background(), nil, dto.FeedFilter{GroupBy: "author", Sort: "count"})
	if err != nil {
		t.Fatalf("ListGrouped failed: %v", err)
	}
	if len(resp.Groups) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(resp.Groups))
	}
	if resp.Groups[0].Key.ID != bob.ID {
		t.Errorf("count sort: expected bob's bucket first")
	}

	// Default sort puts the most recent bucket first instead.
	resp, err = svc.ListGrouped(context.Background(), nil, dto.FeedFilter{GroupBy: "author"})
	if err != nil {
		t.Fatalf("ListGrouped failed: %v", err)
	}
	if resp.Groups[0].Key.ID != alice.ID {
		t.Errorf("latest sort: expected alice's bucket first")
	}
}

func TestFeedItemsPerGroupWindowsItemsNotCounts(t *testing.T) {
	db := setupTestDB(t)
	svc := newFeedService(db)
	author := createTestUser(t, db, "prolific")

	day := time.Date(2026, 8, 27, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		createTestPost(t, db, author.ID, nil, fmt.Sprintf("p-%d", i), day.Add(time.Duration(i)*time.Minute))
	}

	resp, err := svc.ListGrouped(context.Background(), nil, dto.FeedFilter{GroupBy: "day", ItemsPerGroup: 3})
	if err != nil {
		t.Fatalf("ListGrouped failed: %v", err)
	}
	if len(resp.Groups) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(resp.Groups))
	}
	if resp.Groups[0].Count != 8 {
		t.Errorf("count: expected full 8, got %d", resp.Groups[0].Count)
	}
	if len(resp.Groups[0].Items) != 3 {
		t.Errorf("items: expected window of 3, got %d", len(resp.Groups[0].Items))
	}
}

func TestFeedSearchAndDateFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := newFeedService(db)
	author := createTestUser(t, db, "filterer")

	createTestPost(t, db, author.ID, nil, "Sunset Mural", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	createTestPost(t, db, author.ID, nil, "Harbor Sketch", time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))

	resp, err := svc.List(context.Background(), nil, dto.FeedFilter{Query: "sunset"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Title != "Sunset Mural" {
		t.Errorf("search: expected only the sunset post, got %d items", len(resp.Items))
	}

	resp, err = svc.List(context.Background(), nil, dto.FeedFilter{From: "2026-08-10"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Title != "Harbor Sketch" {
		t.Errorf("from filter: expected only the later post")
	}

	_, err = svc.List(context.Background(), nil, dto.FeedFilter{From: "not-a-date"})
	if !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for malformed date, got %v", err)
	}
}
