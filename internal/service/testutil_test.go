package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/citygallery/citygallery/internal/model"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Group{},
		&model.GroupMember{},
		&model.Post{},
		&model.PostLike{},
		&model.Comment{},
		&model.Branch{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()

	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "irrelevant",
		Role:         model.RoleUser,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func createTestGroup(t *testing.T, db *gorm.DB, name string, owner uuid.UUID) *model.Group {
	t.Helper()

	group := &model.Group{Name: name, OwnerID: owner}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed to create group %s: %v", name, err)
	}
	if err := db.Create(&model.GroupMember{GroupID: group.ID, UserID: owner}).Error; err != nil {
		t.Fatalf("failed to add owner membership: %v", err)
	}
	return group
}

func createTestPost(t *testing.T, db *gorm.DB, author uuid.UUID, groupID *uuid.UUID, title string, createdAt time.Time) *model.Post {
	t.Helper()

	post := &model.Post{
		Title:     title,
		Content:   "content of " + title,
		AuthorID:  author,
		GroupID:   groupID,
		CreatedAt: createdAt,
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("failed to create post %s: %v", title, err)
	}
	return post
}
