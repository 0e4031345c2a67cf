package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/citygallery/citygallery/internal/dto"
	"github.com/citygallery/citygallery/internal/model"
	"github.com/citygallery/citygallery/internal/repository"
	"github.com/citygallery/citygallery/pkg/apperror"
	"gorm.io/gorm"
)

func newGroupService(db *gorm.DB) GroupService {
	return NewGroupService(
		repository.NewGroupRepository(db),
		repository.NewUserRepository(db),
	)
}

func TestCreateGroupMakesOwnerAMember(t *testing.T) {
	db := setupTestDB(t)
	svc := newGroupService(db)
	owner := createTestUser(t, db, "owner")

	group, err := svc.Create(context.Background(), owner.ID, dto.CreateGroupRequest{Name: "muralists"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if group.MembersCount != 1 {
		t.Errorf("membersCount: expected 1, got %d", group.MembersCount)
	}
	if !group.IsMember || !group.IsOwner {
		t.Errorf("owner must be both member and owner, got isMember=%v isOwner=%v", group.IsMember, group.IsOwner)
	}

	mine, err := svc.Mine(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != group.ID {
		t.Errorf("expected the new group in owner's memberships")
	}
}

func TestCreateGroupDuplicateNameConflicts(t *testing.T) {
	db := setupTestDB(t)
	svc := newGroupService(db)
	owner := createTestUser(t, db, "owner")

	if _, err := svc.Create(context.Background(), owner.ID, dto.CreateGroupRequest{Name: "muralists"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := svc.Create(context.Background(), owner.ID, dto.CreateGroupRequest{Name: "muralists"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newGroupService(db)
	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")
	group := createTestGroup(t, db, "sketchers", owner.ID)

	resp, err := svc.Join(context.Background(), member.ID, group.ID)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if resp.MembersCount != 2 || !resp.IsMember {
		t.Errorf("after join: expected membersCount=2 isMember=true, got %d/%v", resp.MembersCount, resp.IsMember)
	}

	// Joining again changes nothing.
	resp, err = svc.Join(context.Background(), member.ID, group.ID)
	if err != nil {
		t.Fatalf("second Join failed: %v", err)
	}
	if resp.MembersCount != 2 {
		t.Errorf("second join: expected membersCount still 2, got %d", resp.MembersCount)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newGroupService(db)
	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")
	group := createTestGroup(t, db, "sketchers", owner.ID)

	if _, err := svc.Join(context.Background(), member.ID, group.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	resp, err := svc.Leave(context.Background(), member.ID, group.ID)
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if resp.MembersCount != 1 || resp.IsMember {
		t.Errorf("after leave: expected membersCount=1 isMember=false, got %d/%v", resp.MembersCount, resp.IsMember)
	}

	// Leaving a group you are not in is a no-op.
	if _, err := svc.Leave(context.Background(), member.ID, group.ID); err != nil {
		t.Fatalf("second Leave failed: %v", err)
	}
}

func TestRemoveMemberOwnerProtection(t *testing.T) {
	db := setupTestDB(t)
	svc := newGroupService(db)
	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")
	group := createTestGroup(t, db, "sculptors", owner.ID)

	if _, err := svc.Join(context.Background(), member.ID, group.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	// Only the owner removes members.
	_, err := svc.RemoveMember(context.Background(), member.ID, group.ID, owner.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner remover, got %v", err)
	}

	// The owner is never removable, not even by themselves.
	_, err = svc.RemoveMember(context.Background(), owner.ID, group.ID, owner.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected ErrForbidden removing owner, got %v", err)
	}

	resp, err := svc.RemoveMember(context.Background(), owner.ID, group.ID, member.ID)
	if err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if resp.MembersCount != 1 {
		t.Errorf("expected 1 member left, got %d", resp.MembersCount)
	}

	// Removing an absent member is a 404, not a silent success.
	_, err = svc.RemoveMember(context.Background(), owner.ID, group.ID, member.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMembersListVisibility(t *testing.T) {
	db := setupTestDB(t)
	svc := newGroupService(db)
	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")
	outsider := createTestUser(t, db, "outsider")
	group := createTestGroup(t, db, "printmakers", owner.ID)

	if _, err := svc.Join(context.Background(), member.ID, group.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	_, err := svc.Members(context.Background(), outsider.ID, group.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}

	resp, err := svc.Members(context.Background(), owner.ID, group.ID)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if !resp.CanRemove {
		t.Errorf("owner view must allow removal")
	}
	if len(resp.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(resp.Members))
	}
	for _, m := range resp.Members {
		if m.IsOwner && m.CanRemove {
			t.Errorf("owner row must not be removable")
		}
		if !m.IsOwner && !m.CanRemove {
			t.Errorf("plain member row must be removable in owner view")
		}
	}

	resp, err = svc.Members(context.Background(), member.ID, group.ID)
	if err != nil {
		t.Fatalf("Members as member failed: %v", err)
	}
	if resp.CanRemove {
		t.Errorf("member view must not allow removal")
	}
}

func TestDeleteGroupDetachesPostsAndMembers(t *testing.T) {
	db := setupTestDB(t)
	svc := newGroupService(db)
	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")
	group := createTestGroup(t, db, "ceramics", owner.ID)

	if _, err := svc.Join(context.Background(), member.ID, group.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	post := createTestPost(t, db, owner.ID, &group.ID, "kiln day", time.Now().UTC())

	// Deletion is owner-only.
	_, err := svc.Delete(context.Background(), member.ID, group.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	deletedID, err := svc.Delete(context.Background(), owner.ID, group.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deletedID != group.ID {
		t.Errorf("deletedId mismatch")
	}

	// Posts survive, detached from the group.
	var reloaded model.Post
	if err := db.First(&reloaded, "id = ?", post.ID).Error; err != nil {
		t.Fatalf("post vanished with the group: %v", err)
	}
	if reloaded.GroupID != nil {
		t.Errorf("expected post group_id cleared")
	}

	var memberships int64
	if err := db.Model(&model.GroupMember{}).Where("group_id = ?", group.ID).Count(&memberships).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if memberships != 0 {
		t.Errorf("expected 0 memberships left, got %d", memberships)
	}
}

func TestJoinableExcludesOwnAndJoinedGroups(t *testing.T) {
	db := setupTestDB(t)
	svc := newGroupService(db)
	owner := createTestUser(t, db, "owner")
	viewer := createTestUser(t, db, "viewer")

	own := createTestGroup(t, db, "mine", viewer.ID)
	joined := createTestGroup(t, db, "joined", owner.ID)
	open := createTestGroup(t, db, "open", owner.ID)

	if _, err := svc.Join(context.Background(), viewer.ID, joined.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	groups, err := svc.Joinable(context.Background(), viewer.ID, dto.GroupFilter{})
	if err != nil {
		t.Fatalf("Joinable failed: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != open.ID {
		t.Fatalf("expected only the open group, got %d groups", len(groups))
	}
	for _, g := range groups {
		if g.ID == own.ID || g.ID == joined.ID {
			t.Errorf("joinable must exclude owned and joined groups")
		}
	}
}

func TestUpdateGroupOwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := newGroupService(db)
	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")
	group := createTestGroup(t, db, "weavers", owner.ID)

	name := "weavers-guild"
	_, err := svc.Update(context.Background(), member.ID, group.ID, dto.UpdateGroupRequest{Name: &name})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	resp, err := svc.Update(context.Background(), owner.ID, group.ID, dto.UpdateGroupRequest{Name: &name})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if resp.Name != "weavers-guild" {
		t.Errorf("name not updated: %s", resp.Name)
	}
}
