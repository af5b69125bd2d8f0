package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
)

func setupTestProfileService() (ProfileService, *mockStore) {
	store := newMockStore()
	store.rooms.add("room-olympia", "OLYMPIA")
	store.rooms.add("room-skybox", "SKYBOX")
	store.profiles.add("admin-001", "admin@stadium.com", "Anna Admin", model.RoleAdmin)
	store.profiles.add("hostess-001", "giulia@stadium.com", "Giulia Verdi", model.RoleHostess)
	_ = store.userRooms.Assign(context.Background(), "hostess-001", "room-skybox")
	return NewProfileService(store.repo(), nil, 15*time.Minute, zap.NewNop()), store
}

// ── 接待厅分配测试 ──

func TestProfileService_ToggleRoom_RestoresEdges(t *testing.T) {
	svc, store := setupTestProfileService()
	ctx := context.Background()
	original, _ := store.userRooms.ListRoomIDs(ctx, "hostess-001")

	on, err := svc.ToggleRoom(ctx, "hostess-001", "room-olympia")
	if err != nil {
		t.Fatalf("ToggleRoom(开) 应成功: %v", err)
	}
	if !on.Assigned {
		t.Error("首次切换应为已分配")
	}
	off, err := svc.ToggleRoom(ctx, "hostess-001", "room-olympia")
	if err != nil {
		t.Fatalf("ToggleRoom(关) 应成功: %v", err)
	}
	if off.Assigned {
		t.Error("再次切换应为未分配")
	}

	after, _ := store.userRooms.ListRoomIDs(ctx, "hostess-001")
	if !reflect.DeepEqual(original, after) {
		t.Errorf("切换两次后应恢复原分配，原=%v 现=%v", original, after)
	}
}

func TestProfileService_AssignRoom_Validation(t *testing.T) {
	svc, _ := setupTestProfileService()
	ctx := context.Background()

	if _, err := svc.AssignRoom(ctx, "admin-001", "room-olympia"); !errors.Is(err, ErrNotHostess) {
		t.Errorf("期望 ErrNotHostess，实际: %v", err)
	}
	if _, err := svc.AssignRoom(ctx, "hostess-001", "missing"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("期望 ErrRoomNotFound，实际: %v", err)
	}
	if _, err := svc.AssignRoom(ctx, "missing", "room-olympia"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestProfileService_ListRooms(t *testing.T) {
	svc, _ := setupTestProfileService()

	rooms, err := svc.ListRooms(context.Background(), "hostess-001")
	if err != nil {
		t.Fatalf("ListRooms 应成功: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "SKYBOX" {
		t.Errorf("期望 [SKYBOX]，实际=%+v", rooms)
	}
}

// ── Update / Delete 测试 ──

func TestProfileService_Update(t *testing.T) {
	svc, store := setupTestProfileService()
	ctx := context.Background()

	resp, err := svc.Update(ctx, adminPrincipal, "hostess-001", &dto.UpdateProfileRequest{
		FullName: ptr("  Giulia Bianchi "),
		Role:     ptr(model.RoleAdmin),
	})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.FullName != "Giulia Bianchi" || resp.Role != model.RoleAdmin {
		t.Errorf("更新结果错误: %+v", resp)
	}
	if p, _ := store.profiles.GetByID(ctx, "hostess-001"); p.Role != model.RoleAdmin {
		t.Errorf("角色应已持久化，实际=%s", p.Role)
	}
}

func TestProfileService_Update_SelfDemote(t *testing.T) {
	svc, _ := setupTestProfileService()

	_, err := svc.Update(context.Background(), adminPrincipal, "admin-001", &dto.UpdateProfileRequest{Role: ptr(model.RoleHostess)})
	if !errors.Is(err, ErrCannotDemoteSelf) {
		t.Errorf("期望 ErrCannotDemoteSelf，实际: %v", err)
	}
}

func TestProfileService_Update_LastAdmin(t *testing.T) {
	svc, store := setupTestProfileService()
	store.profiles.add("admin-002", "second@stadium.com", "Second", model.RoleAdmin)
	ctx := context.Background()

	// 两名管理员时可降级其中一名
	if _, err := svc.Update(ctx, adminPrincipal, "admin-002", &dto.UpdateProfileRequest{Role: ptr(model.RoleHostess)}); err != nil {
		t.Fatalf("降级应成功: %v", err)
	}
	other := Principal{UserID: "admin-002", Role: model.RoleAdmin}
	_, err := svc.Update(ctx, other, "admin-001", &dto.UpdateProfileRequest{Role: ptr(model.RoleHostess)})
	if !errors.Is(err, ErrLastAdministrator) {
		t.Errorf("期望 ErrLastAdministrator，实际: %v", err)
	}
}

func TestProfileService_Delete(t *testing.T) {
	svc, store := setupTestProfileService()
	ctx := context.Background()

	if err := svc.Delete(ctx, adminPrincipal, "admin-001"); !errors.Is(err, ErrCannotDeleteSelf) {
		t.Errorf("期望 ErrCannotDeleteSelf，实际: %v", err)
	}
	if err := svc.Delete(ctx, adminPrincipal, "hostess-001"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, err := store.profiles.GetByID(ctx, "hostess-001"); err == nil {
		t.Error("账号应已删除")
	}
	if err := svc.Delete(ctx, adminPrincipal, "hostess-001"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestProfileService_List_ByRole(t *testing.T) {
	svc, _ := setupTestProfileService()

	list, err := svc.List(context.Background(), &dto.ProfileListRequest{Role: model.RoleHostess})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(list) != 1 || list[0].ID != "hostess-001" {
		t.Errorf("期望仅返回接待员，实际=%+v", list)
	}
}
