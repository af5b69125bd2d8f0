package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
)

func setupTestRoomService() (RoomService, *mockStore) {
	store := newMockStore()
	store.rooms.add("room-olympia", "OLYMPIA")
	store.rooms.add("room-skybox", "SKYBOX")
	store.profiles.add("hostess-001", "giulia@stadium.com", "Giulia Verdi", model.RoleHostess)
	_ = store.userRooms.Assign(context.Background(), "hostess-001", "room-olympia")
	return NewRoomService(store.repo(), zap.NewNop()), store
}

func TestRoomService_List_Scope(t *testing.T) {
	svc, _ := setupTestRoomService()
	ctx := context.Background()

	all, err := svc.List(ctx, adminPrincipal)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("管理员应看到全部接待厅，实际=%d", len(all))
	}

	mine, err := svc.List(ctx, hostessPrincipal)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != "room-olympia" {
		t.Errorf("接待员仅应看到已分配接待厅，实际=%+v", mine)
	}
}

func TestRoomService_GetByID_Scope(t *testing.T) {
	svc, _ := setupTestRoomService()
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, hostessPrincipal, "room-skybox"); !errors.Is(err, ErrNoPermission) {
		t.Errorf("期望 ErrNoPermission，实际: %v", err)
	}
	if _, err := svc.GetByID(ctx, adminPrincipal, "missing"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("期望 ErrRoomNotFound，实际: %v", err)
	}
}

func TestRoomService_Create_DuplicateName(t *testing.T) {
	svc, _ := setupTestRoomService()
	ctx := context.Background()

	resp, err := svc.Create(ctx, &dto.CreateRoomRequest{Name: "  Presidential  "})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Name != "Presidential" {
		t.Errorf("名称应去除首尾空白，实际=%q", resp.Name)
	}

	if _, err := svc.Create(ctx, &dto.CreateRoomRequest{Name: "olympia"}); !errors.Is(err, ErrRoomNameExists) {
		t.Errorf("大小写不同的重名期望 ErrRoomNameExists，实际: %v", err)
	}
}

func TestRoomService_Update(t *testing.T) {
	svc, _ := setupTestRoomService()
	ctx := context.Background()

	// 仅改变大小写视为同名
	if _, err := svc.Update(ctx, "room-olympia", &dto.UpdateRoomRequest{Name: "Olympia"}); err != nil {
		t.Fatalf("自身改名应成功: %v", err)
	}
	if _, err := svc.Update(ctx, "room-olympia", &dto.UpdateRoomRequest{Name: "skybox"}); !errors.Is(err, ErrRoomNameExists) {
		t.Errorf("期望 ErrRoomNameExists，实际: %v", err)
	}
	if _, err := svc.Update(ctx, "missing", &dto.UpdateRoomRequest{Name: "X"}); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("期望 ErrRoomNotFound，实际: %v", err)
	}
}

func TestRoomService_Delete_Cascade(t *testing.T) {
	svc, store := setupTestRoomService()
	ctx := context.Background()
	store.guests.add("g1", "room-olympia", "Mario", "Rossi")
	store.guests.add("g2", "room-olympia", "Luca", "Bianchi")
	store.guests.add("g3", "room-skybox", "Sara", "Neri")

	resp, err := svc.Delete(ctx, "room-olympia")
	if err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if resp.DeletedGuests != 2 {
		t.Errorf("期望连带删除 2 位宾客，实际=%d", resp.DeletedGuests)
	}
	if _, err := store.guests.GetByID(ctx, "g3"); err != nil {
		t.Error("其他接待厅的宾客不应被删除")
	}
	if _, err := svc.Delete(ctx, "room-olympia"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("期望 ErrRoomNotFound，实际: %v", err)
	}
}

func TestRoomService_Stats(t *testing.T) {
	svc, store := setupTestRoomService()
	ctx := context.Background()
	for i, name := range []string{"A", "B", "C"} {
		g := store.guests.add("g"+name, "room-olympia", name, "Test")
		if i == 0 {
			g.CheckedIn = true
		}
	}

	stats, err := svc.Stats(ctx, hostessPrincipal, "room-olympia")
	if err != nil {
		t.Fatalf("Stats 应成功: %v", err)
	}
	if stats.TotalGuests != 3 || stats.CheckedIn != 1 || stats.Pending != 2 {
		t.Errorf("统计错误: %+v", stats)
	}
	if stats.CheckInRate != 33.3 {
		t.Errorf("期望签到率 33.3，实际=%v", stats.CheckInRate)
	}
	if _, err := svc.Stats(ctx, hostessPrincipal, "room-skybox"); !errors.Is(err, ErrNoPermission) {
		t.Errorf("期望 ErrNoPermission，实际: %v", err)
	}
}

func TestCheckInRate(t *testing.T) {
	tests := []struct {
		checked, total int64
		want           float64
	}{
		{0, 0, 0},
		{1, 4, 25},
		{2, 3, 66.7},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := checkInRate(tt.checked, tt.total); got != tt.want {
			t.Errorf("checkInRate(%d, %d) 期望=%v，实际=%v", tt.checked, tt.total, tt.want, got)
		}
	}
}
