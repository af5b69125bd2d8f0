package service

import (
	"context"
	"errors"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
)

// ── 权限模块业务错误 ──

var ErrNoPermission = errors.New("Operazione non consentita")

// Principal 当前请求的操作人
type Principal struct {
	UserID string
	Role   string
}

// IsAdmin 是否管理员
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// Action 受控操作
type Action string

const (
	ActionRoomRead      Action = "room:read"
	ActionRoomManage    Action = "room:manage"
	ActionGuestRead     Action = "guest:read"
	ActionGuestManage   Action = "guest:manage"
	ActionCheckIn       Action = "guest:check_in"
	ActionCheckOut      Action = "guest:check_out"
	ActionProfileManage Action = "profile:manage"
	ActionAuditRead     Action = "audit:read"
	ActionImportExport  Action = "import_export"
	ActionEmailAdmin    Action = "email:admin"
	ActionEmailSelf     Action = "email:self"
	ActionStatsRead     Action = "stats:read"
	ActionAccountCreate Action = "account:create"
)

// roomScoped 接待员仅可在已分配接待厅上执行的操作
var roomScoped = map[Action]bool{
	ActionRoomRead:  true,
	ActionGuestRead: true,
	ActionCheckIn:   true,
	ActionCheckOut:  true,
}

// policy 角色 → 允许的操作
var policy = map[string]map[Action]bool{
	model.RoleAdmin: {
		ActionRoomRead:      true,
		ActionRoomManage:    true,
		ActionGuestRead:     true,
		ActionGuestManage:   true,
		ActionCheckIn:       true,
		ActionCheckOut:      true,
		ActionProfileManage: true,
		ActionAuditRead:     true,
		ActionImportExport:  true,
		ActionEmailAdmin:    true,
		ActionEmailSelf:     true,
		ActionStatsRead:     true,
		ActionAccountCreate: true,
	},
	model.RoleHostess: {
		ActionRoomRead:  true,
		ActionGuestRead: true,
		ActionCheckIn:   true,
		ActionCheckOut:  true,
		ActionEmailSelf: true,
	},
}

// Resource 受控资源，RoomID 为空表示不针对具体接待厅
type Resource struct {
	RoomID string
}

// RoomAccess 接待员的接待厅分配查询
type RoomAccess interface {
	Exists(ctx context.Context, userID, roomID string) (bool, error)
}

// Can 判断操作人是否可对资源执行操作
// 管理员不受接待厅范围限制；接待员对 roomScoped 操作需已分配该接待厅
func Can(ctx context.Context, access RoomAccess, p Principal, action Action, res Resource) (bool, error) {
	allowed := policy[p.Role][action]
	if !allowed {
		return false, nil
	}
	if p.IsAdmin() || !roomScoped[action] || res.RoomID == "" {
		return true, nil
	}
	return access.Exists(ctx, p.UserID, res.RoomID)
}

// Allowed 仅按角色判断（路由中间件使用）
func Allowed(role string, action Action) bool {
	return policy[role][action]
}

// authorize Can 的便捷包装，拒绝时返回 ErrNoPermission
func authorize(ctx context.Context, repo *repository.Repository, p Principal, action Action, res Resource) error {
	ok, err := Can(ctx, repo.UserRoom, p, action, res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoPermission
	}
	return nil
}

// visibleRoomIDs 管理员返回 nil（不限），接待员返回已分配接待厅
func visibleRoomIDs(ctx context.Context, repo *repository.Repository, p Principal) ([]string, error) {
	if p.IsAdmin() {
		return nil, nil
	}
	ids, err := repo.UserRoom.ListRoomIDs(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
