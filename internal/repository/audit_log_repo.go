package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
)

// AuditLogFilter 审计日志筛选条件
type AuditLogFilter struct {
	GuestID string
	UserID  string
	Actions []string
	Since   *time.Time
	Until   *time.Time
	Limit   int
}

// AuditLogRepository 审计日志数据访问接口（只追加，无更新/删除）
type AuditLogRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
	ListActivity(ctx context.Context, since, until time.Time) ([]model.ActivityRow, error)
}

type auditLogRepo struct {
	db *gorm.DB
}

// NewAuditLogRepo 创建 AuditLogRepository 实例
func NewAuditLogRepo(db *gorm.DB) AuditLogRepository {
	return &auditLogRepo{db: db}
}

// builder squirrel 默认 ? 占位符，交由 gorm 转换为 $n
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

func (r *auditLogRepo) Create(ctx context.Context, log *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// auditWhere 将筛选条件转换为 squirrel 条件
func auditWhere(f AuditLogFilter, prefix string) sq.And {
	conds := sq.And{}
	if f.GuestID != "" {
		conds = append(conds, sq.Eq{prefix + "guest_id": f.GuestID})
	}
	if f.UserID != "" {
		conds = append(conds, sq.Eq{prefix + "user_id": f.UserID})
	}
	if len(f.Actions) > 0 {
		conds = append(conds, sq.Eq{prefix + "action": f.Actions})
	}
	if f.Since != nil {
		conds = append(conds, sq.GtOrEq{prefix + "created_at": *f.Since})
	}
	if f.Until != nil {
		conds = append(conds, sq.Lt{prefix + "created_at": *f.Until})
	}
	return conds
}

func (r *auditLogRepo) List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error) {
	query := builder.Select("*").
		From(model.AuditLog{}.TableName()).
		Where(auditWhere(filter, "")).
		OrderBy("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var logs []model.AuditLog
	if err := r.db.WithContext(ctx).Raw(sqlStr, args...).Scan(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ListActivity 某时间段内的审计记录，联表带出宾客、接待厅、操作人
// 关联记录已删除时对应字段为 NULL
func (r *auditLogRepo) ListActivity(ctx context.Context, since, until time.Time) ([]model.ActivityRow, error) {
	query := builder.Select(
		"a.action",
		"a.created_at",
		"a.guest_id",
		"g.first_name || ' ' || g.last_name AS guest_name",
		"rm.name AS room_name",
		"a.user_id",
		"p.full_name AS user_full_name",
	).
		From("audit_log a").
		LeftJoin("guests g ON g.id = a.guest_id").
		LeftJoin("rooms rm ON rm.id = g.room_id").
		LeftJoin("profiles p ON p.id = a.user_id").
		Where(auditWhere(AuditLogFilter{Since: &since, Until: &until}, "a.")).
		OrderBy("a.created_at ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []model.ActivityRow
	if err := r.db.WithContext(ctx).Raw(sqlStr, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
