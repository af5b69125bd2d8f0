package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrInvalidTransition 状态迁移非法：记录已不处于预期状态（如通知已发送或已失败）
var ErrInvalidTransition = errors.New("记录状态已变更，操作被拒绝")

// ErrLockNotAcquired 分布式锁已被其他实例持有
var ErrLockNotAcquired = errors.New("锁已被占用")

// IsUniqueViolation 是否为唯一约束冲突（并发创建同名记录时由数据库兜底）
func IsUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

// IsForeignKeyViolation 是否为外键约束冲突
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
