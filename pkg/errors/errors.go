package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrShiftAlreadyOpen 同一司机已存在未结束的班次
var ErrShiftAlreadyOpen = errors.New("该司机已有进行中的班次")

// ErrAssignmentAlreadyOpen 同一班次已存在未结束的派车记录
var ErrAssignmentAlreadyOpen = errors.New("该班次已有进行中的派车记录")

const pgUniqueViolation = "23505"

// 由迁移脚本创建的部分唯一索引
const (
	OpenShiftIndex      = "uq_attendance_open_per_driver"
	OpenAssignmentIndex = "uq_truck_assignment_open_per_attendance"
)

// IsUniqueViolation 判断是否为指定约束上的唯一性冲突；constraint 为空时匹配任意约束
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
