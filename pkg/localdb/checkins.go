package localdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mosa54/control-center/internal/model"
)

// ErrDuplicateEmployee employee_id 唯一约束冲突
var ErrDuplicateEmployee = errors.New("localdb: 该人员已存在应召记录")

// ListCheckIns 按应召时间返回全部记录
func (s *Store) ListCheckIns(ctx context.Context) ([]model.CheckIn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT employee_id, dept, name, position, duty_status, checked_in_at
		 FROM checkins ORDER BY checked_in_at, rowid;`)
	if err != nil {
		return nil, fmt.Errorf("查询应召记录失败: %w", err)
	}
	defer rows.Close()

	var list []model.CheckIn
	for rows.Next() {
		var (
			rec    model.CheckIn
			status *string
			at     string
		)
		if err := rows.Scan(&rec.EmployeeID, &rec.Dept, &rec.Name, &rec.Position, &status, &at); err != nil {
			return nil, fmt.Errorf("读取应召记录失败: %w", err)
		}
		if status != nil {
			ds := model.DutyStatus(*status)
			rec.DutyStatus = &ds
		}
		rec.CheckedInAt, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("解析应召时间失败: %w", err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历应召记录失败: %w", err)
	}
	return list, nil
}

// InsertCheckIn 插入记录，唯一约束冲突返回 ErrDuplicateEmployee
func (s *Store) InsertCheckIn(ctx context.Context, rec model.CheckIn) error {
	var status *string
	if rec.DutyStatus != nil {
		v := string(*rec.DutyStatus)
		status = &v
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkins (employee_id, dept, name, position, duty_status, checked_in_at)
		 VALUES (?, ?, ?, ?, ?, ?);`,
		rec.EmployeeID, rec.Dept, rec.Name, rec.Position, status,
		rec.CheckedInAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isConstraintErr(err) {
			return ErrDuplicateEmployee
		}
		return fmt.Errorf("写入应召记录失败: %w", err)
	}
	return nil
}

// DeleteCheckIn 删除指定人员的记录（不存在不视为错误）
func (s *Store) DeleteCheckIn(ctx context.Context, employeeID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkins WHERE employee_id = ?;`, employeeID); err != nil {
		return fmt.Errorf("删除应召记录失败: %w", err)
	}
	return nil
}

// DeleteAllCheckIns 清空应召记录
func (s *Store) DeleteAllCheckIns(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkins;`); err != nil {
		return fmt.Errorf("清空应召记录失败: %w", err)
	}
	return nil
}

// UpdateCheckInDept 修改部门，返回受影响行数
func (s *Store) UpdateCheckInDept(ctx context.Context, employeeID, dept string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE checkins SET dept = ? WHERE employee_id = ?;`, dept, employeeID)
	if err != nil {
		return 0, fmt.Errorf("修改应召部门失败: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("读取受影响行数失败: %w", err)
	}
	return n, nil
}

func isConstraintErr(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	// 扩展错误码的低 8 位为主错误码
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
