package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"moz-sch/backend/internal/dto"
	"moz-sch/backend/pkg/logger"
)

// 触发来源
const (
	TriggerAssignmentGrade = "assignment_grade"
	TriggerComponent       = "grade_component"
)

// RecalcTrigger 成绩重算触发器
//
// 在作业成绩或成绩组成项写入成功之后同步调用，依次刷新学年成绩与学期成绩缓存。
// 重算失败（含 panic）只记录日志并计数，不向调用方返回错误，不回滚已提交的写入。
type RecalcTrigger interface {
	// OnAssignmentGradeChanged 作业成绩新增/修改/删除之后调用
	//
	// 与 OnComponentChanged 一致，不指定班级，评分标准按学生当前班级的年级解析。
	OnAssignmentGradeChanged(ctx context.Context, studentID, subjectID, termID, operatorID string)
	// OnComponentChanged 成绩组成项新增/修改/删除之后调用
	OnComponentChanged(ctx context.Context, studentID, subjectID, termID, operatorID string)
	// Failures 进程启动以来的重算失败次数
	Failures() int64
}

type recalcTrigger struct {
	grades   GradeService
	logger   *zap.Logger
	failures atomic.Int64
}

// NewRecalcTrigger 创建 RecalcTrigger 实例
func NewRecalcTrigger(grades GradeService, logger *zap.Logger) RecalcTrigger {
	return &recalcTrigger{grades: grades, logger: logger}
}

func (t *recalcTrigger) OnAssignmentGradeChanged(ctx context.Context, studentID, subjectID, termID, operatorID string) {
	t.fire(ctx, TriggerAssignmentGrade, studentID, subjectID, termID, operatorID)
}

func (t *recalcTrigger) OnComponentChanged(ctx context.Context, studentID, subjectID, termID, operatorID string) {
	t.fire(ctx, TriggerComponent, studentID, subjectID, termID, operatorID)
}

func (t *recalcTrigger) Failures() int64 {
	return t.failures.Load()
}

func (t *recalcTrigger) fire(ctx context.Context, trigger, studentID, subjectID, termID, operatorID string) {
	req := &dto.RecalculateRequest{StudentID: studentID, SubjectID: subjectID, TermID: termID}
	fields := append(logger.GradeScope(req.StudentID, req.SubjectID, req.TermID), zap.String("trigger", trigger))

	t.guard("year", fields, func() error {
		_, err := t.grades.RecalculateYear(ctx, req.StudentID, req.SubjectID)
		return err
	})
	t.guard("term", fields, func() error {
		_, err := t.grades.Recalculate(ctx, req, operatorID)
		return err
	})
}

// guard 执行单个重算步骤，吞掉错误与 panic
func (t *recalcTrigger) guard(step string, fields []zap.Field, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			t.failures.Add(1)
			t.logger.Error("成绩重算发生 panic", append(fields,
				zap.String("step", step),
				zap.String("panic", fmt.Sprint(p)))...)
		}
	}()

	if err := fn(); err != nil {
		t.failures.Add(1)
		t.logger.Error("成绩重算失败", append(fields, zap.String("step", step), zap.Error(err))...)
	}
}
