package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moz-sch/backend/internal/model"
)

// TermGradeRepository 学期成绩缓存数据访问接口
type TermGradeRepository interface {
	// Get 不存在时返回 (nil, nil)
	Get(ctx context.Context, studentID, subjectID, termID string) (*model.TermGrade, error)
	// Upsert 以 (student, subject, term) 为键写入计算结果，保留已有的 manual_override；
	// final_grade 由数据库按 COALESCE(manual_override, calculated_grade) 得出。
	// respectFinalize 为 true 时已锁定行的 final_grade 保持不变。
	Upsert(ctx context.Context, grade *model.TermGrade, respectFinalize bool) error
	UpdateOverride(ctx context.Context, termGradeID string, override decimal.NullDecimal, finalGrade decimal.Decimal, updatedBy *string) error
	UpdateFinalize(ctx context.Context, termGradeID string, finalized bool, finalizedBy *string, finalizedAt *time.Time) error
	ListByStudentsAndTerm(ctx context.Context, studentIDs []string, termID string) ([]model.TermGrade, error)
}

type termGradeRepo struct {
	db *gorm.DB
}

// NewTermGradeRepo 创建 TermGradeRepository 实例
func NewTermGradeRepo(db *gorm.DB) TermGradeRepository {
	return &termGradeRepo{db: db}
}

func (r *termGradeRepo) Get(ctx context.Context, studentID, subjectID, termID string) (*model.TermGrade, error) {
	var g model.TermGrade
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND subject_id = ? AND term_id = ?", studentID, subjectID, termID).
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

const finalGradeExpr = "COALESCE(term_grades.manual_override, EXCLUDED.calculated_grade)"

func (r *termGradeRepo) Upsert(ctx context.Context, grade *model.TermGrade, respectFinalize bool) error {
	finalExpr := finalGradeExpr
	if respectFinalize {
		finalExpr = "CASE WHEN term_grades.is_finalized THEN term_grades.final_grade ELSE " + finalGradeExpr + " END"
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "subject_id"}, {Name: "term_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"calculated_grade":     gorm.Expr("EXCLUDED.calculated_grade"),
				"total_weight_entered": gorm.Expr("EXCLUDED.total_weight_entered"),
				"component_count":      gorm.Expr("EXCLUDED.component_count"),
				"is_complete":          gorm.Expr("EXCLUDED.is_complete"),
				"final_grade":          gorm.Expr(finalExpr),
				"updated_by":           gorm.Expr("EXCLUDED.updated_by"),
				"updated_at":           gorm.Expr("NOW()"),
			}),
		}).
		Create(grade).Error
}

func (r *termGradeRepo) UpdateOverride(ctx context.Context, termGradeID string, override decimal.NullDecimal, finalGrade decimal.Decimal, updatedBy *string) error {
	return r.db.WithContext(ctx).
		Model(&model.TermGrade{}).
		Where("term_grade_id = ?", termGradeID).
		Updates(map[string]interface{}{
			"manual_override": override,
			"final_grade":     finalGrade,
			"updated_by":      updatedBy,
			"updated_at":      gorm.Expr("NOW()"),
		}).Error
}

func (r *termGradeRepo) UpdateFinalize(ctx context.Context, termGradeID string, finalized bool, finalizedBy *string, finalizedAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.TermGrade{}).
		Where("term_grade_id = ?", termGradeID).
		Updates(map[string]interface{}{
			"is_finalized":   finalized,
			"finalized_by":   finalizedBy,
			"finalized_date": finalizedAt,
			"updated_at":     gorm.Expr("NOW()"),
		}).Error
}

func (r *termGradeRepo) ListByStudentsAndTerm(ctx context.Context, studentIDs []string, termID string) ([]model.TermGrade, error) {
	var grades []model.TermGrade
	if len(studentIDs) == 0 {
		return grades, nil
	}
	err := r.db.WithContext(ctx).
		Where("student_id IN ? AND term_id = ?", studentIDs, termID).
		Find(&grades).Error
	return grades, err
}
