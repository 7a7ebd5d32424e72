package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
//
// 成绩引擎的三层缓存（组成项 / 学期 / 学年）分别由独立接口负责，
// 重算流程可以在测试中精确断言写入了哪些存储。
type Repository struct {
	db *gorm.DB

	Criteria        CriteriaRepository
	Metric          MetricRepository
	Academic        AcademicRepository
	AssignmentGrade AssignmentGradeRepository
	TermGrade       TermGradeRepository
	YearGrade       YearGradeRepository
	GradeComponent  GradeComponentRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:              db,
		Criteria:        NewCriteriaRepo(db),
		Metric:          NewMetricRepo(db),
		Academic:        NewAcademicRepo(db),
		AssignmentGrade: NewAssignmentGradeRepo(db),
		TermGrade:       NewTermGradeRepo(db),
		YearGrade:       NewYearGradeRepo(db),
		GradeComponent:  NewGradeComponentRepo(db),
	}
}

// BeginTx 开启事务；db 为空（单元测试中的 mock 聚合）时返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 副本
// tx 为 nil 时原样返回（mock 仓储不支持事务）
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// InTx 在单个事务中执行 fn，fn 返回错误时回滚
func (r *Repository) InTx(ctx context.Context, fn func(txRepo *Repository) error) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	if tx == nil {
		return fn(r)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(r.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
