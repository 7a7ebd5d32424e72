package repository

import (
	"context"

	"gorm.io/gorm"

	"moz-sch/backend/internal/model"
)

// AcademicRepository 教务基础数据只读接口（学生 / 班级 / 科目 / 学期）
type AcademicRepository interface {
	GetStudent(ctx context.Context, id string) (*model.Student, error)
	GetClass(ctx context.Context, id string) (*model.Class, error)
	GetTerm(ctx context.Context, id string) (*model.Term, error)
	ListStudentsByClass(ctx context.Context, classID string) ([]model.Student, error)
	ListSubjects(ctx context.Context, ids []string) ([]model.Subject, error)
}

type academicRepo struct {
	db *gorm.DB
}

// NewAcademicRepo 创建 AcademicRepository 实例
func NewAcademicRepo(db *gorm.DB) AcademicRepository {
	return &academicRepo{db: db}
}

func (r *academicRepo) GetStudent(ctx context.Context, id string) (*model.Student, error) {
	var s model.Student
	if err := r.db.WithContext(ctx).Where("student_id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *academicRepo) GetClass(ctx context.Context, id string) (*model.Class, error) {
	var c model.Class
	if err := r.db.WithContext(ctx).Where("class_id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *academicRepo) GetTerm(ctx context.Context, id string) (*model.Term, error) {
	var t model.Term
	if err := r.db.WithContext(ctx).Where("term_id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *academicRepo) ListStudentsByClass(ctx context.Context, classID string) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("name").
		Find(&students).Error
	return students, err
}

func (r *academicRepo) ListSubjects(ctx context.Context, ids []string) ([]model.Subject, error) {
	var subjects []model.Subject
	if len(ids) == 0 {
		return subjects, nil
	}
	err := r.db.WithContext(ctx).
		Where("subject_id IN ?", ids).
		Order("name").
		Find(&subjects).Error
	return subjects, err
}
