package dto

import "github.com/shopspring/decimal"

// ── 通用 ──

// TermScopeQuery 学期成绩作用域（查询参数）
type TermScopeQuery struct {
	StudentID string `form:"student_id" binding:"required"`
	SubjectID string `form:"subject_id" binding:"required"`
	TermID    string `form:"term_id"    binding:"required"`
}

// TermScopeRequest 学期成绩作用域（请求体）
type TermScopeRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	SubjectID string `json:"subject_id" binding:"required"`
	TermID    string `json:"term_id"    binding:"required"`
}

// ── 学期成绩 ──

// RecalculateRequest 触发学期成绩重算
type RecalculateRequest struct {
	StudentID string  `json:"student_id" binding:"required"`
	SubjectID string  `json:"subject_id" binding:"required"`
	TermID    string  `json:"term_id"    binding:"required"`
	ClassID   *string `json:"class_id"` // 为空时取学生当前班级
}

// BreakdownQuery 成绩明细查询参数
type BreakdownQuery struct {
	TermScopeQuery
	ClassID string `form:"class_id"`
}

// ExportTermGradesQuery 班级学期成绩导出参数
type ExportTermGradesQuery struct {
	ClassID string `form:"class_id" binding:"required"`
	TermID  string `form:"term_id"  binding:"required"`
}

// OverrideRequest 设置/清除手动覆盖成绩；ManualOverride 为 null 表示清除
type OverrideRequest struct {
	TermScopeRequest
	ManualOverride *decimal.Decimal `json:"manual_override" binding:"omitempty,gte=0"`
}

// TermGradeResponse 学期成绩
type TermGradeResponse struct {
	ID                 string           `json:"id"`
	StudentID          string           `json:"student_id"`
	SubjectID          string           `json:"subject_id"`
	TermID             string           `json:"term_id"`
	CalculatedGrade    decimal.Decimal  `json:"calculated_grade"`
	ManualOverride     *decimal.Decimal `json:"manual_override"`
	FinalGrade         decimal.Decimal  `json:"final_grade"`
	TotalWeightEntered decimal.Decimal  `json:"total_weight_entered"`
	ComponentCount     int              `json:"component_count"`
	IsComplete         bool             `json:"is_complete"`
	IsFinalized        bool             `json:"is_finalized"`
	FinalizedBy        *string          `json:"finalized_by,omitempty"`
	FinalizedDate      string           `json:"finalized_date,omitempty"`
	UpdatedAt          string           `json:"updated_at"`
}

// ComponentBreakdown 单个组成项的计算明细
type ComponentBreakdown struct {
	Component    string          `json:"component"` // tests | homework | attendance
	Weight       decimal.Decimal `json:"weight"`
	Subscore     decimal.Decimal `json:"subscore"`
	Contribution decimal.Decimal `json:"contribution"`
	Skipped      bool            `json:"skipped"` // 权重为 0 时跳过
}

// TermGradeBreakdown 学期成绩计算明细（不落库）
type TermGradeBreakdown struct {
	StudentID       string               `json:"student_id"`
	SubjectID       string               `json:"subject_id"`
	TermID          string               `json:"term_id"`
	CriteriaID      string               `json:"criteria_id"`
	Components      []ComponentBreakdown `json:"components"`
	CalculatedGrade decimal.Decimal      `json:"calculated_grade"`
	TotalWeight     decimal.Decimal      `json:"total_weight"`
	IsComplete      bool                 `json:"is_complete"`
}

// ── 学年成绩 ──

// RecalculateYearRequest 触发学年成绩重算
type RecalculateYearRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	SubjectID string `json:"subject_id" binding:"required"`
}

// YearGradeQuery 学年成绩查询参数
type YearGradeQuery struct {
	StudentID    string `form:"student_id"     binding:"required"`
	SubjectID    string `form:"subject_id"     binding:"required"`
	SchoolYearID string `form:"school_year_id" binding:"required"`
}

// YearGradeResponse 学年成绩
type YearGradeResponse struct {
	ID                string          `json:"id"`
	StudentID         string          `json:"student_id"`
	SubjectID         string          `json:"subject_id"`
	SchoolYearID      string          `json:"school_year_id"`
	CalculatedAverage decimal.Decimal `json:"calculated_average"`
	LastUpdated       string          `json:"last_updated"`
}
