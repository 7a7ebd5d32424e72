package dto

import "github.com/shopspring/decimal"

// ── 成绩组成项模块 DTO ──

// UpsertComponentRequest 创建或更新成绩组成项（以 student+subject+term+component_name 为键）
type UpsertComponentRequest struct {
	StudentID     string           `json:"student_id"     binding:"required"`
	SubjectID     string           `json:"subject_id"     binding:"required"`
	TermID        string           `json:"term_id"        binding:"required"`
	ComponentName string           `json:"component_name" binding:"required,max=100"`
	ComponentType string           `json:"component_type" binding:"omitempty,max=50"` // 为空时同 component_name
	Score         decimal.Decimal  `json:"score"          binding:"gte=0"`
	MaxScore      *decimal.Decimal `json:"max_score"      binding:"omitempty,gt=0"` // 默认 20
	Weight        decimal.Decimal  `json:"weight"         binding:"gte=0"`
	SourceType    string           `json:"source_type"    binding:"omitempty,oneof=manual attendance"` // auto_calculated 只由自动生成写入
	Notes         *string          `json:"notes"          binding:"omitempty,max=500"`
}

// AutoCreateComponentsRequest 由已评分作业自动生成组成项
type AutoCreateComponentsRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	SubjectID string `json:"subject_id" binding:"required"`
	TermID    string `json:"term_id"    binding:"required"`
}

// ComponentResponse 成绩组成项
type ComponentResponse struct {
	ID            string          `json:"id"`
	StudentID     string          `json:"student_id"`
	SubjectID     string          `json:"subject_id"`
	TermID        string          `json:"term_id"`
	ComponentName string          `json:"component_name"`
	ComponentType string          `json:"component_type"`
	Score         decimal.Decimal `json:"score"`
	MaxScore      decimal.Decimal `json:"max_score"`
	Weight        decimal.Decimal `json:"weight"`
	SourceType    string          `json:"source_type"`
	AssignmentIDs []string        `json:"assignment_ids,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	UpdatedAt     string          `json:"updated_at"`
}

// WeightedAverageResponse 成绩组成项加权平均；Average 为 null 表示无权重可计算
type WeightedAverageResponse struct {
	StudentID      string           `json:"student_id"`
	SubjectID      string           `json:"subject_id"`
	TermID         string           `json:"term_id"`
	Average        *decimal.Decimal `json:"average"`
	TotalWeight    decimal.Decimal  `json:"total_weight"`
	ComponentCount int              `json:"component_count"`
	IsComplete     bool             `json:"is_complete"`
}

// ── 评分标准 DTO ──

// CriteriaQuery 评分标准查询参数
type CriteriaQuery struct {
	SubjectID    string `form:"subject_id"     binding:"required"`
	YearLevelID  string `form:"year_level_id"  binding:"required"`
	SchoolYearID string `form:"school_year_id" binding:"required"`
}

// UpsertCriteriaRequest 创建或更新评分标准
type UpsertCriteriaRequest struct {
	SubjectID        string          `json:"subject_id"        binding:"required"`
	YearLevelID      string          `json:"year_level_id"     binding:"required"`
	SchoolYearID     string          `json:"school_year_id"    binding:"required"`
	TestsWeight      decimal.Decimal `json:"tests_weight"      binding:"gte=0,lte=100"`
	HomeworkWeight   decimal.Decimal `json:"homework_weight"   binding:"gte=0,lte=100"`
	AttendanceWeight decimal.Decimal `json:"attendance_weight" binding:"gte=0,lte=100"`
}

// CriteriaResponse 评分标准
type CriteriaResponse struct {
	ID               string          `json:"id"`
	SubjectID        string          `json:"subject_id"`
	YearLevelID      string          `json:"year_level_id"`
	SchoolYearID     string          `json:"school_year_id"`
	TestsWeight      decimal.Decimal `json:"tests_weight"`
	HomeworkWeight   decimal.Decimal `json:"homework_weight"`
	AttendanceWeight decimal.Decimal `json:"attendance_weight"`
	TotalWeight      decimal.Decimal `json:"total_weight"`
}

// ── 学生作业成绩 DTO ──

// SaveAssignmentGradeRequest 录入/修改学生作业成绩
type SaveAssignmentGradeRequest struct {
	AssignmentID string           `json:"assignment_id" binding:"required"`
	StudentID    string           `json:"student_id"    binding:"required"`
	Score        *decimal.Decimal `json:"score"         binding:"omitempty,gte=0"`
	Status       string           `json:"status"        binding:"required,oneof=not_submitted submitted graded late"`
	Feedback     *string          `json:"feedback"`
}

// AssignmentGradeResponse 学生作业成绩
type AssignmentGradeResponse struct {
	ID           string           `json:"id"`
	AssignmentID string           `json:"assignment_id"`
	StudentID    string           `json:"student_id"`
	Score        *decimal.Decimal `json:"score"`
	Status       string           `json:"status"`
	Feedback     *string          `json:"feedback,omitempty"`
	GradedAt     string           `json:"graded_at,omitempty"`
}
