package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GradingCriteria 评分标准表 — 对应 grading_criteria
// 每个 (科目, 年级, 学年) 唯一；三项权重应合计 100，但引擎按原值使用
type GradingCriteria struct {
	CriteriaID       string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"criteria_id"`
	SubjectID        string          `gorm:"type:uuid;not null"                             json:"subject_id"`
	YearLevelID      string          `gorm:"type:uuid;not null"                             json:"year_level_id"`
	SchoolYearID     string          `gorm:"type:uuid;not null"                             json:"school_year_id"`
	TestsWeight      decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"           json:"tests_weight"`
	HomeworkWeight   decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"           json:"homework_weight"`
	AttendanceWeight decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"           json:"attendance_weight"`
	BaseModel
}

func (GradingCriteria) TableName() string { return "grading_criteria" }

// 成绩组成项来源
const (
	SourceManual         = "manual"
	SourceAutoCalculated = "auto_calculated"
	SourceAttendance     = "attendance"
)

// GradeComponent 成绩组成项表 — 对应 grade_components
// (student, subject, term, component_name) 唯一；自动生成的组成项权重默认为 0，需教师手动设置
type GradeComponent struct {
	ComponentID   string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"component_id"`
	StudentID     string          `gorm:"type:uuid;not null"                             json:"student_id"`
	SubjectID     string          `gorm:"type:uuid;not null"                             json:"subject_id"`
	TermID        string          `gorm:"type:uuid;not null"                             json:"term_id"`
	ComponentName string          `gorm:"type:varchar(100);not null"                     json:"component_name"`
	ComponentType string          `gorm:"type:varchar(50);not null"                      json:"component_type"`
	Score         decimal.Decimal `gorm:"type:numeric(7,2);not null;default:0"           json:"score"`
	MaxScore      decimal.Decimal `gorm:"type:numeric(7,2);not null;default:20"          json:"max_score"`
	Weight        decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"           json:"weight"`
	SourceType    string          `gorm:"type:varchar(20);not null;default:'manual'"     json:"source_type"` // manual | auto_calculated | attendance
	AssignmentIDs StringArray     `gorm:"type:uuid[]"                                    json:"assignment_ids,omitempty"`
	Notes         *string         `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	BaseModel
}

func (GradeComponent) TableName() string { return "grade_components" }

// TermGrade 学期成绩缓存表 — 对应 term_grades
// (student, subject, term) 唯一；final_grade = manual_override ?? calculated_grade
type TermGrade struct {
	TermGradeID        string              `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"term_grade_id"`
	StudentID          string              `gorm:"type:uuid;not null"                             json:"student_id"`
	SubjectID          string              `gorm:"type:uuid;not null"                             json:"subject_id"`
	TermID             string              `gorm:"type:uuid;not null"                             json:"term_id"`
	CalculatedGrade    decimal.Decimal     `gorm:"type:numeric(5,2);not null;default:0"           json:"calculated_grade"`
	ManualOverride     decimal.NullDecimal `gorm:"type:numeric(5,2)"                              json:"manual_override"`
	FinalGrade         decimal.Decimal     `gorm:"type:numeric(5,2);not null;default:0"           json:"final_grade"`
	TotalWeightEntered decimal.Decimal     `gorm:"type:numeric(6,2);not null;default:0"           json:"total_weight_entered"`
	ComponentCount     int                 `gorm:"not null;default:0"                             json:"component_count"`
	IsComplete         bool                `gorm:"not null;default:false"                         json:"is_complete"`
	IsFinalized        bool                `gorm:"not null;default:false"                         json:"is_finalized"`
	FinalizedBy        *string             `gorm:"type:uuid"                                      json:"finalized_by,omitempty"`
	FinalizedDate      *time.Time          `json:"finalized_date,omitempty"`
	BaseModel
}

func (TermGrade) TableName() string { return "term_grades" }

// StudentYearGrade 学年成绩缓存表 — 对应 student_year_grades（纯缓存，无覆盖）
type StudentYearGrade struct {
	YearGradeID       string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"year_grade_id"`
	StudentID         string          `gorm:"type:uuid;not null"                             json:"student_id"`
	SubjectID         string          `gorm:"type:uuid;not null"                             json:"subject_id"`
	SchoolYearID      string          `gorm:"type:uuid;not null"                             json:"school_year_id"`
	CalculatedAverage decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"           json:"calculated_average"`
	LastUpdated       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"last_updated"`
}

func (StudentYearGrade) TableName() string { return "student_year_grades" }
