package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 以下表由教务系统维护，成绩引擎只读

// Student 学生表 — 对应 students
type Student struct {
	StudentID string  `gorm:"type:uuid;primaryKey" json:"student_id"`
	Name      string  `gorm:"type:varchar(150)"    json:"name"`
	ClassID   *string `gorm:"type:uuid"            json:"class_id,omitempty"` // 当前所在班级
}

func (Student) TableName() string { return "students" }

// Class 班级表 — 对应 classes
type Class struct {
	ClassID      string `gorm:"type:uuid;primaryKey" json:"class_id"`
	Name         string `gorm:"type:varchar(100)"    json:"name"`
	YearLevelID  string `gorm:"type:uuid"            json:"year_level_id"`
	SchoolYearID string `gorm:"type:uuid"            json:"school_year_id"`
}

func (Class) TableName() string { return "classes" }

// Subject 科目表 — 对应 subjects
type Subject struct {
	SubjectID string `gorm:"type:uuid;primaryKey" json:"subject_id"`
	Name      string `gorm:"type:varchar(100)"    json:"name"`
}

func (Subject) TableName() string { return "subjects" }

// Term 学期表 — 对应 terms
type Term struct {
	TermID       string    `gorm:"type:uuid;primaryKey" json:"term_id"`
	SchoolYearID string    `gorm:"type:uuid"            json:"school_year_id"`
	Name         string    `gorm:"type:varchar(100)"    json:"name"`
	StartDate    time.Time `gorm:"type:date"            json:"start_date"`
	EndDate      time.Time `gorm:"type:date"            json:"end_date"`
}

func (Term) TableName() string { return "terms" }

// 评估类型名称
const (
	AssessmentTest     = "Test"
	AssessmentHomework = "Homework"
)

// AssessmentType 评估类型表 — 对应 assessment_types
type AssessmentType struct {
	AssessmentTypeID string `gorm:"type:uuid;primaryKey" json:"assessment_type_id"`
	Name             string `gorm:"type:varchar(50)"     json:"name"` // Test | Homework | ...
	IsScored         bool   `gorm:"not null"             json:"is_scored"`
}

func (AssessmentType) TableName() string { return "assessment_types" }

// 作业状态
const (
	AssignmentDraft     = "draft"
	AssignmentPublished = "published"
	AssignmentClosed    = "closed"
)

// Assignment 作业/测验表 — 对应 assignments
type Assignment struct {
	AssignmentID     string          `gorm:"type:uuid;primaryKey"  json:"assignment_id"`
	Title            string          `gorm:"type:varchar(200)"     json:"title"`
	SubjectID        string          `gorm:"type:uuid"             json:"subject_id"`
	TermID           string          `gorm:"type:uuid"             json:"term_id"`
	ClassID          *string         `gorm:"type:uuid"             json:"class_id,omitempty"`
	AssessmentTypeID string          `gorm:"type:uuid"             json:"assessment_type_id"`
	MaxScore         decimal.Decimal `gorm:"type:numeric(7,2)"     json:"max_score"`
	Weight           decimal.Decimal `gorm:"type:numeric(5,2)"     json:"weight"`
	Status           string          `gorm:"type:varchar(20)"      json:"status"` // draft | published | closed

	AssessmentType *AssessmentType `gorm:"foreignKey:AssessmentTypeID;references:AssessmentTypeID" json:"assessment_type,omitempty"`
	Term           *Term           `gorm:"foreignKey:TermID;references:TermID"                     json:"term,omitempty"`
}

func (Assignment) TableName() string { return "assignments" }

// 学生作业成绩状态
const (
	GradeNotSubmitted = "not_submitted"
	GradeSubmitted    = "submitted"
	GradeGraded       = "graded"
	GradeLate         = "late"
)

// AssignmentGrade 学生作业成绩表 — 对应 assignment_grades
type AssignmentGrade struct {
	AssignmentGradeID string              `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"          json:"assignment_grade_id"`
	AssignmentID      string              `gorm:"type:uuid;not null;uniqueIndex:uq_assignment_grades_key" json:"assignment_id"`
	StudentID         string              `gorm:"type:uuid;not null;uniqueIndex:uq_assignment_grades_key" json:"student_id"`
	Score             decimal.NullDecimal `gorm:"type:numeric(7,2)"                                       json:"score"`
	Status            string              `gorm:"type:varchar(20);not null"                               json:"status"` // not_submitted | submitted | graded | late
	Feedback          *string             `gorm:"type:text"                                               json:"feedback,omitempty"`
	GradedBy          *string             `gorm:"type:uuid"                                               json:"graded_by,omitempty"`
	GradedAt          *time.Time          `json:"graded_at,omitempty"`
	BaseModel
}

func (AssignmentGrade) TableName() string { return "assignment_grades" }

// 出勤状态
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

// Attendance 出勤记录表 — 对应 attendance
type Attendance struct {
	AttendanceID string    `gorm:"type:uuid;primaryKey" json:"attendance_id"`
	StudentID    string    `gorm:"type:uuid"            json:"student_id"`
	SubjectID    string    `gorm:"type:uuid"            json:"subject_id"`
	ClassID      *string   `gorm:"type:uuid"            json:"class_id,omitempty"`
	Date         time.Time `gorm:"type:date"            json:"date"`
	Status       string    `gorm:"type:varchar(20)"     json:"status"` // present | absent | late | excused
}

func (Attendance) TableName() string { return "attendance" }

// ── 只读查询投影 ──

// TestScore 测验得分（仅 graded 且有分数的记录）
type TestScore struct {
	Score    decimal.Decimal
	MaxScore decimal.Decimal
}

// YearGradeRecord 学年成绩计算用的原始记录（未过滤），由 assignment_grades ⨝ assignments ⨝ terms 得到
type YearGradeRecord struct {
	AssignmentGradeID string
	Score             decimal.NullDecimal
	GradeStatus       string
	MaxScore          decimal.Decimal
	AssignmentStatus  string
	SchoolYearID      string
	TermStartDate     time.Time
}

// GradedAssignment 自动生成组成项用的已评分作业
type GradedAssignment struct {
	AssignmentID       string
	AssessmentTypeName string
	Score              decimal.Decimal
	MaxScore           decimal.Decimal
	Weight             decimal.Decimal
}
