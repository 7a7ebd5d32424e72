package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"moz-sch/backend/internal/model"
	"moz-sch/backend/internal/repository"
)

var errMockDB = errors.New("mock: 数据库不可用")

// ── Mock CriteriaRepository ──

type mockCriteriaRepo struct {
	rows      map[string]*model.GradingCriteria
	findCalls int
	upserts   int
}

func newMockCriteriaRepo() *mockCriteriaRepo {
	return &mockCriteriaRepo{rows: make(map[string]*model.GradingCriteria)}
}

func criteriaKey(subjectID, yearLevelID, schoolYearID string) string {
	return subjectID + ":" + yearLevelID + ":" + schoolYearID
}

func (m *mockCriteriaRepo) Find(_ context.Context, subjectID, yearLevelID, schoolYearID string) (*model.GradingCriteria, error) {
	m.findCalls++
	if c, ok := m.rows[criteriaKey(subjectID, yearLevelID, schoolYearID)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *mockCriteriaRepo) Upsert(_ context.Context, c *model.GradingCriteria) error {
	m.upserts++
	key := criteriaKey(c.SubjectID, c.YearLevelID, c.SchoolYearID)
	if existing, ok := m.rows[key]; ok {
		c.CriteriaID = existing.CriteriaID
	} else if c.CriteriaID == "" {
		c.CriteriaID = uuid.NewString()
	}
	cp := *c
	m.rows[key] = &cp
	return nil
}

func (m *mockCriteriaRepo) ListBySchoolYear(_ context.Context, schoolYearID string) ([]model.GradingCriteria, error) {
	var list []model.GradingCriteria
	for _, c := range m.rows {
		if c.SchoolYearID == schoolYearID {
			list = append(list, *c)
		}
	}
	return list, nil
}

// ── Mock MetricRepository ──

type mockMetricRepo struct {
	testScores  []model.TestScore
	completed   int
	total       int
	attendance  []string
	yearRecords []model.YearGradeRecord
	graded      []model.GradedAssignment

	err      error
	panicMsg string

	testCalls       int
	homeworkCalls   int
	attendanceCalls int
	attendanceStart time.Time
	attendanceEnd   time.Time
}

func (m *mockMetricRepo) FindTestScores(_ context.Context, _, _, _ string) ([]model.TestScore, error) {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	m.testCalls++
	return m.testScores, m.err
}

func (m *mockMetricRepo) FindHomeworkCompletion(_ context.Context, _, _, _ string) (int, int, error) {
	m.homeworkCalls++
	return m.completed, m.total, m.err
}

func (m *mockMetricRepo) FindAttendance(_ context.Context, _, _ string, start, end time.Time) ([]string, error) {
	m.attendanceCalls++
	m.attendanceStart, m.attendanceEnd = start, end
	return m.attendance, m.err
}

func (m *mockMetricRepo) ListYearGradeRecords(_ context.Context, _, _ string) ([]model.YearGradeRecord, error) {
	return m.yearRecords, m.err
}

func (m *mockMetricRepo) ListGradedAssignments(_ context.Context, _, _, _ string) ([]model.GradedAssignment, error) {
	return m.graded, m.err
}

// ── Mock AcademicRepository ──

type mockAcademicRepo struct {
	students map[string]*model.Student
	classes  map[string]*model.Class
	terms    map[string]*model.Term
	subjects map[string]*model.Subject
}

func newMockAcademicRepo() *mockAcademicRepo {
	return &mockAcademicRepo{
		students: make(map[string]*model.Student),
		classes:  make(map[string]*model.Class),
		terms:    make(map[string]*model.Term),
		subjects: make(map[string]*model.Subject),
	}
}

func (m *mockAcademicRepo) GetStudent(_ context.Context, id string) (*model.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAcademicRepo) GetClass(_ context.Context, id string) (*model.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAcademicRepo) GetTerm(_ context.Context, id string) (*model.Term, error) {
	if t, ok := m.terms[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAcademicRepo) ListStudentsByClass(_ context.Context, classID string) ([]model.Student, error) {
	var list []model.Student
	for _, s := range m.students {
		if s.ClassID != nil && *s.ClassID == classID {
			list = append(list, *s)
		}
	}
	return list, nil
}

func (m *mockAcademicRepo) ListSubjects(_ context.Context, ids []string) ([]model.Subject, error) {
	var list []model.Subject
	for _, id := range ids {
		if s, ok := m.subjects[id]; ok {
			list = append(list, *s)
		}
	}
	return list, nil
}

// ── Mock AssignmentGradeRepository ──

type mockAssignmentGradeRepo struct {
	assignments map[string]*model.Assignment
	grades      map[string]*model.AssignmentGrade
	upserts     int
	deletes     int
	err         error
}

func newMockAssignmentGradeRepo() *mockAssignmentGradeRepo {
	return &mockAssignmentGradeRepo{
		assignments: make(map[string]*model.Assignment),
		grades:      make(map[string]*model.AssignmentGrade),
	}
}

func (m *mockAssignmentGradeRepo) GetByID(_ context.Context, id string) (*model.AssignmentGrade, error) {
	if g, ok := m.grades[id]; ok {
		return g, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentGradeRepo) GetAssignment(_ context.Context, id string) (*model.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentGradeRepo) Upsert(_ context.Context, grade *model.AssignmentGrade) error {
	if m.err != nil {
		return m.err
	}
	m.upserts++
	for id, g := range m.grades {
		if g.AssignmentID == grade.AssignmentID && g.StudentID == grade.StudentID {
			grade.AssignmentGradeID = id
		}
	}
	if grade.AssignmentGradeID == "" {
		grade.AssignmentGradeID = uuid.NewString()
	}
	cp := *grade
	m.grades[grade.AssignmentGradeID] = &cp
	return nil
}

func (m *mockAssignmentGradeRepo) Delete(_ context.Context, id string) error {
	m.deletes++
	delete(m.grades, id)
	return nil
}

// ── Mock TermGradeRepository ──

// mockTermGradeRepo 复现数据库 upsert 语义：
// final_grade = COALESCE(manual_override, calculated_grade)，锁定保护时保留 final_grade
type mockTermGradeRepo struct {
	rows     map[string]*model.TermGrade
	upserts  int
	err      error
	finalize []bool
}

func newMockTermGradeRepo() *mockTermGradeRepo {
	return &mockTermGradeRepo{rows: make(map[string]*model.TermGrade)}
}

func termGradeKey(studentID, subjectID, termID string) string {
	return studentID + ":" + subjectID + ":" + termID
}

func (m *mockTermGradeRepo) Get(_ context.Context, studentID, subjectID, termID string) (*model.TermGrade, error) {
	if g, ok := m.rows[termGradeKey(studentID, subjectID, termID)]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, nil
}

func (m *mockTermGradeRepo) Upsert(_ context.Context, grade *model.TermGrade, respectFinalize bool) error {
	if m.err != nil {
		return m.err
	}
	m.upserts++
	key := termGradeKey(grade.StudentID, grade.SubjectID, grade.TermID)
	existing, ok := m.rows[key]
	if !ok {
		cp := *grade
		cp.TermGradeID = uuid.NewString()
		cp.UpdatedAt = time.Now()
		m.rows[key] = &cp
		return nil
	}

	existing.CalculatedGrade = grade.CalculatedGrade
	existing.TotalWeightEntered = grade.TotalWeightEntered
	existing.ComponentCount = grade.ComponentCount
	existing.IsComplete = grade.IsComplete
	existing.UpdatedBy = grade.UpdatedBy
	existing.UpdatedAt = time.Now()
	if !(respectFinalize && existing.IsFinalized) {
		if existing.ManualOverride.Valid {
			existing.FinalGrade = existing.ManualOverride.Decimal
		} else {
			existing.FinalGrade = grade.CalculatedGrade
		}
	}
	return nil
}

func (m *mockTermGradeRepo) byID(id string) *model.TermGrade {
	for _, g := range m.rows {
		if g.TermGradeID == id {
			return g
		}
	}
	return nil
}

func (m *mockTermGradeRepo) UpdateOverride(_ context.Context, id string, override decimal.NullDecimal, finalGrade decimal.Decimal, updatedBy *string) error {
	g := m.byID(id)
	if g == nil {
		return gorm.ErrRecordNotFound
	}
	g.ManualOverride = override
	g.FinalGrade = finalGrade
	g.UpdatedBy = updatedBy
	return nil
}

func (m *mockTermGradeRepo) UpdateFinalize(_ context.Context, id string, finalized bool, by *string, at *time.Time) error {
	g := m.byID(id)
	if g == nil {
		return gorm.ErrRecordNotFound
	}
	m.finalize = append(m.finalize, finalized)
	g.IsFinalized = finalized
	g.FinalizedBy = by
	g.FinalizedDate = at
	return nil
}

func (m *mockTermGradeRepo) ListByStudentsAndTerm(_ context.Context, studentIDs []string, termID string) ([]model.TermGrade, error) {
	want := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		want[id] = true
	}
	var list []model.TermGrade
	for _, g := range m.rows {
		if want[g.StudentID] && g.TermID == termID {
			list = append(list, *g)
		}
	}
	return list, nil
}

// ── Mock YearGradeRepository ──

type mockYearGradeRepo struct {
	rows    map[string]*model.StudentYearGrade
	upserts int
	err     error
}

func newMockYearGradeRepo() *mockYearGradeRepo {
	return &mockYearGradeRepo{rows: make(map[string]*model.StudentYearGrade)}
}

func (m *mockYearGradeRepo) Get(_ context.Context, studentID, subjectID, schoolYearID string) (*model.StudentYearGrade, error) {
	if g, ok := m.rows[termGradeKey(studentID, subjectID, schoolYearID)]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, nil
}

func (m *mockYearGradeRepo) Upsert(_ context.Context, grade *model.StudentYearGrade) error {
	if m.err != nil {
		return m.err
	}
	m.upserts++
	key := termGradeKey(grade.StudentID, grade.SubjectID, grade.SchoolYearID)
	if existing, ok := m.rows[key]; ok {
		existing.CalculatedAverage = grade.CalculatedAverage
		existing.LastUpdated = grade.LastUpdated
		return nil
	}
	cp := *grade
	cp.YearGradeID = uuid.NewString()
	m.rows[key] = &cp
	return nil
}

func (m *mockYearGradeRepo) ListSchoolYears(_ context.Context, studentID, subjectID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var years []string
	for _, g := range m.rows {
		if g.StudentID == studentID && g.SubjectID == subjectID {
			years = append(years, g.SchoolYearID)
		}
	}
	sort.Strings(years)
	return years, nil
}

// ── Mock GradeComponentRepository ──

type mockGradeComponentRepo struct {
	rows    map[string]*model.GradeComponent // component_id → row
	upserts int
	deletes int
	err     error
}

func newMockGradeComponentRepo() *mockGradeComponentRepo {
	return &mockGradeComponentRepo{rows: make(map[string]*model.GradeComponent)}
}

func (m *mockGradeComponentRepo) findKey(studentID, subjectID, termID, name string) *model.GradeComponent {
	for _, c := range m.rows {
		if c.StudentID == studentID && c.SubjectID == subjectID && c.TermID == termID && c.ComponentName == name {
			return c
		}
	}
	return nil
}

func (m *mockGradeComponentRepo) GetByID(_ context.Context, id string) (*model.GradeComponent, error) {
	if c, ok := m.rows[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGradeComponentRepo) GetByKey(_ context.Context, studentID, subjectID, termID, name string) (*model.GradeComponent, error) {
	if c := m.findKey(studentID, subjectID, termID, name); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *mockGradeComponentRepo) List(_ context.Context, studentID, subjectID, termID string) ([]model.GradeComponent, error) {
	var list []model.GradeComponent
	for _, c := range m.rows {
		if c.StudentID == studentID && c.SubjectID == subjectID && c.TermID == termID {
			list = append(list, *c)
		}
	}
	return list, nil
}

func (m *mockGradeComponentRepo) upsert(c *model.GradeComponent, keepWeight bool) error {
	if m.err != nil {
		return m.err
	}
	m.upserts++
	existing := m.findKey(c.StudentID, c.SubjectID, c.TermID, c.ComponentName)
	if existing == nil {
		cp := *c
		cp.ComponentID = uuid.NewString()
		cp.UpdatedAt = time.Now()
		m.rows[cp.ComponentID] = &cp
		return nil
	}
	weight, notes := existing.Weight, existing.Notes
	id := existing.ComponentID
	*existing = *c
	existing.ComponentID = id
	existing.UpdatedAt = time.Now()
	if keepWeight {
		existing.Weight = weight
		existing.Notes = notes
	}
	return nil
}

func (m *mockGradeComponentRepo) Upsert(_ context.Context, c *model.GradeComponent) error {
	return m.upsert(c, false)
}

func (m *mockGradeComponentRepo) UpsertDerived(_ context.Context, c *model.GradeComponent) error {
	return m.upsert(c, true)
}

func (m *mockGradeComponentRepo) Delete(_ context.Context, id string) error {
	m.deletes++
	delete(m.rows, id)
	return nil
}

// ── Mock CriteriaCache ──

type mockCriteriaCache struct {
	data        map[string][]byte
	err         error
	sets        int
	invalidated []string
}

func newMockCriteriaCache() *mockCriteriaCache {
	return &mockCriteriaCache{data: make(map[string][]byte)}
}

func (m *mockCriteriaCache) GetCriteria(_ context.Context, key string) ([]byte, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *mockCriteriaCache) SetCriteria(_ context.Context, key string, payload []byte) error {
	if m.err != nil {
		return m.err
	}
	m.sets++
	m.data[key] = payload
	return nil
}

func (m *mockCriteriaCache) InvalidateCriteria(_ context.Context, key string) error {
	m.invalidated = append(m.invalidated, key)
	delete(m.data, key)
	return nil
}

// ── Mock RecalcTrigger ──

type triggerCall struct {
	source    string
	studentID string
	subjectID string
	termID    string
}

type mockTrigger struct {
	calls []triggerCall
}

func (m *mockTrigger) OnAssignmentGradeChanged(_ context.Context, studentID, subjectID, termID, _ string) {
	m.calls = append(m.calls, triggerCall{TriggerAssignmentGrade, studentID, subjectID, termID})
}

func (m *mockTrigger) OnComponentChanged(_ context.Context, studentID, subjectID, termID, _ string) {
	m.calls = append(m.calls, triggerCall{TriggerComponent, studentID, subjectID, termID})
}

func (m *mockTrigger) Failures() int64 { return 0 }

// ── 测试夹具 ──

const (
	testStudentID    = "stu-1"
	testSubjectID    = "subj-1"
	testTermID       = "term-1"
	testClassID      = "class-1"
	testYearLevelID  = "yl-1"
	testSchoolYearID = "sy-1"
	testOperatorID   = "teacher-1"
)

// mockStores 一组 mock 仓储，可直接断言写入了哪些存储
type mockStores struct {
	criteria   *mockCriteriaRepo
	metric     *mockMetricRepo
	academic   *mockAcademicRepo
	assignment *mockAssignmentGradeRepo
	termGrade  *mockTermGradeRepo
	yearGrade  *mockYearGradeRepo
	component  *mockGradeComponentRepo
}

func (m *mockStores) repository() *repository.Repository {
	return &repository.Repository{
		Criteria:        m.criteria,
		Metric:          m.metric,
		Academic:        m.academic,
		AssignmentGrade: m.assignment,
		TermGrade:       m.termGrade,
		YearGrade:       m.yearGrade,
		GradeComponent:  m.component,
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newMockStores 学生 stu-1 在班级 class-1（年级 yl-1），学期 term-1 属于学年 sy-1，
// 评分标准 tests:50 / homework:30 / attendance:20
func newMockStores() *mockStores {
	m := &mockStores{
		criteria:   newMockCriteriaRepo(),
		metric:     &mockMetricRepo{},
		academic:   newMockAcademicRepo(),
		assignment: newMockAssignmentGradeRepo(),
		termGrade:  newMockTermGradeRepo(),
		yearGrade:  newMockYearGradeRepo(),
		component:  newMockGradeComponentRepo(),
	}

	classID := testClassID
	m.academic.students[testStudentID] = &model.Student{StudentID: testStudentID, Name: "张三", ClassID: &classID}
	m.academic.classes[testClassID] = &model.Class{ClassID: testClassID, Name: "七年级一班", YearLevelID: testYearLevelID, SchoolYearID: testSchoolYearID}
	m.academic.terms[testTermID] = &model.Term{
		TermID:       testTermID,
		SchoolYearID: testSchoolYearID,
		Name:         "第一学期",
		StartDate:    time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	m.academic.subjects[testSubjectID] = &model.Subject{SubjectID: testSubjectID, Name: "数学"}

	m.criteria.rows[criteriaKey(testSubjectID, testYearLevelID, testSchoolYearID)] = &model.GradingCriteria{
		CriteriaID:       "crit-1",
		SubjectID:        testSubjectID,
		YearLevelID:      testYearLevelID,
		SchoolYearID:     testSchoolYearID,
		TestsWeight:      d("50"),
		HomeworkWeight:   d("30"),
		AttendanceWeight: d("20"),
	}
	return m
}

// withFullMetrics 测验 [18/20, 15/20]，作业 2/3，出勤 8/10
func (m *mockStores) withFullMetrics() *mockStores {
	m.metric.testScores = []model.TestScore{
		{Score: d("18"), MaxScore: d("20")},
		{Score: d("15"), MaxScore: d("20")},
	}
	m.metric.completed, m.metric.total = 2, 3
	m.metric.attendance = []string{
		"present", "present", "present", "present", "present",
		"present", "present", "present", "absent", "late",
	}
	return m
}

func nullDec(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }
