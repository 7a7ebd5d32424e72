package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"moz-sch/backend/config"
	"moz-sch/backend/internal/model"
	"moz-sch/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoStudents   = errors.New("该班级暂无学生")
	ErrExportNoGrades     = errors.New("该学期暂无学期成绩")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// Excel 格式：
//   - Sheet "学期成绩"：行为学生，列为科目，单元格为 final_grade，低于及格线标红
//   - Sheet "明细"：每条学期成绩一行（计算值 / 手动覆盖 / 最终成绩 / 权重完整 / 锁定）
type ExportService interface {
	ExportTermGrades(ctx context.Context, classID, termID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	cfg    config.GradingConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg config.GradingConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportTermGrades 导出班级学期成绩为 Excel
// ═══════════════════════════════════════════════════════════
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportTermGrades(ctx context.Context, classID, termID string) (*bytes.Buffer, string, error) {
	// 1. 班级与学期
	class, err := s.repo.Academic.GetClass(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.String("class_id", classID), zap.Error(err))
		return nil, "", err
	}
	term, err := s.repo.Academic.GetTerm(ctx, termID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrTermNotFound
		}
		s.logger.Error("查询学期失败", zap.String("term_id", termID), zap.Error(err))
		return nil, "", err
	}

	// 2. 学生与学期成绩
	students, err := s.repo.Academic.ListStudentsByClass(ctx, classID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.String("class_id", classID), zap.Error(err))
		return nil, "", err
	}
	if len(students) == 0 {
		return nil, "", ErrExportNoStudents
	}
	studentIDs := make([]string, 0, len(students))
	for _, st := range students {
		studentIDs = append(studentIDs, st.StudentID)
	}

	grades, err := s.repo.TermGrade.ListByStudentsAndTerm(ctx, studentIDs, termID)
	if err != nil {
		s.logger.Error("查询学期成绩失败", zap.String("term_id", termID), zap.Error(err))
		return nil, "", err
	}
	if len(grades) == 0 {
		return nil, "", ErrExportNoGrades
	}

	// 3. 科目（列）
	subjectSeen := make(map[string]bool)
	var subjectIDs []string
	for _, g := range grades {
		if !subjectSeen[g.SubjectID] {
			subjectSeen[g.SubjectID] = true
			subjectIDs = append(subjectIDs, g.SubjectID)
		}
	}
	subjects, err := s.repo.Academic.ListSubjects(ctx, subjectIDs)
	if err != nil {
		s.logger.Error("查询科目失败", zap.Error(err))
		return nil, "", err
	}
	subjectNames := make(map[string]string, len(subjects))
	for _, sub := range subjects {
		subjectNames[sub.SubjectID] = sub.Name
	}
	// 已删除的科目仍按 id 导出，排在最后
	for _, id := range subjectIDs {
		if _, ok := subjectNames[id]; !ok {
			subjects = append(subjects, model.Subject{SubjectID: id, Name: id})
			subjectNames[id] = id
		}
	}

	// 4. 索引: "studentID:subjectID" → 学期成绩
	gradeIndex := make(map[string]*model.TermGrade, len(grades))
	for i := range grades {
		gradeIndex[grades[i].StudentID+":"+grades[i].SubjectID] = &grades[i]
	}

	// 5. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "学期成绩"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	failStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "#C00000"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	gradeStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	f.SetColWidth(sheetName, "A", "A", 20)
	for i := range subjects {
		col := colName(1 + i)
		f.SetColWidth(sheetName, col, col, 14)
	}

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s 学期成绩", class.Name, term.Name))
	f.MergeCell(sheetName, "A1", cell(colName(len(subjects)), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	f.SetCellValue(sheetName, "A2", "学生")
	for i, sub := range subjects {
		f.SetCellValue(sheetName, cell(colName(1+i), 2), sub.Name)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(subjects)), 2), headerStyle)

	pass := decimal.NewFromInt(int64(s.cfg.PassThreshold))
	row := 3
	for _, st := range students {
		f.SetCellValue(sheetName, cell("A", row), st.Name)
		for i, sub := range subjects {
			ref := cell(colName(1+i), row)
			g, ok := gradeIndex[st.StudentID+":"+sub.SubjectID]
			if !ok {
				f.SetCellValue(sheetName, ref, "-")
				f.SetCellStyle(sheetName, ref, ref, gradeStyle)
				continue
			}
			v, _ := g.FinalGrade.Float64()
			f.SetCellValue(sheetName, ref, v)
			if g.FinalGrade.LessThan(pass) {
				f.SetCellStyle(sheetName, ref, ref, failStyle)
			} else {
				f.SetCellStyle(sheetName, ref, ref, gradeStyle)
			}
		}
		row++
	}

	// 明细
	detailSheet := "明细"
	f.NewSheet(detailSheet)
	headers := []string{"学生", "科目", "计算成绩", "手动覆盖", "最终成绩", "权重合计", "权重完整", "已锁定"}
	for i, h := range headers {
		f.SetCellValue(detailSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(detailSheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(detailSheet, "A", "B", 18)

	row = 2
	for _, st := range students {
		for _, sub := range subjects {
			g, ok := gradeIndex[st.StudentID+":"+sub.SubjectID]
			if !ok {
				continue
			}
			calculated, _ := g.CalculatedGrade.Float64()
			final, _ := g.FinalGrade.Float64()
			weight, _ := g.TotalWeightEntered.Float64()
			f.SetCellValue(detailSheet, cell("A", row), st.Name)
			f.SetCellValue(detailSheet, cell("B", row), sub.Name)
			f.SetCellValue(detailSheet, cell("C", row), calculated)
			if g.ManualOverride.Valid {
				override, _ := g.ManualOverride.Decimal.Float64()
				f.SetCellValue(detailSheet, cell("D", row), override)
			} else {
				f.SetCellValue(detailSheet, cell("D", row), "-")
			}
			f.SetCellValue(detailSheet, cell("E", row), final)
			f.SetCellValue(detailSheet, cell("F", row), weight)
			f.SetCellValue(detailSheet, cell("G", row), yesNo(g.IsComplete))
			f.SetCellValue(detailSheet, cell("H", row), yesNo(g.IsFinalized))
			row++
		}
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("学期成绩_%s_%s.xlsx", class.Name, term.Name)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}
