package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"moz-sch/backend/internal/dto"
	"moz-sch/backend/internal/model"
)

// ── 测试辅助 ──

func setupTestComponentService() (ComponentService, *mockStores, *mockTrigger) {
	m := newMockStores()
	trigger := &mockTrigger{}
	svc := NewComponentService(defaultGradingConfig(), m.repository(), trigger, zap.NewNop())
	return svc, m, trigger
}

func scopeQuery() *dto.TermScopeQuery {
	return &dto.TermScopeQuery{StudentID: testStudentID, SubjectID: testSubjectID, TermID: testTermID}
}

func componentReq(name, score, weight string) *dto.UpsertComponentRequest {
	return &dto.UpsertComponentRequest{
		StudentID:     testStudentID,
		SubjectID:     testSubjectID,
		TermID:        testTermID,
		ComponentName: name,
		Score:         d(score),
		Weight:        d(weight),
	}
}

// ── Upsert 测试 ──

func TestComponentService_Upsert_CreateWithDefaults(t *testing.T) {
	svc, m, trigger := setupTestComponentService()

	got, err := svc.Upsert(context.Background(), componentReq("期中测验", "15", "40"), testOperatorID)
	if err != nil {
		t.Fatalf("Upsert 应成功: %v", err)
	}
	if got.ID == "" {
		t.Error("期望返回持久化后的 ID")
	}
	if !got.MaxScore.Equal(d("20")) {
		t.Errorf("期望默认 max_score=20，实际=%s", got.MaxScore)
	}
	if got.ComponentType != "期中测验" {
		t.Errorf("期望 component_type 默认等于名称，实际=%s", got.ComponentType)
	}
	if got.SourceType != model.SourceManual {
		t.Errorf("期望 source_type=manual，实际=%s", got.SourceType)
	}
	if m.component.upserts != 1 {
		t.Errorf("期望写入 1 次，实际=%d", m.component.upserts)
	}
	if len(trigger.calls) != 1 || trigger.calls[0].source != TriggerComponent || trigger.calls[0].termID != testTermID {
		t.Errorf("期望触发 1 次组成项重算，实际=%+v", trigger.calls)
	}
}

func TestComponentService_Upsert_SameKeyUpdatesInPlace(t *testing.T) {
	svc, m, _ := setupTestComponentService()
	ctx := context.Background()

	first, err := svc.Upsert(ctx, componentReq("期中测验", "15", "40"), testOperatorID)
	if err != nil {
		t.Fatalf("Upsert 应成功: %v", err)
	}
	second, err := svc.Upsert(ctx, componentReq("期中测验", "17", "50"), testOperatorID)
	if err != nil {
		t.Fatalf("Upsert 应成功: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("同一键应原地更新，ID %s → %s", first.ID, second.ID)
	}
	if len(m.component.rows) != 1 {
		t.Errorf("期望只有 1 行，实际=%d", len(m.component.rows))
	}
	if !second.Score.Equal(d("17")) || !second.Weight.Equal(d("50")) {
		t.Errorf("期望 score=17 weight=50，实际 score=%s weight=%s", second.Score, second.Weight)
	}
}

func TestComponentService_Upsert_Validation(t *testing.T) {
	svc, m, trigger := setupTestComponentService()

	zero := d("0")
	tests := []struct {
		name    string
		req     *dto.UpsertComponentRequest
		wantErr error
	}{
		{"负权重", componentReq("测验", "10", "-1"), ErrComponentWeightNegative},
		{"分数超过满分", componentReq("测验", "21", "10"), ErrComponentScoreRange},
		{"负分", componentReq("测验", "-0.5", "10"), ErrComponentScoreRange},
		{"满分为 0", func() *dto.UpsertComponentRequest {
			r := componentReq("测验", "0", "10")
			r.MaxScore = &zero
			return r
		}(), ErrComponentMaxScore},
		{"来源为自动计算", func() *dto.UpsertComponentRequest {
			r := componentReq("测验", "15", "10")
			r.SourceType = model.SourceAutoCalculated
			return r
		}(), ErrComponentSourceType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Upsert(context.Background(), tt.req, testOperatorID); !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}
	if m.component.upserts != 0 || len(trigger.calls) != 0 {
		t.Error("校验失败时不应写入或触发重算")
	}
}

func TestComponentService_Upsert_WriteErrorDoesNotTrigger(t *testing.T) {
	svc, m, trigger := setupTestComponentService()
	m.component.err = errMockDB

	if _, err := svc.Upsert(context.Background(), componentReq("测验", "10", "10"), testOperatorID); !errors.Is(err, errMockDB) {
		t.Errorf("期望返回写入错误，实际: %v", err)
	}
	if len(trigger.calls) != 0 {
		t.Error("写入失败时不应触发重算")
	}
}

// ── Delete 测试 ──

func TestComponentService_Delete(t *testing.T) {
	svc, m, trigger := setupTestComponentService()
	ctx := context.Background()

	if err := svc.Delete(ctx, "nonexistent", testOperatorID); !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("期望 ErrComponentNotFound，实际: %v", err)
	}

	created, err := svc.Upsert(ctx, componentReq("测验", "10", "10"), testOperatorID)
	if err != nil {
		t.Fatalf("Upsert 应成功: %v", err)
	}
	trigger.calls = nil

	if err := svc.Delete(ctx, created.ID, testOperatorID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if len(m.component.rows) != 0 {
		t.Error("期望组成项已删除")
	}
	if len(trigger.calls) != 1 || trigger.calls[0].studentID != testStudentID {
		t.Errorf("删除后期望触发 1 次重算，实际=%+v", trigger.calls)
	}
}

// ── WeightedAverage 测试 ──

func TestComponentService_WeightedAverage(t *testing.T) {
	svc, _, _ := setupTestComponentService()
	ctx := context.Background()

	for _, req := range []*dto.UpsertComponentRequest{
		componentReq("测验", "18", "3"),
		componentReq("作业", "12", "1"),
		componentReq("未设置权重", "2", "0"),
	} {
		if _, err := svc.Upsert(ctx, req, testOperatorID); err != nil {
			t.Fatalf("Upsert 应成功: %v", err)
		}
	}

	got, err := svc.WeightedAverage(ctx, scopeQuery())
	if err != nil {
		t.Fatalf("WeightedAverage 应成功: %v", err)
	}
	// (90×3 + 60×1) / 4 = 82.5 → 16.50；百分比简单平均会得到 15.00
	if got.Average == nil || !got.Average.Equal(d("16.5")) {
		t.Errorf("期望 average=16.50，实际=%v", got.Average)
	}
	if !got.TotalWeight.Equal(d("4")) || got.ComponentCount != 2 {
		t.Errorf("期望 total_weight=4 component_count=2，实际 %s / %d", got.TotalWeight, got.ComponentCount)
	}
	if got.IsComplete {
		t.Error("权重合计 4 时期望 is_complete=false")
	}
}

func TestComponentService_WeightedAverage_NoWeights(t *testing.T) {
	svc, _, _ := setupTestComponentService()
	ctx := context.Background()

	if _, err := svc.Upsert(ctx, componentReq("测验", "18", "0"), testOperatorID); err != nil {
		t.Fatalf("Upsert 应成功: %v", err)
	}
	got, err := svc.WeightedAverage(ctx, scopeQuery())
	if err != nil {
		t.Fatalf("WeightedAverage 应成功: %v", err)
	}
	if got.Average != nil {
		t.Errorf("无有效权重时期望 average 为空，实际=%s", got.Average)
	}
}

// ── AutoCreateFromAssignments 测试 ──

func gradedFixture() []model.GradedAssignment {
	return []model.GradedAssignment{
		{AssignmentID: "a1", AssessmentTypeName: "Test", Score: d("18"), MaxScore: d("20"), Weight: d("2")},
		{AssignmentID: "a2", AssessmentTypeName: "Test", Score: d("12"), MaxScore: d("20"), Weight: d("1")},
		{AssignmentID: "h1", AssessmentTypeName: "Homework", Score: d("10"), MaxScore: d("10"), Weight: d("5")},
	}
}

func TestComponentService_AutoCreate_WeightZero(t *testing.T) {
	svc, m, trigger := setupTestComponentService()
	m.metric.graded = gradedFixture()
	req := &dto.AutoCreateComponentsRequest{StudentID: testStudentID, SubjectID: testSubjectID, TermID: testTermID}

	got, err := svc.AutoCreateFromAssignments(context.Background(), req, testOperatorID)
	if err != nil {
		t.Fatalf("AutoCreateFromAssignments 应成功: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望按评估类型生成 2 个组成项，实际=%d", len(got))
	}

	byName := make(map[string]dto.ComponentResponse)
	for _, c := range got {
		byName[c.ComponentName] = c
	}
	test := byName["Test"]
	// (90×2 + 60×1) / 3 = 80 → 16.00
	if !test.Score.Equal(d("16")) {
		t.Errorf("期望 Test 组成项 score=16.00，实际=%s", test.Score)
	}
	if len(test.AssignmentIDs) != 2 {
		t.Errorf("期望记录 2 个来源作业，实际=%v", test.AssignmentIDs)
	}
	if !byName["Homework"].Score.Equal(d("20")) {
		t.Errorf("期望 Homework 组成项 score=20.00，实际=%s", byName["Homework"].Score)
	}
	for _, c := range got {
		if !c.Weight.IsZero() {
			t.Errorf("%s: 自动生成的组成项权重必须为 0，实际=%s", c.ComponentName, c.Weight)
		}
		if c.SourceType != model.SourceAutoCalculated {
			t.Errorf("%s: 期望 source_type=auto_calculated，实际=%s", c.ComponentName, c.SourceType)
		}
		if !c.MaxScore.Equal(d("20")) {
			t.Errorf("%s: 期望 max_score=20，实际=%s", c.ComponentName, c.MaxScore)
		}
	}
	if len(trigger.calls) != 1 {
		t.Errorf("期望整批只触发 1 次重算，实际=%d", len(trigger.calls))
	}
}

func TestComponentService_AutoCreate_RerunKeepsManualWeight(t *testing.T) {
	svc, m, _ := setupTestComponentService()
	m.metric.graded = gradedFixture()
	req := &dto.AutoCreateComponentsRequest{StudentID: testStudentID, SubjectID: testSubjectID, TermID: testTermID}
	ctx := context.Background()

	if _, err := svc.AutoCreateFromAssignments(ctx, req, testOperatorID); err != nil {
		t.Fatalf("AutoCreateFromAssignments 应成功: %v", err)
	}
	// 教师为 Test 组成项设置权重
	m.component.findKey(testStudentID, testSubjectID, testTermID, "Test").Weight = d("40")

	m.metric.graded[1].Score = d("20")
	got, err := svc.AutoCreateFromAssignments(ctx, req, testOperatorID)
	if err != nil {
		t.Fatalf("AutoCreateFromAssignments 应成功: %v", err)
	}
	if len(m.component.rows) != 2 {
		t.Errorf("重新生成应原地更新，期望 2 行，实际=%d", len(m.component.rows))
	}
	for _, c := range got {
		if c.ComponentName != "Test" {
			continue
		}
		// (90×2 + 100×1) / 3 = 93.33… → 18.67
		if !c.Score.Equal(d("18.67")) {
			t.Errorf("期望刷新后 score=18.67，实际=%s", c.Score)
		}
		if !c.Weight.Equal(d("40")) {
			t.Errorf("重新生成不应覆盖教师设置的权重，实际=%s", c.Weight)
		}
	}
}

func TestComponentService_AutoCreate_NothingGraded(t *testing.T) {
	svc, m, trigger := setupTestComponentService()
	req := &dto.AutoCreateComponentsRequest{StudentID: testStudentID, SubjectID: testSubjectID, TermID: testTermID}

	got, err := svc.AutoCreateFromAssignments(context.Background(), req, testOperatorID)
	if err != nil {
		t.Fatalf("AutoCreateFromAssignments 应成功: %v", err)
	}
	if len(got) != 0 || m.component.upserts != 0 {
		t.Error("无已评分作业时不应生成组成项")
	}
	if len(trigger.calls) != 0 {
		t.Error("未写入时不应触发重算")
	}
}
