// Package grading 成绩计算的纯函数实现（无 I/O）
//
// 计算流程：原始记录 → 各组成项 0-20 子分数 → 按评分标准权重加权 → 学期成绩。
// 所有中间计算使用 decimal，只在持久化时按 Scale.Places 四舍五入。
package grading

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AttendancePresent 出勤记录中计为"出席"的状态
const AttendancePresent = "present"

// Scale 分制（默认 20 分制，保留 2 位小数）
type Scale struct {
	Max    decimal.Decimal
	Places int32
}

// NewScale 创建分制；maxScore<=0 时回退为 20 分制
func NewScale(maxScore, places int) Scale {
	if maxScore <= 0 {
		maxScore = 20
	}
	if places < 0 {
		places = 2
	}
	return Scale{Max: decimal.NewFromInt(int64(maxScore)), Places: int32(places)}
}

// DefaultScale 20 分制，2 位小数
func DefaultScale() Scale { return NewScale(20, 2) }

// FromPercentage 百分比 → 分制分数：(pct / 100) × Max
func (s Scale) FromPercentage(pct decimal.Decimal) decimal.Decimal {
	return pct.Div(hundred).Mul(s.Max)
}

// Round 持久化前的舍入
func (s Scale) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(s.Places)
}

// ScoreRecord 单次作业得分
type ScoreRecord struct {
	Score    decimal.Decimal
	MaxScore decimal.Decimal
}

// Percentage score / max × 100；满分 <= 0 时 ok=false
func Percentage(score, maxScore decimal.Decimal) (decimal.Decimal, bool) {
	if !maxScore.IsPositive() {
		return decimal.Zero, false
	}
	return score.Div(maxScore).Mul(hundred), true
}

// ────────────────────── 组成项子分数 ──────────────────────

// SimpleAverage 百分比的算术平均后换算为分制；无有效记录时 ok=false
// 满分为 0 的记录被剔除，避免除零
func (s Scale) SimpleAverage(records []ScoreRecord) (decimal.Decimal, bool) {
	sum := decimal.Zero
	n := 0
	for _, r := range records {
		pct, ok := Percentage(r.Score, r.MaxScore)
		if !ok {
			continue
		}
		sum = sum.Add(pct)
		n++
	}
	if n == 0 {
		return decimal.Zero, false
	}
	mean := sum.Div(decimal.NewFromInt(int64(n)))
	return s.FromPercentage(mean), true
}

// TestsSubscore 测验子分数：各次测验百分比的简单平均（不按作业权重加权）
func (s Scale) TestsSubscore(records []ScoreRecord) decimal.Decimal {
	v, ok := s.SimpleAverage(records)
	if !ok {
		return decimal.Zero
	}
	return v
}

// HomeworkSubscore 作业子分数：完成数 / 已发布作业总数（只看完成，不看对错）
func (s Scale) HomeworkSubscore(completed, total int) decimal.Decimal {
	if total <= 0 || completed <= 0 {
		return decimal.Zero
	}
	if completed > total {
		completed = total
	}
	pct := decimal.NewFromInt(int64(completed)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(hundred)
	return s.FromPercentage(pct)
}

// AttendanceSubscore 出勤子分数：present 记录数 / 记录总数
func (s Scale) AttendanceSubscore(statuses []string) decimal.Decimal {
	if len(statuses) == 0 {
		return decimal.Zero
	}
	present := 0
	for _, st := range statuses {
		if strings.EqualFold(st, AttendancePresent) {
			present++
		}
	}
	pct := decimal.NewFromInt(int64(present)).
		Div(decimal.NewFromInt(int64(len(statuses)))).
		Mul(hundred)
	return s.FromPercentage(pct)
}

// ────────────────────── 手工成绩组成项 ──────────────────────

// WeightedScore 带权重的分数（成绩组成项或作业）
type WeightedScore struct {
	Score    decimal.Decimal
	MaxScore decimal.Decimal
	Weight   decimal.Decimal
}

// WeightedAverage 加权平均：Σ(pct_i × w_i) / Σw_i，换算为分制
//
// 与 TestsSubscore 的"百分比简单平均"是两个不同公式，分别用于手工组成项与测验子分数。
// 权重 <= 0 或满分 <= 0 的项不参与；Σw 为 0 时 ok=false。
func (s Scale) WeightedAverage(items []WeightedScore) (decimal.Decimal, bool) {
	num := decimal.Zero
	den := decimal.Zero
	for _, it := range items {
		if !it.Weight.IsPositive() {
			continue
		}
		pct, ok := Percentage(it.Score, it.MaxScore)
		if !ok {
			continue
		}
		num = num.Add(pct.Mul(it.Weight))
		den = den.Add(it.Weight)
	}
	if den.IsZero() {
		return decimal.Zero, false
	}
	return s.FromPercentage(num.Div(den)), true
}
