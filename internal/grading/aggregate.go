package grading

import "github.com/shopspring/decimal"

// Component 评分标准中的三类组成项
type Component string

const (
	ComponentTests      Component = "tests"
	ComponentHomework   Component = "homework"
	ComponentAttendance Component = "attendance"
)

// Components 固定的计算顺序
var Components = []Component{ComponentTests, ComponentHomework, ComponentAttendance}

// Weights 评分标准权重（百分比）；不校验总和是否为 100
type Weights struct {
	Tests      decimal.Decimal
	Homework   decimal.Decimal
	Attendance decimal.Decimal
}

// Of 返回指定组成项的权重
func (w Weights) Of(c Component) decimal.Decimal {
	switch c {
	case ComponentTests:
		return w.Tests
	case ComponentHomework:
		return w.Homework
	case ComponentAttendance:
		return w.Attendance
	}
	return decimal.Zero
}

// Total 三项权重的字面和
func (w Weights) Total() decimal.Decimal {
	return w.Tests.Add(w.Homework).Add(w.Attendance)
}

// Active 权重 > 0 才参与计算
func (w Weights) Active(c Component) bool {
	return w.Of(c).IsPositive()
}

// Subscores 各组成项的 0-20 子分数
type Subscores map[Component]decimal.Decimal

// TermResult 学期成绩聚合结果（未舍入）
type TermResult struct {
	Calculated     decimal.Decimal
	TotalWeight    decimal.Decimal
	ComponentCount int
	IsComplete     bool
	Contributions  map[Component]decimal.Decimal
}

// Aggregate final = Σ subscore_i × (weight_i / 100)，只统计权重 > 0 的组成项
func Aggregate(w Weights, sub Subscores) TermResult {
	res := TermResult{
		Calculated:    decimal.Zero,
		TotalWeight:   w.Total(),
		Contributions: make(map[Component]decimal.Decimal, len(Components)),
	}
	for _, c := range Components {
		if !w.Active(c) {
			continue
		}
		res.ComponentCount++
		contrib := sub[c].Mul(w.Of(c)).Div(hundred)
		res.Contributions[c] = contrib
		res.Calculated = res.Calculated.Add(contrib)
	}
	res.IsComplete = res.TotalWeight.GreaterThanOrEqual(hundred)
	return res
}

// FinalGrade 有手动覆盖时取覆盖值，否则取计算值
func FinalGrade(calculated decimal.Decimal, override decimal.NullDecimal) decimal.Decimal {
	if override.Valid {
		return override.Decimal
	}
	return calculated
}
