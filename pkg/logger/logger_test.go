package logger

import (
	"testing"

	"moz-sch/backend/config"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger(&config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("format=%s 初始化应成功: %v", format, err)
		}
		_ = l.Sync()
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(&config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("无效日志级别应返回错误")
	}
}

func TestGradeScope(t *testing.T) {
	if got := len(GradeScope("stu-1", "sub-1", "term-1")); got != 3 {
		t.Errorf("期望 3 个字段，实际=%d", got)
	}
	if got := len(GradeScope("stu-1", "sub-1", "")); got != 2 {
		t.Errorf("无学期时期望 2 个字段，实际=%d", got)
	}
}
