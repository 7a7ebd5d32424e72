package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"moz-sch/backend/config"
)

// NewLogger 根据配置初始化 Zap 日志实例
func NewLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	// 重算失败日志不允许被采样丢弃
	zapCfg.Sampling = nil

	logger, err := zapCfg.Build(zap.Fields(zap.String("app", "gradebook")))
	if err != nil {
		return nil, fmt.Errorf("初始化日志器失败: %w", err)
	}

	return logger, nil
}

// GradeScope 成绩作用域日志字段（学生/科目/学期）
func GradeScope(studentID, subjectID, termID string) []zap.Field {
	fields := []zap.Field{
		zap.String("student_id", studentID),
		zap.String("subject_id", subjectID),
	}
	if termID != "" {
		fields = append(fields, zap.String("term_id", termID))
	}
	return fields
}
