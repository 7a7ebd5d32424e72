package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// 工作目录下无配置文件时仅使用默认值
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("获取工作目录失败: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("切换工作目录失败: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("默认配置加载应成功: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望 port=8080，实际=%d", cfg.Server.Port)
	}
	if cfg.Grading.MaxScore != 20 {
		t.Errorf("期望 max_score=20，实际=%d", cfg.Grading.MaxScore)
	}
	if cfg.Grading.DecimalPlaces != 2 {
		t.Errorf("期望 decimal_places=2，实际=%d", cfg.Grading.DecimalPlaces)
	}
	if cfg.Grading.RespectFinalizeLock {
		t.Error("respect_finalize_lock 默认应为 false")
	}
	if cfg.Server.RecalcRateLimit != 60 || cfg.Server.RecalcRateWindow != time.Minute {
		t.Errorf("期望重算限流 60/1m，实际=%d/%s", cfg.Server.RecalcRateLimit, cfg.Server.RecalcRateWindow)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("显式指定的配置文件不存在时应返回错误")
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9090\ngrading:\n  max_score: 100\n  pass_threshold: 50\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	t.Setenv("GRADEBOOK_GRADING_RESPECT_FINALIZE_LOCK", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望 port=9090，实际=%d", cfg.Server.Port)
	}
	if cfg.Grading.MaxScore != 100 {
		t.Errorf("期望 max_score=100，实际=%d", cfg.Grading.MaxScore)
	}
	if !cfg.Grading.RespectFinalizeLock {
		t.Error("环境变量应覆盖 respect_finalize_lock")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Server:  ServerConfig{Port: 8080},
		Grading: GradingConfig{MaxScore: 20, DecimalPlaces: 2, PassThreshold: 10},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}

	cases := map[string]func(c *Config){
		"端口越界":   func(c *Config) { c.Server.Port = 70000 },
		"满分为零":   func(c *Config) { c.Grading.MaxScore = 0 },
		"小数位为负":  func(c *Config) { c.Grading.DecimalPlaces = -1 },
		"及格线超满分": func(c *Config) { c.Grading.PassThreshold = 30 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("期望校验失败")
			}
		})
	}
}
