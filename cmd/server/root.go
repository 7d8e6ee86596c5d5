package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"campus-timetable/backend/config"
	applogger "campus-timetable/backend/pkg/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "timetable",
	Short:         "校园课表排课与冲突检测服务",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "配置文件路径（默认查找 ./config.yaml）")
}

// loadBase 加载配置并初始化日志，供各子命令复用
func loadBase() (*config.Config, *zap.Logger, zap.AtomicLevel, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, atom, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, logger, atom, nil
}
