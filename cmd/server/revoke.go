package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"campus-timetable/backend/pkg/jwt"
	"campus-timetable/backend/pkg/redis"
)

// revokeCmd 将令牌加入 Redis 吊销名单，有效期与令牌剩余时间一致
var revokeCmd = &cobra.Command{
	Use:   "revoke <token>",
	Short: "吊销访问令牌",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, _, err := loadBase()
		if err != nil {
			return err
		}
		defer logger.Sync()

		claims, err := jwt.NewManager(&cfg.Auth).ParseToken(args[0])
		if err != nil {
			return fmt.Errorf("解析令牌失败: %w", err)
		}
		if claims.ID == "" || claims.ExpiresAt == nil {
			return fmt.Errorf("令牌缺少 jti 或 exp，无法吊销")
		}

		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("Redis 连接失败: %w", err)
		}
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := rdb.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			return fmt.Errorf("写入吊销名单失败: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已吊销 %s\n", claims.ID)
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(revokeCmd)
}
