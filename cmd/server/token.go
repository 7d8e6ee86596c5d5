package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"campus-timetable/backend/pkg/jwt"
)

var tokenOpts struct {
	userID        string
	institutionID string
	role          string
	canEdit       bool
	ttl           time.Duration
}

// tokenCmd 签发调试用访问令牌。生产环境令牌由身份服务签发。
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "签发调试用访问令牌",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, _, err := loadBase()
		if err != nil {
			return err
		}
		defer logger.Sync()

		token, err := jwt.NewManager(&cfg.Auth).IssueToken(jwt.Identity{
			UserID:           tokenOpts.userID,
			InstitutionID:    tokenOpts.institutionID,
			Role:             tokenOpts.role,
			CanEditTimetable: tokenOpts.canEdit,
		}, tokenOpts.ttl)
		if err != nil {
			return fmt.Errorf("签发令牌失败: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&tokenOpts.userID, "user", "", "用户 ID")
	f.StringVar(&tokenOpts.institutionID, "institution", "", "机构 ID")
	f.StringVar(&tokenOpts.role, "role", "scheduler", "角色")
	f.BoolVar(&tokenOpts.canEdit, "can-edit", false, "是否允许修改课表")
	f.DurationVar(&tokenOpts.ttl, "ttl", 0, "有效期（默认取配置 auth.access_token_ttl）")
	_ = tokenCmd.MarkFlagRequired("user")
	_ = tokenCmd.MarkFlagRequired("institution")
	rootCmd.AddCommand(tokenCmd)
}
