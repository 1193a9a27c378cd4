package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/quailyquaily/rollcall/internal/channelruntime/telegram"
	"github.com/quailyquaily/rollcall/internal/configutil"
	"github.com/quailyquaily/rollcall/internal/logutil"
	"github.com/spf13/cobra"
)

func newBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram sign-up list bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			token := strings.TrimSpace(configutil.FlagOrViperString(cmd, "telegram-bot-token", "telegram.bot_token"))
			ownerID := configutil.FlagOrViperInt64(cmd, "telegram-owner-id", "telegram.owner_id")

			adminIDs, err := parseIDList(configutil.FlagOrViperStringArray(cmd, "telegram-admin-id", "telegram.admin_ids"), "telegram.admin_ids")
			if err != nil {
				return err
			}
			allowedChatIDs, err := parseIDList(configutil.FlagOrViperStringArray(cmd, "telegram-allowed-chat-id", "telegram.allowed_chat_ids"), "telegram.allowed_chat_ids")
			if err != nil {
				return err
			}

			return telegram.Run(cmd.Context(), logger, telegram.RunOptions{
				BotToken:       token,
				OwnerID:        ownerID,
				AdminIDs:       adminIDs,
				AllowedChatIDs: allowedChatIDs,
				PollTimeout:    configutil.FlagOrViperDuration(cmd, "telegram-poll-timeout", "telegram.poll_timeout"),
				HealthListen:   configutil.FlagOrViperString(cmd, "health-listen", "health.listen"),
			})
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token.")
	cmd.Flags().Int64("telegram-owner-id", 0, "User id that receives session reports and may use the bot in private chat.")
	cmd.Flags().StringArray("telegram-admin-id", nil, "Admin user id(s) allowed to manage sessions (repeatable). The owner is always an admin.")
	cmd.Flags().StringArray("telegram-allowed-chat-id", nil, "Group chat id(s) the bot will serve (repeatable). Other groups are left.")
	cmd.Flags().Duration("telegram-poll-timeout", 30*time.Second, "Long polling timeout for getUpdates.")
	cmd.Flags().String("health-listen", "3000", "Health check listen address (port or host:port; empty disables).")

	return cmd
}

func parseIDList(raw []string, key string) ([]int64, error) {
	var ids []int64
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
