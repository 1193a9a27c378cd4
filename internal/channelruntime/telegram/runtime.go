package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quailyquaily/rollcall/internal/access"
	"github.com/quailyquaily/rollcall/internal/healthcheck"
)

// Run drives the bot: resolves options, starts the keepalive endpoint, and
// polls getUpdates until the context is canceled. Each update is dispatched
// as its own isolated unit; a panic in one handler is logged and the loop
// keeps serving.
func Run(ctx context.Context, logger *slog.Logger, runOpts RunOptions) error {
	opts := resolveRuntimeLoopOptions(runOpts)
	if opts.BotToken == "" {
		return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or ROLLCALL_TELEGRAM_BOT_TOKEN)")
	}
	if opts.OwnerID == 0 {
		return fmt.Errorf("missing telegram.owner_id (set via --telegram-owner-id or ROLLCALL_TELEGRAM_OWNER_ID)")
	}

	pollCtx := ctx
	if pollCtx == nil {
		pollCtx = context.Background()
	}

	healthListen := healthcheck.NormalizeListen(opts.HealthListen)
	if healthListen != "" {
		healthServer, err := healthcheck.StartServer(pollCtx, logger, healthListen, "telegram")
		if err != nil {
			logger.Warn("telegram_health_server_start_error", "addr", healthListen, "error", err.Error())
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_ = healthServer.Shutdown(shutdownCtx)
				cancel()
			}()
		}
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	api := newTelegramAPI(httpClient, opts.BaseURL, opts.BotToken)
	gate := access.NewGate(opts.AdminIDs, opts.OwnerID, opts.AllowedChatIDs)
	d := newDispatcher(api, gate, logger, opts.StaleAfter, opts.DebounceDelay)
	defer d.sched.Stop()

	var me *telegramUser
	for {
		var err error
		me, err = api.getMe(pollCtx)
		if err == nil {
			break
		}
		if errors.Is(err, context.Canceled) || pollCtx.Err() != nil {
			logger.Info("telegram_stop", "reason", "context_canceled")
			return nil
		}
		logger.Warn("telegram_get_me_error", "error", err.Error())
		select {
		case <-pollCtx.Done():
			logger.Info("telegram_stop", "reason", "context_canceled")
			return nil
		case <-time.After(2 * time.Second):
		}
	}

	logger.Info("telegram_start",
		"base_url", opts.BaseURL,
		"bot_username", me.Username,
		"bot_id", me.ID,
		"poll_timeout", opts.PollTimeout.String(),
		"stale_after", opts.StaleAfter.String(),
		"debounce_delay", opts.DebounceDelay.String(),
		"admins", len(opts.AdminIDs),
		"allowed_chats", len(opts.AllowedChatIDs),
	)

	var offset int64
	for {
		updates, nextOffset, err := api.getUpdates(pollCtx, offset, opts.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || pollCtx.Err() != nil {
				logger.Info("telegram_stop", "reason", "context_canceled")
				return nil
			}
			if isTelegramPollTimeoutError(err) {
				logger.Debug("telegram_get_updates_timeout", "error", err.Error())
			} else {
				logger.Warn("telegram_get_updates_error", "error", err.Error())
			}
			time.Sleep(1 * time.Second)
			continue
		}
		offset = nextOffset

		for _, u := range updates {
			dispatchUpdate(pollCtx, logger, d, u)
		}
	}
}

// dispatchUpdate isolates one update's handling so a fault cannot take the
// poll loop down.
func dispatchUpdate(ctx context.Context, logger *slog.Logger, d *dispatcher, u telegramUpdate) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("telegram_update_panic", "update_id", u.UpdateID, "panic", fmt.Sprintf("%v", r))
		}
	}()
	d.HandleUpdate(ctx, u)
}
