package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/quailyquaily/rollcall/internal/access"
	"github.com/quailyquaily/rollcall/internal/roster"
)

// transport is the slice of the Bot API the dispatcher drives. *telegramAPI
// implements it; tests substitute a recording fake.
type transport interface {
	sendMessage(ctx context.Context, chatID int64, text string, opts sendMessageOptions) (int64, error)
	editMessageText(ctx context.Context, chatID, messageID int64, text, parseMode string, markup *telegramInlineKeyboardMarkup) error
	pinChatMessage(ctx context.Context, chatID, messageID int64) error
	unpinChatMessage(ctx context.Context, chatID, messageID int64) error
	unpinAllChatMessages(ctx context.Context, chatID int64) error
	leaveChat(ctx context.Context, chatID int64) error
	answerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error
}

const (
	replyAlreadyActive   = "ongoing session listing detected, use /endlist to end current one."
	replyNoActiveSession = "No active session to stop."
	replyListingStopped  = "listing stopped"
	replyAlreadyQueued   = "you are already is the queue"
	replyChatNotAllowed  = "This chat is not authorized to use this bot."
	alertOnlyHost        = "Only Host!"
	alertAdminsOnly      = "Admins Only!"
)

// dispatcher routes inbound updates through freshness and permission checks
// into session mutations. All session access happens under mu, including
// the debounced render push, so every read-modify-write is a single
// critical section.
type dispatcher struct {
	mu         sync.Mutex
	session    *roster.Session
	sched      *roster.Scheduler
	gate       *access.Gate
	api        transport
	logger     *slog.Logger
	staleAfter time.Duration
	now        func() time.Time
}

func newDispatcher(api transport, gate *access.Gate, logger *slog.Logger, staleAfter, debounce time.Duration) *dispatcher {
	d := &dispatcher{
		session:    roster.NewSession(),
		gate:       gate,
		api:        api,
		logger:     logger,
		staleAfter: staleAfter,
		now:        time.Now,
	}
	d.sched = roster.NewScheduler(debounce, d.pushRender)
	return d
}

// pushRender is the scheduler's debounce-timer callback. It re-validates
// the session under the mutex since the session may have closed while the
// timer was pending. Edit failures are swallowed: rendering is best-effort.
func (d *dispatcher) pushRender() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.session.Active || d.session.MessageID == 0 {
		return
	}
	text := roster.RenderText(d.session)
	markup := keyboardFor(roster.RenderTickButton(d.session))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.api.editMessageText(ctx, d.session.ChatID, d.session.MessageID, text, "HTML", markup); err != nil {
		d.logger.Debug("list_update_edit_error", "chat_id", d.session.ChatID, "message_id", d.session.MessageID, "error", err.Error())
	}
}

func keyboardFor(btn *roster.TickButton) *telegramInlineKeyboardMarkup {
	if btn == nil {
		return nil
	}
	return &telegramInlineKeyboardMarkup{
		InlineKeyboard: [][]telegramInlineKeyboardButton{{
			{Text: btn.Label, CallbackData: btn.CallbackData},
		}},
	}
}

// HandleUpdate routes one inbound update. It never returns an error: every
// failure is either user-visible text, a swallowed transport error, or a
// logged drop.
func (d *dispatcher) HandleUpdate(ctx context.Context, u telegramUpdate) {
	switch {
	case u.CallbackQuery != nil:
		d.handleCallback(ctx, u.CallbackQuery)
	case u.MyChatMember != nil:
		d.handleMembership(ctx, u.MyChatMember)
	case u.Message != nil:
		d.handleMessage(ctx, u.Message)
	}
}

func (d *dispatcher) handleMessage(ctx context.Context, msg *telegramMessage) {
	if msg.Chat == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	// Anti-replay: events older than the staleness window are dropped.
	sentAt := time.Unix(msg.Date, 0)
	if msg.Date > 0 && d.now().Sub(sentAt) > d.staleAfter {
		d.logger.Debug("telegram_stale_event_dropped", "chat_id", msg.Chat.ID, "message_id", msg.MessageID, "age", d.now().Sub(sentAt).String())
		return
	}

	chatID := msg.Chat.ID
	chatType := strings.ToLower(strings.TrimSpace(msg.Chat.Type))
	fromID := msg.From.ID
	if !d.gate.ChatAllowed(chatID, chatType, fromID) {
		if chatType == "group" || chatType == "supergroup" {
			d.denyAndLeave(ctx, chatID)
		}
		return
	}

	cmdWord, cmdArgs := splitCommand(text)
	switch normalizeSlashCommand(cmdWord) {
	case "/startlist":
		d.handleStartList(ctx, chatID, fromID, cmdArgs)
	case "/endlist":
		d.handleEndList(ctx, chatID, fromID)
	case "/tick":
		d.handleIndexOp(ctx, chatID, fromID, cmdArgs, "tick")
	case "/remove":
		d.handleIndexOp(ctx, chatID, fromID, cmdArgs, "remove")
	default:
		d.handleAddList(ctx, chatID, msg.MessageID, msg.From, text)
	}
}

func (d *dispatcher) handleStartList(ctx context.Context, chatID, fromID int64, title string) {
	if !d.gate.IsAdmin(fromID) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session.Active {
		d.reply(ctx, chatID, replyAlreadyActive)
		return
	}

	d.session.Open(title, chatID)
	text := roster.RenderText(d.session)
	markup := keyboardFor(roster.RenderTickButton(d.session))
	messageID, err := d.api.sendMessage(ctx, chatID, text, sendMessageOptions{ParseMode: "HTML", ReplyMarkup: markup})
	if err != nil {
		d.logger.Warn("list_message_send_error", "chat_id", chatID, "error", err.Error())
		d.session.Close()
		return
	}
	d.session.Bind(messageID)
	d.logger.Info("list_session_opened", "session_id", d.session.ID.String(), "chat_id", chatID, "title", d.session.Title)

	// Pin is best-effort; a missing can_pin_messages right must not fail
	// the open.
	if err := d.api.pinChatMessage(ctx, chatID, messageID); err != nil {
		d.logger.Debug("list_pin_error", "chat_id", chatID, "message_id", messageID, "error", err.Error())
	}
}

func (d *dispatcher) handleEndList(ctx context.Context, chatID, fromID int64) {
	if !d.gate.IsAdmin(fromID) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.session.Active {
		d.reply(ctx, chatID, replyNoActiveSession)
		return
	}

	report := roster.BuildReport(d.session, d.now())
	finalText := roster.RenderText(d.session) + roster.ClosedSuffix
	sessionID := d.session.ID.String()
	listChatID := d.session.ChatID
	listMessageID := d.session.MessageID

	// The owner report is fire-and-forget.
	if ownerID := d.gate.OwnerID(); ownerID != 0 {
		if _, err := d.api.sendMessage(ctx, ownerID, report, sendMessageOptions{}); err != nil {
			d.logger.Warn("session_report_send_error", "session_id", sessionID, "owner_id", ownerID, "error", err.Error())
		}
	}

	d.sched.Stop()
	if err := d.api.unpinChatMessage(ctx, listChatID, listMessageID); err != nil {
		if err := d.api.unpinAllChatMessages(ctx, listChatID); err != nil {
			d.logger.Debug("list_unpin_error", "chat_id", listChatID, "error", err.Error())
		}
	}
	if err := d.api.editMessageText(ctx, listChatID, listMessageID, finalText, "HTML", nil); err != nil {
		d.logger.Debug("list_final_edit_error", "chat_id", listChatID, "message_id", listMessageID, "error", err.Error())
	}
	d.reply(ctx, chatID, replyListingStopped)

	d.session.Close()
	d.logger.Info("list_session_closed", "session_id", sessionID, "chat_id", listChatID)
}

func (d *dispatcher) handleAddList(ctx context.Context, chatID, messageID int64, from *telegramUser, text string) {
	const prefix = "addlist"
	lower := strings.ToLower(text)
	if !strings.HasPrefix(lower, prefix) {
		return
	}
	parts := strings.Fields(text)
	if len(parts) < 2 {
		// A bare prefix with no name argument is ignored.
		return
	}
	name := strings.Join(parts[1:], " ")

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.session.Active {
		return
	}
	err := d.session.Add(name, from.ID, from.Username, d.gate.IsAdmin(from.ID), d.now())
	if errors.Is(err, roster.ErrDuplicateEntry) {
		if _, sendErr := d.api.sendMessage(ctx, chatID, replyAlreadyQueued, sendMessageOptions{ReplyToMessageID: messageID}); sendErr != nil {
			d.logger.Debug("telegram_send_error", "chat_id", chatID, "error", sendErr.Error())
		}
		return
	}
	d.sched.Schedule()
}

func (d *dispatcher) handleIndexOp(ctx context.Context, chatID, fromID int64, arg, op string) {
	if !d.gate.IsAdmin(fromID) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.session.Active {
		d.reply(ctx, chatID, replyNoActiveSession)
		return
	}
	pos, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		d.reply(ctx, chatID, fmt.Sprintf("usage: /%s <position>", op))
		return
	}
	switch op {
	case "tick":
		err = d.session.TickByIndex(pos)
	case "remove":
		err = d.session.RemoveByIndex(pos)
	}
	if errors.Is(err, roster.ErrIndexOutOfRange) {
		d.reply(ctx, chatID, fmt.Sprintf("position %d is out of range (1-%d)", pos, len(d.session.Entries)))
		return
	}
	d.sched.Schedule()
}

func (d *dispatcher) handleCallback(ctx context.Context, q *telegramCallbackQuery) {
	if q.From == nil {
		return
	}
	d.mu.Lock()
	active := d.session.Active
	d.mu.Unlock()

	// The press is acknowledged on every path so the client clears its
	// pending-press indicator.
	if !active {
		d.answer(ctx, q.ID, alertOnlyHost, true)
		return
	}
	if !d.gate.IsAdmin(q.From.ID) {
		d.answer(ctx, q.ID, alertAdminsOnly, true)
		return
	}

	if userID, createdAt, ok := roster.ParseTickCallback(q.Data); ok {
		d.mu.Lock()
		if d.session.Active && d.session.TickByIdentity(userID, createdAt) {
			d.sched.Schedule()
		}
		d.mu.Unlock()
	}
	d.answer(ctx, q.ID, "", false)
}

func (d *dispatcher) handleMembership(ctx context.Context, upd *telegramChatMemberUpdated) {
	if upd.Chat == nil {
		return
	}
	chatType := strings.ToLower(strings.TrimSpace(upd.Chat.Type))
	if chatType != "group" && chatType != "supergroup" {
		return
	}
	switch upd.NewChatMember.Status {
	case "member", "administrator":
	default:
		return
	}
	if d.gate.ChatAllowed(upd.Chat.ID, chatType, 0) {
		return
	}
	d.logger.Info("telegram_unauthorized_chat", "chat_id", upd.Chat.ID, "status", upd.NewChatMember.Status)
	d.denyAndLeave(ctx, upd.Chat.ID)
}

// denyAndLeave posts the denial notice and leaves the chat, both
// best-effort.
func (d *dispatcher) denyAndLeave(ctx context.Context, chatID int64) {
	if _, err := d.api.sendMessage(ctx, chatID, replyChatNotAllowed, sendMessageOptions{}); err != nil {
		d.logger.Debug("telegram_send_error", "chat_id", chatID, "error", err.Error())
	}
	if err := d.api.leaveChat(ctx, chatID); err != nil {
		d.logger.Debug("telegram_leave_chat_error", "chat_id", chatID, "error", err.Error())
	}
}

func (d *dispatcher) reply(ctx context.Context, chatID int64, text string) {
	if _, err := d.api.sendMessage(ctx, chatID, text, sendMessageOptions{}); err != nil {
		d.logger.Debug("telegram_send_error", "chat_id", chatID, "error", err.Error())
	}
}

func (d *dispatcher) answer(ctx context.Context, callbackQueryID, text string, showAlert bool) {
	if err := d.api.answerCallbackQuery(ctx, callbackQueryID, text, showAlert); err != nil {
		d.logger.Debug("telegram_answer_callback_error", "callback_query_id", callbackQueryID, "error", err.Error())
	}
}

// splitCommand separates the leading command word from its argument tail.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	idx := strings.IndexAny(text, " \t\n")
	if idx < 0 {
		return text, ""
	}
	return text[:idx], strings.TrimSpace(text[idx:])
}

// normalizeSlashCommand lowercases a /command and strips a @botname suffix.
func normalizeSlashCommand(word string) string {
	word = strings.ToLower(strings.TrimSpace(word))
	if !strings.HasPrefix(word, "/") {
		return ""
	}
	if at := strings.Index(word, "@"); at > 0 {
		word = word[:at]
	}
	return word
}
