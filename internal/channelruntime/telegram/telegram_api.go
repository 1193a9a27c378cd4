package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Telegram API

type telegramAPI struct {
	http    *http.Client
	baseURL string
	token   string
}

func newTelegramAPI(httpClient *http.Client, baseURL, token string) *telegramAPI {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &telegramAPI{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

type telegramUpdate struct {
	UpdateID      int64                      `json:"update_id"`
	Message       *telegramMessage           `json:"message,omitempty"`
	CallbackQuery *telegramCallbackQuery     `json:"callback_query,omitempty"`
	MyChatMember  *telegramChatMemberUpdated `json:"my_chat_member,omitempty"`
}

type telegramMessage struct {
	MessageID int64         `json:"message_id"`
	Date      int64         `json:"date,omitempty"`
	Chat      *telegramChat `json:"chat,omitempty"`
	From      *telegramUser `json:"from,omitempty"`
	Text      string        `json:"text,omitempty"`
}

type telegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"` // private|group|supergroup|channel
}

type telegramUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type telegramCallbackQuery struct {
	ID      string           `json:"id"`
	From    *telegramUser    `json:"from,omitempty"`
	Message *telegramMessage `json:"message,omitempty"`
	Data    string           `json:"data,omitempty"`
}

type telegramChatMember struct {
	Status string        `json:"status,omitempty"`
	User   *telegramUser `json:"user,omitempty"`
}

type telegramChatMemberUpdated struct {
	Chat          *telegramChat      `json:"chat,omitempty"`
	From          *telegramUser      `json:"from,omitempty"`
	Date          int64              `json:"date,omitempty"`
	NewChatMember telegramChatMember `json:"new_chat_member"`
}

type telegramInlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

type telegramInlineKeyboardMarkup struct {
	InlineKeyboard [][]telegramInlineKeyboardButton `json:"inline_keyboard"`
}

type telegramGetUpdatesResponse struct {
	OK     bool             `json:"ok"`
	Result []telegramUpdate `json:"result"`
}

type telegramGetMeResponse struct {
	OK     bool         `json:"ok"`
	Result telegramUser `json:"result"`
}

type telegramSendMessageResponse struct {
	OK          bool            `json:"ok"`
	Result      telegramMessage `json:"result"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

type telegramOKResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type telegramRequestError struct {
	StatusCode  int
	ErrorCode   int
	Description string
	Body        string
}

func (e *telegramRequestError) Error() string {
	if e == nil {
		return "telegram request failed"
	}
	desc := strings.TrimSpace(e.Description)
	if desc != "" {
		if e.StatusCode > 0 {
			return fmt.Sprintf("telegram http %d: %s", e.StatusCode, desc)
		}
		return "telegram: " + desc
	}
	body := strings.TrimSpace(e.Body)
	if e.StatusCode > 0 {
		if body != "" {
			return fmt.Sprintf("telegram http %d: %s", e.StatusCode, body)
		}
		return fmt.Sprintf("telegram http %d", e.StatusCode)
	}
	if body != "" {
		return "telegram: " + body
	}
	return "telegram request failed"
}

func (api *telegramAPI) getMe(ctx context.Context) (*telegramUser, error) {
	url := fmt.Sprintf("%s/bot%s/getMe", api.baseURL, api.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := api.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out telegramGetMeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getMe: ok=false")
	}
	return &out.Result, nil
}

func (api *telegramAPI) getUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegramUpdate, int64, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d", api.baseURL, api.token, secs)
	if offset > 0 {
		url += fmt.Sprintf("&offset=%d", offset)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, offset, err
	}
	resp, err := api.http.Do(req)
	if err != nil {
		return nil, offset, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, offset, fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out telegramGetUpdatesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, offset, err
	}
	if !out.OK {
		return nil, offset, fmt.Errorf("telegram getUpdates: ok=false")
	}

	next := offset
	for _, u := range out.Result {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return out.Result, next, nil
}

func isTelegramPollTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "client.timeout exceeded")
}

// post runs a JSON Bot API method and decodes the standard ok envelope.
func (api *telegramAPI) post(ctx context.Context, method string, reqBody any, result any) error {
	b, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/%s", api.baseURL, api.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := api.http.Do(req)
	if err != nil {
		return err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	var out telegramOKResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.OK {
		return &telegramRequestError{
			StatusCode:  resp.StatusCode,
			ErrorCode:   out.ErrorCode,
			Description: out.Description,
			Body:        strings.TrimSpace(string(raw)),
		}
	}
	if result != nil {
		return json.Unmarshal(raw, result)
	}
	return nil
}

type sendMessageOptions struct {
	ParseMode        string
	ReplyToMessageID int64
	ReplyMarkup      *telegramInlineKeyboardMarkup
}

type telegramSendMessageRequest struct {
	ChatID                int64                         `json:"chat_id"`
	Text                  string                        `json:"text"`
	ParseMode             string                        `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                          `json:"disable_web_page_preview,omitempty"`
	ReplyToMessageID      int64                         `json:"reply_to_message_id,omitempty"`
	ReplyMarkup           *telegramInlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (api *telegramAPI) sendMessage(ctx context.Context, chatID int64, text string, opts sendMessageOptions) (int64, error) {
	var out telegramSendMessageResponse
	err := api.post(ctx, "sendMessage", telegramSendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             strings.TrimSpace(opts.ParseMode),
		DisableWebPagePreview: true,
		ReplyToMessageID:      opts.ReplyToMessageID,
		ReplyMarkup:           opts.ReplyMarkup,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.Result.MessageID, nil
}

type telegramEditMessageTextRequest struct {
	ChatID      int64                         `json:"chat_id"`
	MessageID   int64                         `json:"message_id"`
	Text        string                        `json:"text"`
	ParseMode   string                        `json:"parse_mode,omitempty"`
	ReplyMarkup *telegramInlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (api *telegramAPI) editMessageText(ctx context.Context, chatID, messageID int64, text, parseMode string, markup *telegramInlineKeyboardMarkup) error {
	return api.post(ctx, "editMessageText", telegramEditMessageTextRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   strings.TrimSpace(parseMode),
		ReplyMarkup: markup,
	}, nil)
}

type telegramChatMessageRequest struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id,omitempty"`
}

func (api *telegramAPI) pinChatMessage(ctx context.Context, chatID, messageID int64) error {
	return api.post(ctx, "pinChatMessage", telegramChatMessageRequest{ChatID: chatID, MessageID: messageID}, nil)
}

func (api *telegramAPI) unpinChatMessage(ctx context.Context, chatID, messageID int64) error {
	return api.post(ctx, "unpinChatMessage", telegramChatMessageRequest{ChatID: chatID, MessageID: messageID}, nil)
}

func (api *telegramAPI) unpinAllChatMessages(ctx context.Context, chatID int64) error {
	return api.post(ctx, "unpinAllChatMessages", telegramChatMessageRequest{ChatID: chatID}, nil)
}

func (api *telegramAPI) leaveChat(ctx context.Context, chatID int64) error {
	return api.post(ctx, "leaveChat", telegramChatMessageRequest{ChatID: chatID}, nil)
}

type telegramAnswerCallbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

func (api *telegramAPI) answerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error {
	return api.post(ctx, "answerCallbackQuery", telegramAnswerCallbackQueryRequest{
		CallbackQueryID: callbackQueryID,
		Text:            text,
		ShowAlert:       showAlert,
	}, nil)
}
