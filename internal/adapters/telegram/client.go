// Package telegram sends messages through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"eventreminders/internal/domain"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Client is a domain.Messenger backed by the Bot API sendMessage method.
// Recipient ids are chat ids.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient returns a Client for the given bot token. An empty baseURL means DefaultAPIURL
// and a nil client means http.DefaultClient.
func NewClient(token, baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID      string                `json:"chat_id"`
	Text        string                `json:"text"`
	ReplyMarkup *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// APIError is a non-OK reply from the Bot API.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api: %d %s", e.StatusCode, e.Description)
}

// Send delivers msg, one button per keyboard row. A 403 (bot blocked, user deactivated) or
// 400 (chat not found, bad chat id) reply wraps domain.ErrRecipientUnreachable; anything else
// is returned as is and is worth retrying.
func (c *Client) Send(ctx context.Context, msg domain.Message) error {
	payload := sendMessageRequest{ChatID: msg.RecipientID, Text: msg.Text}
	if len(msg.Buttons) > 0 {
		kb := &inlineKeyboardMarkup{}
		for _, b := range msg.Buttons {
			kb.InlineKeyboard = append(kb.InlineKeyboard, []inlineKeyboardButton{{Text: b.Text, CallbackData: b.Data}})
		}
		payload.ReplyMarkup = kb
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{StatusCode: resp.StatusCode, Description: resp.Status}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode == http.StatusOK && apiResp.OK {
		return nil
	}
	return classify(resp.StatusCode, apiResp.Description)
}

func classify(status int, description string) error {
	apiErr := &APIError{StatusCode: status, Description: description}
	switch status {
	case http.StatusForbidden, http.StatusBadRequest:
		return fmt.Errorf("%w: %w", domain.ErrRecipientUnreachable, apiErr)
	default:
		return apiErr
	}
}
