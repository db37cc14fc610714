package telegram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiURL = "https://api.telegram.org"

// Bot sends operator alerts through the Telegram Bot API.
type Bot struct {
	baseURL string
	client  *http.Client
}

func NewBot(token string) *Bot {
	return NewBotWithURL(apiURL, token)
}

// NewBotWithURL points the bot at a different API host.
func NewBotWithURL(apiBase, token string) *Bot {
	return &Bot{
		baseURL: strings.TrimRight(apiBase, "/") + "/bot" + token,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (b *Bot) SendMessage(chatID, text string) error {
	endpoint := b.baseURL + "/sendMessage"

	params := url.Values{}
	params.Add("chat_id", chatID)
	params.Add("text", text)

	resp, err := b.client.PostForm(endpoint, params)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body apiResponse
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Description != "" {
			return fmt.Errorf("telegram API error: %s: %s", resp.Status, body.Description)
		}
		return fmt.Errorf("telegram API error: %s", resp.Status)
	}

	return nil
}
