// Package telegram delivers alert messages through the Telegram Bot API.
package telegram

import (
	"context"
	"strings"
	"time"

	drepo "FarePull/internal/domain/repository"
	xhttp "FarePull/pkg/http"
	applogger "FarePull/pkg/logger"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram rejects longer texts.
const maxMessageLen = 4096

type Config struct {
	Token   string
	ChatID  string
	APIBase string
	Timeout time.Duration
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableNotification   bool   `json:"disable_notification"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notifier never retries; a failed delivery is logged and reported as false.
type Notifier struct {
	cfg  Config
	http *xhttp.Client
	l    *applogger.Logger
}

var _ drepo.Notifier = (*Notifier)(nil)

func New(cfg Config, l *applogger.Logger) *Notifier {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Notifier{
		cfg:  cfg,
		http: xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		l:    l,
	}
}

// Enabled is false when no credentials are configured.
func (n *Notifier) Enabled() bool { return n.cfg.Token != "" && n.cfg.ChatID != "" }

func (n *Notifier) Notify(ctx context.Context, text string, silent bool) bool {
	if !n.Enabled() {
		n.l.Debug("telegram disabled, dropping message", applogger.Int("len", len(text)))
		return false
	}
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen-3] + "..."
	}

	var resp sendMessageResponse
	err := n.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    strings.TrimRight(n.cfg.APIBase, "/") + "/bot" + n.cfg.Token + "/sendMessage",
		Body: sendMessageRequest{
			ChatID:                n.cfg.ChatID,
			Text:                  text,
			ParseMode:             "Markdown",
			DisableNotification:   silent,
			DisableWebPagePreview: true,
		},
	}, &resp)
	if err != nil {
		n.l.Error("telegram send failed", applogger.Error(err))
		return false
	}
	if !resp.OK {
		n.l.Error("telegram rejected message", applogger.String("description", resp.Description))
		return false
	}
	return true
}
