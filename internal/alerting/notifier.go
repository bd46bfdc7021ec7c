package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Severity 表示告警级别。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notification 封装一次预测误差告警的上下文。
type Notification struct {
	Model        string
	Date         time.Time
	ErrorPct     decimal.Decimal
	ThresholdPct decimal.Decimal
	Severity     Severity
	Message      string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送 Markdown 文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id":    n.chatID,
		"text":       renderMessage(note),
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("model", note.Model).
		Str("severity", string(note.Severity)).
		Str("error_pct", note.ErrorPct.StringFixed(2)).
		Msg("告警已发送 (Telegram)")
	return nil
}

func severityMark(s Severity) (emoji, title string) {
	switch s {
	case SeverityCritical:
		return "🚨", "Critical"
	case SeverityWarning:
		return "⚠️", "Warning"
	default:
		return "ℹ️", "Info"
	}
}

func renderMessage(note Notification) string {
	emoji, title := severityMark(note.Severity)

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("%s *%s Forecast Alert* %s\n\n", emoji, title, emoji))
	builder.WriteString(fmt.Sprintf("*Model:* `%s`\n", note.Model))
	builder.WriteString(fmt.Sprintf("*Error:* `%s%%` (threshold %s%%)\n\n", note.ErrorPct.StringFixed(2), note.ThresholdPct.StringFixed(2)))
	if note.Message != "" {
		builder.WriteString(note.Message)
		builder.WriteString("\n\n")
	}
	when := note.Date
	if when.IsZero() {
		when = time.Now()
	}
	builder.WriteString(fmt.Sprintf("*Time:* `%s`", when.UTC().Format("2006-01-02 15:04:05")))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
