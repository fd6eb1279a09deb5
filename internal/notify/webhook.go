package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/template"
	"time"

	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

// DefaultWebhookTemplate renders a JSON payload. The json function quotes
// and escapes a value.
const DefaultWebhookTemplate = `{"text":{{json (printf "%s - Failed Check: %s" .Host .Rule)}},"rule":{{json .Rule}},"host":{{json .Host}},"run_id":{{json .RunID}},"timestamp":{{json .Timestamp}},"body":{{json .Body}}}`

var templateFuncs = template.FuncMap{
	"json": func(v interface{}) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// WebhookChannel posts alerts to an HTTP endpoint
type WebhookChannel struct {
	cfg        WebhookConfig
	tmpl       *template.Template
	httpClient *http.Client
}

// NewWebhookChannel parses the payload template and creates the channel
func NewWebhookChannel(cfg WebhookConfig) (*WebhookChannel, error) {
	tmplStr := cfg.Template
	if tmplStr == "" {
		tmplStr = DefaultWebhookTemplate
	}
	tmpl, err := template.New("webhook").Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	return &WebhookChannel{
		cfg:        cfg,
		tmpl:       tmpl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Name implements Channel
func (c *WebhookChannel) Name() string { return rules.ChannelWebhook }

// Format implements Channel
func (c *WebhookChannel) Format() Format { return FormatPlain }

// Send implements Channel
func (c *WebhookChannel) Send(ctx context.Context, msg Message) error {
	var body bytes.Buffer
	if err := c.tmpl.Execute(&body, msg); err != nil {
		return fmt.Errorf("template execution failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, c.cfg.Method, c.cfg.URL, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
