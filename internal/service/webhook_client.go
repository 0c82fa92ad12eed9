package service

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"recordhub-data/internal/config"
	"recordhub-data/internal/domain"
)

// WebhookNotifier 导入完成后的外部回调。
// 尽力而为：回调失败只记日志，绝不影响导入结果。
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// importCompletedPayload 回调请求体
type importCompletedPayload struct {
	Event      string         `json:"event"`
	TenantID   string         `json:"tenant_id"`
	RecordType string         `json:"record_type"`
	Result     map[string]any `json:"result"`
	OccurredAt string         `json:"occurred_at"`
}

// NewWebhookNotifier 创建回调客户端。配置禁用时返回 nil。
func NewWebhookNotifier(cfg config.WebhookConfig, logger *zap.Logger) *WebhookNotifier {
	if !cfg.Enabled || cfg.URL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10
	}
	client := resty.New().
		SetTimeout(time.Duration(timeout) * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return &WebhookNotifier{httpClient: client, url: cfg.URL, logger: logger}
}

// ImportCompleted 异步发送导入完成事件
func (n *WebhookNotifier) ImportCompleted(tenantID, recordType string, result *domain.ImportResult) {
	payload := importCompletedPayload{
		Event:      "import.completed",
		TenantID:   tenantID,
		RecordType: recordType,
		Result:     result.ToJSON(),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		resp, err := n.httpClient.R().SetBody(payload).Post(n.url)
		if err != nil {
			n.logger.Warn("import webhook failed",
				zap.String("tenant_id", tenantID),
				zap.String("record_type", recordType),
				zap.Error(err))
			return
		}
		if resp.IsError() {
			n.logger.Warn("import webhook rejected",
				zap.String("tenant_id", tenantID),
				zap.Int("status", resp.StatusCode()))
		}
	}()
}
