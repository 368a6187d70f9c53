package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-tracker/internal/config"
)

// SLAAlert describes a ticket that breached the first-response window.
type SLAAlert struct {
	ThreadID      string `json:"thread_id"`
	Title         string `json:"title"`
	RaisedBy      string `json:"raised_by"`
	IsEngineering bool   `json:"is_engineering"`
	Link          string `json:"link"`
	Waiting       string `json:"waiting"`
}

// NotificationService delivers SLA alerts to the configured webhook.
type NotificationService struct {
	cfg    config.NotificationConfig
	logger *zap.Logger
	client *http.Client
}

// NewNotificationService creates the service.
func NewNotificationService(cfg config.NotificationConfig, logger *zap.Logger) *NotificationService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NotificationService{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: timeout},
	}
}

// SendSLAAlert posts the alert, retrying with exponential backoff. The
// final failure is returned after retries are exhausted; a missing
// webhook URL makes the alert a logged no-op.
func (n *NotificationService) SendSLAAlert(ctx context.Context, alert SLAAlert) error {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		n.logger.Warn("no alert webhook configured, dropping SLA alert",
			zap.String("thread_id", alert.ThreadID))
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"alert_type": "sla_breach",
		"message":    alertMessage(alert),
		"ticket":     alert,
	})
	if err != nil {
		return err
	}

	retries := n.cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<(attempt-1)) * time.Second):
			}
		}

		lastErr = n.post(ctx, body)
		if lastErr == nil {
			n.logger.Info("SLA alert delivered", zap.String("thread_id", alert.ThreadID))
			return nil
		}
		n.logger.Warn("SLA alert delivery failed",
			zap.String("thread_id", alert.ThreadID),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", retries),
			zap.Error(lastErr))
	}
	return lastErr
}

func (n *NotificationService) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func alertMessage(alert SLAAlert) string {
	issueType := "Non-Engineering Issue"
	if alert.IsEngineering {
		issueType = "Engineering Issue"
	}
	return fmt.Sprintf(
		"SLA ALERT: Ticket Awaiting Response\nTitle: %s\nRaised by: %s\nWaiting: %s\nType: %s\nLink: %s",
		alert.Title, alert.RaisedBy, alert.Waiting, issueType, alert.Link)
}
