package importflow

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"go-ledger/internal/features/notification"
)

// RemoteNotifier records workflow outcomes in the server's notification
// feed. Posting is fire-and-forget: a failed post is logged and dropped,
// never surfaced to the workflow.
type RemoteNotifier struct {
	client *Client
	logger *zap.Logger
}

func NewRemoteNotifier(client *Client, logger *zap.Logger) *RemoteNotifier {
	return &RemoteNotifier{client: client, logger: logger}
}

func (n *RemoteNotifier) Success(message string) {
	n.post(notification.LevelSuccess, message)
}

func (n *RemoteNotifier) Warning(message string) {
	n.post(notification.LevelWarning, message)
}

func (n *RemoteNotifier) Danger(message string) {
	n.post(notification.LevelDanger, message)
}

func (n *RemoteNotifier) post(level notification.NotificationLevel, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"level":   string(level),
		"message": message,
	})
	if err != nil {
		n.logger.Warn("notification encode failed", zap.Error(err))
		return
	}

	err = n.client.do(ctx, http.MethodPost, "/api/notifications/", "application/json", bytes.NewReader(payload), nil)
	if err != nil {
		n.logger.Warn("notification post failed", zap.Error(err))
	}
}
