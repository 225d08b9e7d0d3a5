package ctfd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cybermaze-gateway/internal/domain"
	"go.uber.org/zap"
)

// decodeList normalizes the shapes the platform has been observed to
// use for list responses. Accepted inputs, in order of preference:
//
//	{"success": true, "data": [...]}
//	{"data": [...]}
//	[...]
//
// Anything else decodes to an empty list.
func decodeList[T any](raw []byte) ([]T, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var wrapped struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Data == nil {
		return []T{}, nil
	}
	return wrapped.Data, nil
}

// GetNotifications polls the broadcast feed. The endpoint's shape
// varies between deployments, so the body goes through decodeList;
// any failure degrades to an empty list so the polling UI never
// surfaces an error for an optional feature.
func (c *Client) GetNotifications(ctx context.Context, sinceID int) ([]domain.Notification, error) {
	path := c.apiURL + "/notifications?since_id=" + strconv.Itoa(sinceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return []domain.Notification{}, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("notification poll failed", zap.Error(err))
		return []domain.Notification{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []domain.Notification{}, nil
	}

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return []domain.Notification{}, nil
	}
	notifications, err := decodeList[domain.Notification](body)
	if err != nil {
		c.log.Debug("unrecognized notification payload", zap.Error(err))
		return []domain.Notification{}, nil
	}
	return notifications, nil
}

// MarkNotificationRead acknowledges one notification.
func (c *Client) MarkNotificationRead(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodPatch, fmt.Sprintf("/notifications/%d", id), map[string]any{"read": true}, nil)
}
