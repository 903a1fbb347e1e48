package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/onemack/calladmin/internal/observability"
)

const (
	dispatchTimeout = 10 * time.Second

	ActionCancel  = "cancel"
	ActionHandled = "handled"
)

// ReportPayload is the wire schema of the notification channel. The same
// endpoint receives fresh reports, cancellation events and handled marks; the
// optional action field disambiguates.
type ReportPayload struct {
	AuthorName       string `json:"author_name"`
	AuthorSteamID    string `json:"author_steamid"`
	TargetName       string `json:"target_name"`
	TargetSteamID    string `json:"target_steamid"`
	Reason           string `json:"reason"`
	ServerName       string `json:"server_name"`
	ServerIP         string `json:"server_ip"`
	MapName          string `json:"map_name"`
	Identifier       string `json:"identifier"`
	Action           string `json:"action,omitempty"`
	AdminName        string `json:"admin_name,omitempty"`
	AdminSteamID     string `json:"admin_steamid,omitempty"`
	CanceledByAuthor *bool  `json:"canceled_by_author,omitempty"`
}

type messageReference struct {
	MessageID    string `json:"message_id"`
	AdminName    string `json:"admin_name,omitempty"`
	AdminSteamID string `json:"admin_steamid,omitempty"`
	Action       string `json:"action"`
}

type Dispatcher interface {
	// Submit delivers a report or cancellation event and returns the
	// correlation id under which the channel knows the message.
	Submit(ctx context.Context, payload ReportPayload) (string, error)

	// Cancel asks the channel to retract a previously delivered message.
	Cancel(ctx context.Context, messageID string) error

	// MarkHandled flags a delivered message as taken care of by staff.
	MarkHandled(ctx context.Context, messageID, adminName, adminSteamID string) error
}

type defaultDispatcher struct {
	endpoint   string
	httpClient *http.Client
}

func NewDispatcher(endpoint string) Dispatcher {
	return &defaultDispatcher{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: dispatchTimeout},
	}
}

func (d *defaultDispatcher) Submit(ctx context.Context, payload ReportPayload) (string, error) {
	body, status, err := d.post(ctx, "submit", payload)
	if err != nil {
		observability.RecordWebhookDelivery("submit", false)
		return "", err
	}
	observability.RecordWebhookDelivery("submit", true)

	var ack struct {
		Identifier string `json:"identifier"`
	}
	if err := json.Unmarshal(body, &ack); err == nil && ack.Identifier != "" {
		return ack.Identifier, nil
	}
	if payload.Identifier != "" {
		return payload.Identifier, nil
	}
	log.WithField("context", "webhook").WithField("status", status).Warn("no identifier in channel response, generating one")
	return "report-" + uuid.New()[:8], nil
}

func (d *defaultDispatcher) Cancel(ctx context.Context, messageID string) error {
	_, _, err := d.post(ctx, "cancel", messageReference{
		MessageID: messageID,
		Action:    ActionCancel,
	})
	observability.RecordWebhookDelivery("cancel", err == nil)
	return err
}

func (d *defaultDispatcher) MarkHandled(ctx context.Context, messageID, adminName, adminSteamID string) error {
	_, _, err := d.post(ctx, "handled", messageReference{
		MessageID:    messageID,
		AdminName:    adminName,
		AdminSteamID: adminSteamID,
		Action:       ActionHandled,
	})
	observability.RecordWebhookDelivery("handled", err == nil)
	return err
}

func (d *defaultDispatcher) post(ctx context.Context, operation string, payload any) ([]byte, int, error) {
	ctx, span := otel.Tracer("webhook").Start(ctx, "webhook."+operation)
	defer span.End()

	entry := log.WithField("context", "webhook").WithField("operation", operation)

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, errors.Wrap(err, "cant encode payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, 0, errors.Wrap(err, "cant create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		entry.WithError(err).Error("cant deliver to channel")
		return nil, 0, errors.Wrap(err, "cant deliver to channel")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		entry.WithError(err).Error("cant read channel response")
		return nil, resp.StatusCode, errors.Wrap(err, "cant read channel response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		entry.WithField("status", resp.StatusCode).WithField("body", string(body)).Error("channel rejected delivery")
		return nil, resp.StatusCode, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	return body, resp.StatusCode, nil
}
