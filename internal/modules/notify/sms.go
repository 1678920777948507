package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	SMSStatusSuccess = "success"
	SMSStatusError   = "error"
)

// SMSResult mirrors the provider outcome for a single recipient.
type SMSResult struct {
	Status  string
	Message string
}

//go:generate mockgen -source ./sms.go -destination=./mocks/sms.go -package=mock_notify
type SMSSender interface {
	Send(ctx context.Context, phone, message string) (SMSResult, error)
}

type AfricasTalkingConfig struct {
	Username string
	APIKey   string
	SenderID string
	Endpoint string
}

// AfricasTalking sends SMS through the Africa's Talking messaging REST API.
type AfricasTalking struct {
	cfg    AfricasTalkingConfig
	client *http.Client
}

func NewAfricasTalking(cfg AfricasTalkingConfig) *AfricasTalking {
	return &AfricasTalking{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

type atResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			StatusCode int    `json:"statusCode"`
			Number     string `json:"number"`
			Status     string `json:"status"`
			Cost       string `json:"cost"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

func (a *AfricasTalking) Send(ctx context.Context, phone, message string) (SMSResult, error) {
	form := url.Values{}
	form.Set("username", a.cfg.Username)
	form.Set("to", phone)
	form.Set("message", message)
	if a.cfg.SenderID != "" {
		form.Set("from", a.cfg.SenderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SMSResult{Status: SMSStatusError, Message: err.Error()}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return SMSResult{Status: SMSStatusError, Message: err.Error()}, fmt.Errorf("africastalking request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("africastalking status %d", resp.StatusCode)
		return SMSResult{Status: SMSStatusError, Message: err.Error()}, err
	}

	var body atResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return SMSResult{Status: SMSStatusError, Message: "unreadable provider response"}, fmt.Errorf("decode africastalking response: %w", err)
	}
	recipients := body.SMSMessageData.Recipients
	if len(recipients) == 0 {
		err := errors.New("africastalking accepted no recipients: " + body.SMSMessageData.Message)
		return SMSResult{Status: SMSStatusError, Message: err.Error()}, err
	}
	if r := recipients[0]; r.Status != "Success" {
		err := fmt.Errorf("africastalking rejected %s: %s", r.Number, r.Status)
		return SMSResult{Status: SMSStatusError, Message: err.Error()}, err
	}
	return SMSResult{Status: SMSStatusSuccess, Message: "SMS sent successfully"}, nil
}

// LogSender stands in for a provider when no API key is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, phone, message string) (SMSResult, error) {
	s.log.Info("sms (not sent, provider disabled)", zap.String("to", phone), zap.String("message", message))
	return SMSResult{Status: SMSStatusSuccess, Message: "logged"}, nil
}
