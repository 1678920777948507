package notify

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

//go:generate mockgen -source ./fcm.go -destination=./mocks/fcm.go -package=mock_notify
type Pusher interface {
	Push(ctx context.Context, token string, n *Notification) error
}

// FCMPusher delivers in-app notifications to a device via Firebase Cloud Messaging.
type FCMPusher struct {
	client *messaging.Client
}

func NewFCMPusher(client *messaging.Client) *FCMPusher {
	return &FCMPusher{client: client}
}

func (p *FCMPusher) Push(ctx context.Context, token string, n *Notification) error {
	if token == "" {
		return errors.New("empty device token")
	}
	_, err := p.client.Send(ctx, pushMessage(token, n))
	if err != nil {
		return fmt.Errorf("sending FCM: %w", err)
	}
	return nil
}

func pushMessage(token string, n *Notification) *messaging.Message {
	data := map[string]string{
		"type":            string(n.Kind),
		"notification_id": n.ID.String(),
	}
	if n.OrderID != nil {
		data["order_id"] = n.OrderID.String()
	}
	return &messaging.Message{
		Token: token,
		Data:  data,
		Notification: &messaging.Notification{
			Title: pushTitle(n.Kind),
			Body:  n.Message,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
}

func pushTitle(k Kind) string {
	switch k {
	case KindNewOrder:
		return "New order"
	case KindOrderAssigned:
		return "Order assigned"
	case KindOrderReady:
		return "Order ready"
	case KindOrderDelivered:
		return "Order delivered"
	default:
		return "Order update"
	}
}
