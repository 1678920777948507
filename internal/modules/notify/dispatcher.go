// README: Best-effort in-app, push and SMS delivery; failures are logged and never returned.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/metrics"
)

type Dispatcher struct {
	sink        Sink
	pusher      Pusher
	sms         SMSSender
	guard       Guard
	countryCode string
	log         *zap.Logger
}

type DispatcherDeps struct {
	Sink        Sink
	Pusher      Pusher // optional
	SMS         SMSSender
	Guard       Guard // optional
	CountryCode string
	Log         *zap.Logger
}

func NewDispatcher(d DispatcherDeps) *Dispatcher {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.CountryCode == "" {
		d.CountryCode = "254"
	}
	return &Dispatcher{
		sink:        d.Sink,
		pusher:      d.Pusher,
		sms:         d.SMS,
		guard:       d.Guard,
		countryCode: d.CountryCode,
		log:         d.Log,
	}
}

// Dispatch delivers m on every channel it asks for. Each channel is isolated:
// a failing in-app write does not stop the SMS and vice versa.
func (d *Dispatcher) Dispatch(ctx context.Context, m Message) {
	if m.Recipient != nil {
		d.inApp(ctx, m)
	}
	if m.SMS {
		d.sendSMS(ctx, m)
	}
}

func (d *Dispatcher) inApp(ctx context.Context, m Message) {
	if d.sink == nil || !d.acquire(ctx, m.Key, "inapp") {
		return
	}
	n := &Notification{
		UserID:  m.Recipient.ID,
		OrderID: m.OrderID,
		Message: m.Text,
		Kind:    m.Kind,
	}
	if err := d.sink.Save(ctx, n); err != nil {
		d.failed("inapp", m, err)
		return
	}
	if d.pusher == nil || m.Recipient.FCMToken == "" {
		return
	}
	if err := d.pusher.Push(ctx, m.Recipient.FCMToken, n); err != nil {
		d.failed("push", m, err)
	}
}

func (d *Dispatcher) sendSMS(ctx context.Context, m Message) {
	if d.sms == nil {
		return
	}
	raw := m.Phone
	if raw == "" && m.Recipient != nil {
		raw = m.Recipient.Phone
	}
	phone, ok := FormatPhone(raw, d.countryCode)
	if !ok {
		d.log.Debug("sms skipped: no usable phone", zap.String("kind", string(m.Kind)), zap.String("raw", raw))
		return
	}
	if !d.acquire(ctx, m.Key, "sms") {
		return
	}
	res, err := d.sms.Send(ctx, phone, m.Text)
	if err == nil && res.Status != SMSStatusSuccess {
		err = smsError(res.Message)
	}
	if err != nil {
		d.failed("sms", m, err)
		return
	}
	d.log.Info("sms sent", zap.String("to", phone), zap.String("kind", string(m.Kind)))
}

// acquire fails open: a broken guard must not suppress delivery.
func (d *Dispatcher) acquire(ctx context.Context, key, channel string) bool {
	if d.guard == nil || key == "" {
		return true
	}
	ok, err := d.guard.Acquire(ctx, key+":"+channel)
	if err != nil {
		d.log.Warn("notification guard unavailable", zap.String("key", key), zap.Error(err))
		return true
	}
	if !ok {
		d.log.Debug("duplicate notification suppressed", zap.String("key", key), zap.String("channel", channel))
	}
	return ok
}

func (d *Dispatcher) failed(channel string, m Message, err error) {
	metrics.NotificationFailuresTotal.WithLabelValues(channel).Inc()
	fields := []zap.Field{
		zap.String("channel", channel),
		zap.String("kind", string(m.Kind)),
		zap.Error(err),
	}
	if m.OrderID != nil {
		fields = append(fields, zap.Int64("order_id", int64(*m.OrderID)))
	}
	if m.Recipient != nil {
		fields = append(fields, zap.Int64("user_id", int64(m.Recipient.ID)))
	}
	d.log.Warn("notification failed", fields...)
}

type smsError string

func (e smsError) Error() string { return "sms provider: " + string(e) }
