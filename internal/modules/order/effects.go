package order

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/notify"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

// notifyCreated fans out to the customer, every admin and the new rider.
// The branches never fail each other.
func (s *Service) notifyCreated(ctx context.Context, o *Order, customer, rider *users.User) {
	var g errgroup.Group
	g.Go(func() error {
		m := s.customerMessage(o, customer, notify.KindNewOrder, receivedText(o), "received")
		m.SMS = false
		if m.Recipient != nil {
			s.notifier.Dispatch(ctx, m)
		}
		return nil
	})
	g.Go(func() error {
		admins, err := s.users.ListAdmins(ctx)
		if err != nil {
			s.log.Warn("admin lookup failed", zap.Int64("order_id", int64(o.ID)), zap.Error(err))
			return nil
		}
		for i := range admins {
			admin := admins[i]
			s.notifier.Dispatch(ctx, notify.Message{
				Recipient: &admin,
				OrderID:   types.IDPtr(o.ID),
				Kind:      notify.KindNewOrder,
				Text:      adminInAppText(o),
				Key:       messageKey(o, "admin_new_order", admin.ID),
			})
			if admin.Phone == "" {
				continue
			}
			s.notifier.Dispatch(ctx, notify.Message{
				Phone:   admin.Phone,
				OrderID: types.IDPtr(o.ID),
				Kind:    notify.KindNewOrder,
				Text:    adminSMSText(o),
				SMS:     true,
				Key:     messageKey(o, "admin_new_order_sms", admin.ID),
			})
		}
		return nil
	})
	if rider != nil {
		g.Go(func() error {
			s.notifier.Dispatch(ctx, notify.Message{
				Recipient: rider,
				OrderID:   types.IDPtr(o.ID),
				Kind:      notify.KindOrderAssigned,
				Text:      assignedText(o),
				SMS:       true,
				Key:       messageKey(o, "assigned", rider.ID),
			})
			return nil
		})
	}
	_ = g.Wait()
}

// onWashed tells the folders at the order's location there is work waiting.
func (s *Service) onWashed(ctx context.Context, o *Order) {
	if o.LocationID == nil {
		s.log.Warn("washed order has no location; folders not notified", zap.Int64("order_id", int64(o.ID)))
		return
	}
	folders, err := s.users.ListActive(ctx, users.KindFolder, o.LocationID)
	if err != nil {
		s.log.Warn("folder lookup failed", zap.Int64("order_id", int64(o.ID)), zap.Error(err))
		return
	}
	if len(folders) == 0 {
		s.log.Warn("no folders at location", zap.Int64("order_id", int64(o.ID)), zap.Int64("location_id", int64(*o.LocationID)))
	}
	for i := range folders {
		folder := folders[i]
		s.notifier.Dispatch(ctx, notify.Message{
			Recipient: &folder,
			OrderID:   types.IDPtr(o.ID),
			Kind:      notify.KindOrderUpdate,
			Text:      washedText(o),
			SMS:       true,
			Key:       messageKey(o, "washed", folder.ID),
		})
	}
}

// onReady finds a rider when the order may go out, tells the rider and tells
// the customer what they owe.
func (s *Service) onReady(ctx context.Context, o *Order, actorID *types.ID) {
	switch {
	case o.RiderID != nil:
	case o.AwaitingDeliveryAddress():
		s.log.Info("rider assignment held: manual order has no delivery address", zap.Int64("order_id", int64(o.ID)))
	default:
		if _, err := s.engine.Assign(ctx, o, users.KindRider, actorID, false); err != nil {
			s.log.Error("rider assignment failed", zap.Int64("order_id", int64(o.ID)), zap.Error(err))
		}
	}

	if o.RiderID != nil {
		rider, err := s.users.Get(ctx, *o.RiderID)
		if err != nil {
			s.log.Warn("rider lookup failed", zap.Int64("order_id", int64(o.ID)), zap.Error(err))
		} else {
			s.notifier.Dispatch(ctx, notify.Message{
				Recipient: rider,
				OrderID:   types.IDPtr(o.ID),
				Kind:      notify.KindOrderReady,
				Text:      riderReadyText(o),
				SMS:       true,
				Key:       messageKey(o, "ready_rider", rider.ID),
			})
		}
	}

	customer := s.customer(ctx, o)
	price := types.Money{Currency: o.Currency}
	if s.pricing != nil {
		price = s.pricing.Quote(o.ActualMoney(), o.EstimateMoney(), o.WeightKg)
	}
	s.notifier.Dispatch(ctx, s.customerMessage(o, customer, notify.KindOrderReady, customerReadyText(o, price), "ready_customer"))
}

func (s *Service) onDelivered(ctx context.Context, o *Order) {
	customer := s.customer(ctx, o)
	m := s.customerMessage(o, customer, notify.KindOrderDelivered, deliveredText(o), "delivered")
	if m.Phone == "" && customer != nil {
		m.Phone = customer.Phone
	}
	m.Recipient = nil
	s.notifier.Dispatch(ctx, m)
}

func (s *Service) customer(ctx context.Context, o *Order) *users.User {
	if o.CustomerID == nil {
		return nil
	}
	u, err := s.users.Get(ctx, *o.CustomerID)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			s.log.Warn("customer lookup failed", zap.Int64("order_id", int64(o.ID)), zap.Error(err))
		}
		return nil
	}
	return u
}

// customerMessage addresses the registered customer when there is one and
// otherwise the phone captured on a manual order.
func (s *Service) customerMessage(o *Order, customer *users.User, kind notify.Kind, text, template string) notify.Message {
	m := notify.Message{
		Recipient: customer,
		OrderID:   types.IDPtr(o.ID),
		Kind:      kind,
		Text:      text,
		SMS:       true,
	}
	var recipient types.ID
	if customer != nil {
		recipient = customer.ID
	}
	if customer == nil || customer.Phone == "" {
		m.Phone = o.CustomerPhone
	}
	m.Key = messageKey(o, template, recipient)
	return m
}
