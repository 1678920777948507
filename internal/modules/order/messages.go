package order

import (
	"fmt"
	"strings"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/pricing"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

// messageKey identifies one template sent to one recipient for one order version.
func messageKey(o *Order, template string, recipient types.ID) string {
	return fmt.Sprintf("order:%d:v%d:%s:%d", o.ID, o.StatusVersion, template, recipient)
}

func statusLabel(st Status) string {
	label := strings.ReplaceAll(string(st), "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func receivedText(o *Order) string {
	return fmt.Sprintf("Your order %s has been received. Status: %s.", o.Code, statusLabel(o.Status))
}

func assignedText(o *Order) string {
	return fmt.Sprintf("Order %s assigned to you. Pickup: %s", o.Code, truncate(o.PickupAddress, 50))
}

func adminInAppText(o *Order) string {
	return fmt.Sprintf("New %s order %s from %s.", o.Type, o.Code, customerLabel(o))
}

func adminSMSText(o *Order) string {
	return fmt.Sprintf("New Order Alert!\nOrder Code: %s\nCustomer: %s\nPhone: %s\nPickup: %s\nDropoff: %s\nUrgency: %d/5\nStatus: %s",
		o.Code, customerLabel(o), o.CustomerPhone, o.PickupAddress, o.DropoffAddress, o.Urgency, statusLabel(o.Status))
}

func washedText(o *Order) string {
	return fmt.Sprintf("Order %s has been washed and is waiting to be folded.", o.Code)
}

func riderReadyText(o *Order) string {
	return fmt.Sprintf("Order %s is ready for delivery to %s.", o.Code, truncate(o.DropoffAddress, 50))
}

func customerReadyText(o *Order, price types.Money) string {
	return fmt.Sprintf("Your order %s is ready. Amount due: %s.", o.Code, pricing.Format(price))
}

func deliveredText(o *Order) string {
	return fmt.Sprintf("Your order %s has been delivered. Thank you for choosing Wild Wash!", o.Code)
}

func customerLabel(o *Order) string {
	if o.CustomerName != "" {
		return o.CustomerName
	}
	if o.CustomerPhone != "" {
		return o.CustomerPhone
	}
	return "walk-in customer"
}
