package service

import (
	"encoding/json"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	lifecycledomain "github.com/smallbiznis/staydesk/internal/lifecycle/domain"
)

const providerStripe = "stripe"

type stripeInvoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

type stripeSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

type stripeCheckoutSession struct {
	ID                string `json:"id"`
	Mode              string `json:"mode"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	ClientReferenceID string `json:"client_reference_id"`
}

// fromStripeEvent reduces a verified stripe event to the fields the adapter
// routes on. Types it does not know pass through with only ID and Type set.
func fromStripeEvent(event stripe.Event) (lifecycledomain.Event, error) {
	out := lifecycledomain.Event{
		Provider: providerStripe,
		ID:       strings.TrimSpace(event.ID),
		Type:     string(event.Type),
	}
	if event.Created > 0 {
		out.OccurredAt = time.Unix(event.Created, 0).UTC()
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}

	switch out.Type {
	case lifecycledomain.EventInvoicePaymentSucceeded,
		lifecycledomain.EventInvoicePaid,
		lifecycledomain.EventInvoicePaymentFailed:
		var inv stripeInvoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return out, lifecycledomain.ErrInvalidPayload
		}
		out.CustomerID = strings.TrimSpace(inv.Customer)
		out.SubscriptionID = strings.TrimSpace(inv.Subscription)
		if out.SubscriptionID == "" {
			out.SubscriptionID = strings.TrimSpace(inv.Parent.SubscriptionDetails.Subscription)
		}

	case lifecycledomain.EventSubscriptionUpdated, lifecycledomain.EventSubscriptionDeleted:
		var sub stripeSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return out, lifecycledomain.ErrInvalidPayload
		}
		out.SubscriptionID = strings.TrimSpace(sub.ID)
		out.CustomerID = strings.TrimSpace(sub.Customer)
		out.Status = strings.TrimSpace(sub.Status)
		cancel := sub.CancelAtPeriodEnd
		out.CancelAtPeriodEnd = &cancel

		start, end := sub.CurrentPeriodStart, sub.CurrentPeriodEnd
		if start == 0 && end == 0 && len(sub.Items.Data) > 0 {
			start, end = sub.Items.Data[0].CurrentPeriodStart, sub.Items.Data[0].CurrentPeriodEnd
		}
		out.CurrentPeriodStart = unixPtr(start)
		out.CurrentPeriodEnd = unixPtr(end)

	case lifecycledomain.EventCheckoutCompleted:
		var sess stripeCheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return out, lifecycledomain.ErrInvalidPayload
		}
		out.SubscriptionID = strings.TrimSpace(sess.Subscription)
		out.CustomerID = strings.TrimSpace(sess.Customer)
		out.ClientReferenceID = strings.TrimSpace(sess.ClientReferenceID)
	}
	return out, nil
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
