package lemonsqueezy

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// VerifyWebhookSignature checks the X-Signature header against an HMAC-SHA256
// of the exact raw payload bytes using a constant-time comparison.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(strings.ToLower(sig)), []byte(expected))
}

// WebhookEvent is the parsed form of a LemonSqueezy webhook delivery.
type WebhookEvent struct {
	EventName string
	EventID   string
	// UserID is the internal user id carried in the checkout's custom data.
	// Empty for events not originating from a tagged checkout.
	UserID string

	SubscriptionID    string
	Status            string
	VariantID         string
	CancelAtPeriodEnd bool
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
}

// flexString accepts both JSON strings and numbers; LemonSqueezy is not
// consistent about which it sends for ids.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// ParseWebhookEvent decodes a raw webhook body. The event id falls back to
// the resource id when meta.event_id is absent, matching how the audit log is
// keyed.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var raw struct {
		Meta struct {
			EventName  string     `json:"event_name"`
			EventID    flexString `json:"event_id"`
			CustomData struct {
				UserID flexString `json:"user_id"`
			} `json:"custom_data"`
		} `json:"meta"`
		Data struct {
			ID         flexString `json:"id"`
			Attributes struct {
				Status    string     `json:"status"`
				VariantID flexString `json:"variant_id"`
				RenewsAt  string     `json:"renews_at"`
				CreatedAt string     `json:"created_at"`
				Cancelled bool       `json:"cancelled"`
			} `json:"attributes"`
		} `json:"data"`
	}

	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.Meta.EventName) == "" {
		return nil, errors.New("webhook payload missing meta.event_name")
	}

	eventID := strings.TrimSpace(string(raw.Meta.EventID))
	if eventID == "" {
		eventID = strings.TrimSpace(string(raw.Data.ID))
	}
	if eventID == "" {
		return nil, errors.New("webhook payload missing event id")
	}

	ev := &WebhookEvent{
		EventName:         strings.TrimSpace(raw.Meta.EventName),
		EventID:           eventID,
		UserID:            strings.TrimSpace(string(raw.Meta.CustomData.UserID)),
		SubscriptionID:    strings.TrimSpace(string(raw.Data.ID)),
		Status:            strings.TrimSpace(raw.Data.Attributes.Status),
		VariantID:         strings.TrimSpace(string(raw.Data.Attributes.VariantID)),
		CancelAtPeriodEnd: raw.Data.Attributes.Cancelled,
	}

	// renews_at marks the end of the current period, created_at its start.
	if end := parseTime(raw.Data.Attributes.RenewsAt); end != nil {
		ev.PeriodEnd = end
		ev.PeriodStart = parseTime(raw.Data.Attributes.CreatedAt)
	}

	return ev, nil
}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
