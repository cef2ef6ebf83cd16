package domain

import "strings"

type PaymentChannel string

const (
	ChannelCard         PaymentChannel = "card"
	ChannelBankTransfer PaymentChannel = "bank_transfer"
)

// ParseChannel accepts the channels the hosted payment page can be opened with.
func ParseChannel(raw string) (PaymentChannel, bool) {
	switch PaymentChannel(strings.ToLower(strings.TrimSpace(raw))) {
	case ChannelCard, "":
		return ChannelCard, true
	case ChannelBankTransfer:
		return ChannelBankTransfer, true
	default:
		return "", false
	}
}

// Label is the human form used in the "Pay {total} via {method}" action.
func (c PaymentChannel) Label() string {
	if c == ChannelBankTransfer {
		return "bank transfer"
	}
	return "card"
}

// PaymentIntent is what the gateway is asked to collect for one checkout attempt.
type PaymentIntent struct {
	Reference   string
	AmountMinor int64
	Currency    string
	Email       string
	Channel     PaymentChannel
	Metadata    map[string]interface{}
}

// SessionOutcome is how the buyer left the hosted payment page.
type SessionOutcome string

const (
	SessionCompleted SessionOutcome = "completed"
	SessionCancelled SessionOutcome = "cancelled"
	SessionDismissed SessionOutcome = "dismissed"
)

func ParseSessionOutcome(raw string) (SessionOutcome, bool) {
	switch o := SessionOutcome(strings.ToLower(strings.TrimSpace(raw))); o {
	case SessionCompleted, SessionCancelled, SessionDismissed:
		return o, true
	default:
		return "", false
	}
}
