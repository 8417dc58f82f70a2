package client

import (
	"kinship-hq/sentinel/pkg/api/types"
	"kinship-hq/sentinel/pkg/moderation"
)

// Action is what the calling application should do with the content.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// MessageRetry is shown when no verdict could be obtained.
const MessageRetry = "Unable to validate content, please try again"

// Decision is the caller side outcome for one piece of content.
type Decision struct {
	Action Action

	// Message is shown to the author. Empty for silent allows.
	Message string

	// Errors holds validator reasons for structural rejections.
	Errors []string

	// Retry is set when the block is due to a failed classification call.
	Retry bool

	// Verdict is nil when the call failed.
	Verdict *types.ClassifyResponse
}

// Blocked reports whether the content must not be persisted or sent.
func (d Decision) Blocked() bool {
	return d.Action == ActionBlock
}

// Decide applies the caller policy to a verdict. A nil verdict fails closed.
func Decide(resp *types.ClassifyResponse) Decision {
	switch {
	case resp == nil || resp.Error != "":
		return failClosed(resp)
	case resp.Structural():
		return Decision{
			Action:  ActionBlock,
			Message: "Content failed validation",
			Errors:  append([]string(nil), resp.Errors...),
			Verdict: resp,
		}
	case !resp.Flagged:
		return Decision{Action: ActionAllow, Verdict: resp}
	}

	sev, err := moderation.ParseSeverity(resp.SeverityLevel)
	if err != nil {
		// A flagged verdict without a usable severity is treated as blocking.
		return Decision{Action: ActionBlock, Message: resp.Message, Verdict: resp}
	}
	if sev.AtLeast(moderation.SeverityHigh) {
		return Decision{Action: ActionBlock, Message: resp.Message, Verdict: resp}
	}
	return Decision{Action: ActionWarn, Message: resp.Message, Verdict: resp}
}

func failClosed(resp *types.ClassifyResponse) Decision {
	return Decision{Action: ActionBlock, Message: MessageRetry, Retry: true, Verdict: resp}
}
