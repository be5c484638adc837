package capi

import (
	"time"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/attribution"
)

// ActionSource is fixed for funnel traffic.
const ActionSource = "website"

// UserData carries the hashed and pseudonymous identity fields of a payload.
// Raw PII never appears here.
type UserData struct {
	Em              string `json:"em,omitempty"`
	Ph              string `json:"ph,omitempty"`
	FBP             string `json:"fbp,omitempty"`
	FBC             string `json:"fbc,omitempty"`
	ClientUserAgent string `json:"client_user_agent,omitempty"`
}

// Payload is the wire format the relay endpoint accepts. The event_id must
// match the id passed to the pixel for the same logical event so the ad
// platform can deduplicate the two deliveries.
type Payload struct {
	EventName    string         `json:"event_name"`
	EventTime    int64          `json:"event_time"`
	EventID      string         `json:"event_id"`
	SourceURL    string         `json:"source_url"`
	ActionSource string         `json:"action_source"`
	UserData     UserData       `json:"user_data"`
	CustomData   map[string]any `json:"custom_data"`
}

// PageContext describes the request that triggered the event.
type PageContext struct {
	SourceURL string
	UserAgent string
}

// BuildPayload assembles a relay payload from the attribution snapshot.
func BuildPayload(eventName string, rec attribution.Record, custom map[string]any, page PageContext) Payload {
	if custom == nil {
		custom = map[string]any{}
	}
	return Payload{
		EventName:    eventName,
		EventTime:    time.Now().Unix(),
		EventID:      rec.EventID,
		SourceURL:    page.SourceURL,
		ActionSource: ActionSource,
		UserData: UserData{
			Em:              rec.EmailHash,
			Ph:              rec.PhoneHash,
			FBP:             rec.FBP,
			FBC:             rec.FBC,
			ClientUserAgent: page.UserAgent,
		},
		CustomData: custom,
	}
}
