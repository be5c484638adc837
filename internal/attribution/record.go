package attribution

import (
	"fmt"
	"strconv"
)

// Record is the single attribution state for the running app: first-touch
// campaign params, click ids, generated pseudo-identifiers, and hashed
// contact data. Timestamp is the last persist time in unix milliseconds and
// drives lazy TTL expiry on load.
type Record struct {
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	FBCLID      string `json:"fbclid,omitempty"`
	FBP         string `json:"fbp,omitempty"`
	FBC         string `json:"fbc,omitempty"`
	EventID     string `json:"event_id,omitempty"`
	EmailHash   string `json:"em,omitempty"`
	PhoneHash   string `json:"ph,omitempty"`
	TimerStart  int64  `json:"timer_start,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// IsZero reports whether the record carries no attribution data at all.
func (r Record) IsZero() bool {
	return r == Record{}
}

// Params returns the record's non-empty fields as query parameters, in the
// shape consumed by checkout-handoff URLs. Timestamp stays internal.
func (r Record) Params() map[string]string {
	out := map[string]string{}
	fields := map[string]string{
		"utm_source":   r.UTMSource,
		"utm_medium":   r.UTMMedium,
		"utm_campaign": r.UTMCampaign,
		"utm_content":  r.UTMContent,
		"utm_term":     r.UTMTerm,
		"fbclid":       r.FBCLID,
		"fbp":          r.FBP,
		"fbc":          r.FBC,
		"event_id":     r.EventID,
		"em":           r.EmailHash,
		"ph":           r.PhoneHash,
	}
	for key, value := range fields {
		if value != "" {
			out[key] = value
		}
	}
	if r.TimerStart != 0 {
		out["timer_start"] = strconv.FormatInt(r.TimerStart, 10)
	}
	return out
}

// UTMFields returns only the five campaign params, keyed by wire name.
func (r Record) UTMFields() map[string]string {
	out := map[string]string{}
	for key, value := range map[string]string{
		"utm_source":   r.UTMSource,
		"utm_medium":   r.UTMMedium,
		"utm_campaign": r.UTMCampaign,
		"utm_content":  r.UTMContent,
		"utm_term":     r.UTMTerm,
	} {
		if value != "" {
			out[key] = value
		}
	}
	return out
}

func formatFBC(tsMillis int64, fbclid string) string {
	return fmt.Sprintf("fb.1.%d.%s", tsMillis, fbclid)
}

func formatFBP(tsMillis int64, random int64) string {
	return fmt.Sprintf("fb.1.%d.%d", tsMillis, random)
}
