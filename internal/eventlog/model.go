package eventlog

import "time"

// Event names recorded by the funnel. The dashboard relies on these exact
// values.
const (
	EventQuizStart        = "quiz_start"
	EventQuizStep         = "quiz_step"
	EventQuizComplete     = "quiz_complete"
	EventInitiateCheckout = "InitiateCheckout"
	EventPurchase         = "Purchase"
	EventPageView         = "PageView"
	EventViewContent      = "ViewContent"
	EventLead             = "Lead"
)

// Event is one row of the funnel event log. Rows are append-only and evicted
// only by the size cap.
type Event struct {
	ID             string    `json:"id" gorm:"column:id;primaryKey"`
	SessionID      string    `json:"session_id" gorm:"column:session_id"`
	EventName      string    `json:"event_name" gorm:"column:event_name"`
	OccurredAt     time.Time `json:"timestamp" gorm:"column:occurred_at"`
	Step           *int      `json:"step,omitempty" gorm:"column:step"`
	Answer         string    `json:"answer,omitempty" gorm:"column:answer"`
	PerfilSintese  string    `json:"perfil_sintese,omitempty" gorm:"column:perfil_sintese"`
	TempoEspiritual string   `json:"tempo_espiritual,omitempty" gorm:"column:tempo_espiritual"`
	PerfilAmor     string    `json:"perfil_amor,omitempty" gorm:"column:perfil_amor"`
	Value          *float64  `json:"value,omitempty" gorm:"column:value"`
	ContentName    string    `json:"content_name,omitempty" gorm:"column:content_name"`
	UTMSource      string    `json:"utm_source,omitempty" gorm:"column:utm_source"`
	UTMMedium      string    `json:"utm_medium,omitempty" gorm:"column:utm_medium"`
	UTMCampaign    string    `json:"utm_campaign,omitempty" gorm:"column:utm_campaign"`
	UTMContent     string    `json:"utm_content,omitempty" gorm:"column:utm_content"`
	UTMTerm        string    `json:"utm_term,omitempty" gorm:"column:utm_term"`
	FBP            string    `json:"fbp,omitempty" gorm:"column:fbp"`
	FBC            string    `json:"fbc,omitempty" gorm:"column:fbc"`
	DedupEventID   string    `json:"event_id,omitempty" gorm:"column:dedup_event_id"`
}

// TableName maps the model onto the migrated table.
func (Event) TableName() string {
	return "funnel_events"
}

// Filters narrows a query. Zero values mean "no constraint"; set filters
// combine conjunctively.
type Filters struct {
	Start     time.Time
	End       time.Time
	EventName string
}
