// Package funnel reduces the event log into the dashboard's derived views.
// Everything here is a pure function over a slice of events.
package funnel

import (
	"math"
	"time"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/eventlog"
)

// Step is one stage of the quiz funnel, counted in distinct sessions.
type Step struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Retention  float64 `json:"retention"`
	Dropped    int     `json:"dropped"`
	DropRate   float64 `json:"dropRate"`
}

// DailyMetric is one calendar day of headline counts.
type DailyMetric struct {
	Date             string `json:"date"`
	QuizStart        int    `json:"quiz_start"`
	QuizComplete     int    `json:"quiz_complete"`
	InitiateCheckout int    `json:"initiate_checkout"`
	Purchase         int    `json:"purchase"`
}

// DistributionEntry is one slice of a categorical tally.
type DistributionEntry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

var stageNames = []string{
	"Iniciaram o Quiz",
	"Responderam Q1",
	"Responderam Q2",
	"Responderam Q3",
	"Responderam Q4",
	"Responderam Q5",
	"Finalizaram",
}

// ComputeFunnelSteps derives the stage pipeline from the event log. A session
// reaching step k counts toward every stage up to k, so counts are monotone
// non-increasing down the funnel regardless of which step events survived
// eviction.
func ComputeFunnelSteps(events []eventlog.Event) []Step {
	const numSteps = 5
	stages := make([]map[string]struct{}, len(stageNames))
	for i := range stages {
		stages[i] = map[string]struct{}{}
	}

	for _, event := range events {
		if event.SessionID == "" {
			continue
		}
		switch event.EventName {
		case eventlog.EventQuizStart:
			stages[0][event.SessionID] = struct{}{}
		case eventlog.EventQuizStep:
			if event.Step == nil {
				continue
			}
			for k := 1; k <= numSteps; k++ {
				if *event.Step >= k {
					stages[k][event.SessionID] = struct{}{}
				}
			}
		case eventlog.EventQuizComplete:
			stages[len(stages)-1][event.SessionID] = struct{}{}
		}
	}

	started := len(stages[0])
	steps := make([]Step, len(stages))
	for i, sessions := range stages {
		count := len(sessions)
		previous := count
		if i > 0 {
			previous = len(stages[i-1])
		}

		retention := 100.0
		if previous > 0 {
			retention = 100 * float64(count) / float64(previous)
		}
		percentage := 0.0
		if started > 0 {
			percentage = 100 * float64(count) / float64(started)
		}
		dropped := previous - count
		if dropped < 0 {
			dropped = 0
		}
		dropRate := 0.0
		if previous > 0 {
			dropRate = 100 * float64(dropped) / float64(previous)
		}

		steps[i] = Step{
			Name:       stageNames[i],
			Count:      count,
			Percentage: round1(percentage),
			Retention:  round1(retention),
			Dropped:    dropped,
			DropRate:   round1(dropRate),
		}
	}
	return steps
}

// ComputeDailyMetrics buckets the headline events by local calendar day for
// the trailing N days, zero-filled and ordered oldest first.
func ComputeDailyMetrics(events []eventlog.Event, days int) []DailyMetric {
	if days <= 0 {
		days = 7
	}

	now := time.Now()
	byDate := map[string]*DailyMetric{}
	ordered := make([]*DailyMetric, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		metric := &DailyMetric{Date: date}
		byDate[date] = metric
		ordered = append(ordered, metric)
	}

	cutoff := now.AddDate(0, 0, -days)
	for _, event := range events {
		if event.OccurredAt.Before(cutoff) {
			continue
		}
		metric, ok := byDate[event.OccurredAt.Local().Format("2006-01-02")]
		if !ok {
			continue
		}
		switch event.EventName {
		case eventlog.EventQuizStart:
			metric.QuizStart++
		case eventlog.EventQuizComplete:
			metric.QuizComplete++
		case eventlog.EventInitiateCheckout:
			metric.InitiateCheckout++
		case eventlog.EventPurchase:
			metric.Purchase++
		}
	}

	out := make([]DailyMetric, len(ordered))
	for i, metric := range ordered {
		out[i] = *metric
	}
	return out
}

// DistributionField names a categorical result field of quiz_complete events.
type DistributionField string

const (
	FieldTempoEspiritual DistributionField = "tempo_espiritual"
	FieldPerfilAmor      DistributionField = "perfil_amor"
)

// ComputeDistribution tallies a result field over quiz_complete events.
// Order of entries is unspecified.
func ComputeDistribution(events []eventlog.Event, field DistributionField) []DistributionEntry {
	tally := map[string]int{}
	for _, event := range events {
		if event.EventName != eventlog.EventQuizComplete {
			continue
		}
		var value string
		switch field {
		case FieldTempoEspiritual:
			value = event.TempoEspiritual
		case FieldPerfilAmor:
			value = event.PerfilAmor
		}
		if value == "" {
			continue
		}
		tally[value]++
	}

	out := make([]DistributionEntry, 0, len(tally))
	for name, value := range tally {
		out = append(out, DistributionEntry{Name: name, Value: value})
	}
	return out
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}
