// Package notify decides whether a prediction becomes a user notification
// and constructs the notification documents. The decision functions are
// pure; the Service wraps them with preference lookup and best-effort
// persistence.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"florai-occurrence/internal/common"
	"florai-occurrence/internal/features"
	"florai-occurrence/internal/ml"
)

// Preference is a user's stored notification preference document. Fields
// are pointers because an absent field means "enabled", same as an absent
// document.
type Preference struct {
	EnableAiAlerts *bool  `json:"enableAiAlerts,omitempty"`
	ChannelInApp   *bool  `json:"channelInApp,omitempty"`
	MinSeverity    string `json:"minSeverity,omitempty"`
}

func (p *Preference) aiAlertsEnabled() bool {
	return p == nil || p.EnableAiAlerts == nil || *p.EnableAiAlerts
}

func (p *Preference) inAppEnabled() bool {
	return p == nil || p.ChannelInApp == nil || *p.ChannelInApp
}

func (p *Preference) minSeverity() string {
	if p == nil {
		return "low"
	}
	switch s := strings.ToLower(p.MinSeverity); s {
	case "medium", "high":
		return s
	}
	return "low"
}

// Notification is the document written to the notifications collection.
type Notification struct {
	UserID         string `json:"userID"`
	NotificationID string `json:"notificationID"`
	Type           string `json:"type"`
	Source         string `json:"source"`
	Severity       string `json:"severity"`
	Title          string `json:"title"`
	Description    string `json:"description"`

	CreatedAt            time.Time `json:"createdAt"`
	Read                 bool      `json:"read"`
	ReceiveNotifications bool      `json:"receiveNotifications"`

	PredictionID        string  `json:"predictionID,omitempty"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	PredictedLikelihood string  `json:"predictedLikelihood,omitempty"`
	Confidence          float64 `json:"confidence,omitempty"`
	Temperature         float64 `json:"temperature,omitempty"`
	Precipitation       float64 `json:"precipitation,omitempty"`

	TotalPoints     int `json:"totalPoints,omitempty"`
	HighRiskCount   int `json:"highRiskCount,omitempty"`
	MediumRiskCount int `json:"mediumRiskCount,omitempty"`
	LowRiskCount    int `json:"lowRiskCount,omitempty"`

	ModelType    string `json:"modelType"`
	ModelVersion string `json:"modelVersion"`
}

// Alert carries the prediction context a notification embeds.
type Alert struct {
	PredictionID string
	UserID       string
	Obs          features.Observation
	Result       ml.Result
}

// Decide applies the suppression ladder and, when the alert passes,
// constructs the notification record. Pure: no side effects, no I/O.
//
// Suppression, in order: anonymous predictions never notify; disabled AI
// alerts or in-app channel suppress everything; minSeverity=high passes
// only High, minSeverity=medium suppresses Low.
func Decide(a Alert, prefs *Preference) (Notification, bool) {
	if a.UserID == "" {
		return Notification{}, false
	}
	if !prefs.aiAlertsEnabled() || !prefs.inAppEnabled() {
		return Notification{}, false
	}
	switch prefs.minSeverity() {
	case "high":
		if a.Result.Label != common.High {
			return Notification{}, false
		}
	case "medium":
		if a.Result.Label == common.Low {
			return Notification{}, false
		}
	}

	return Notification{
		UserID:               a.UserID,
		NotificationID:       uuid.NewString(),
		Type:                 "ai_prediction_alert",
		Source:               "ai_model_prediction",
		Severity:             a.Result.Label.Severity(),
		Title:                fmt.Sprintf("AI Prediction: %s Risk", a.Result.Label),
		Description:          describe(a.Result),
		CreatedAt:            time.Now().UTC(),
		Read:                 false,
		ReceiveNotifications: true,
		PredictionID:         a.PredictionID,
		Latitude:             a.Obs.Latitude,
		Longitude:            a.Obs.Longitude,
		PredictedLikelihood:  a.Result.Label.String(),
		Confidence:           a.Result.Confidence,
		Temperature:          (a.Obs.TemperatureMax + a.Obs.TemperatureMin) / 2,
		Precipitation:        a.Obs.Precipitation,
		ModelType:            common.ModelType,
		ModelVersion:         common.ModelVersion,
	}, true
}

func describe(r ml.Result) string {
	pct := r.Confidence * 100
	switch r.Label {
	case common.High:
		return fmt.Sprintf("High risk (%.0f%% confidence) of invasive species occurrence detected at your selected location.", pct)
	case common.Medium:
		return fmt.Sprintf("Medium risk (%.0f%% confidence) of invasive species occurrence detected at your selected location.", pct)
	}
	return fmt.Sprintf("Low risk (%.0f%% confidence) of invasive species occurrence at your selected location.", pct)
}

// ClassCounts aggregates grid-analysis predictions per class.
type ClassCounts struct {
	Low    int
	Medium int
	High   int
}

func (c ClassCounts) total() int { return c.Low + c.Medium + c.High }

// OverallSeverity picks the grid severity by threshold: High when high
// predictions exceed 40% of the grid, Medium when medium+high exceed 50%,
// Low otherwise.
func (c ClassCounts) OverallSeverity() common.Likelihood {
	total := c.total()
	if total == 0 {
		return common.Low
	}
	if float64(c.High) > float64(total)*0.4 {
		return common.High
	}
	if float64(c.Medium+c.High) > float64(total)*0.5 {
		return common.Medium
	}
	return common.Low
}

// BatchSummary constructs the aggregate notification for a grid analysis.
// Anonymous analyses never notify.
func BatchSummary(userID string, counts ClassCounts, centerLat, centerLon float64) (Notification, bool) {
	if userID == "" || counts.total() == 0 {
		return Notification{}, false
	}

	severity := counts.OverallSeverity()
	var description string
	switch severity {
	case common.High:
		description = fmt.Sprintf("Area analysis complete: %d/%d grid points show HIGH risk.", counts.High, counts.total())
	case common.Medium:
		description = fmt.Sprintf("Area analysis complete: %d high, %d medium risk points detected.", counts.High, counts.Medium)
	default:
		description = fmt.Sprintf("Area analysis complete: mostly low risk detected (%d/%d points).", counts.Low, counts.total())
	}

	return Notification{
		UserID:               userID,
		NotificationID:       uuid.NewString(),
		Type:                 "ai_batch_analysis",
		Source:               "ai_grid_prediction",
		Severity:             severity.Severity(),
		Title:                "AI Area Analysis Complete",
		Description:          description,
		CreatedAt:            time.Now().UTC(),
		Read:                 false,
		ReceiveNotifications: true,
		Latitude:             centerLat,
		Longitude:            centerLon,
		TotalPoints:          counts.total(),
		HighRiskCount:        counts.High,
		MediumRiskCount:      counts.Medium,
		LowRiskCount:         counts.Low,
		ModelType:            common.ModelType,
		ModelVersion:         common.ModelVersion,
	}, true
}
