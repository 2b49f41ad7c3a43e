package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"florai-occurrence/internal/common"
	"florai-occurrence/internal/features"
	"florai-occurrence/internal/ml"
	"florai-occurrence/internal/storage"
)

func boolPtr(b bool) *bool { return &b }

func resultWith(label common.Likelihood, confidence float64) ml.Result {
	r := ml.Result{Label: label, Confidence: confidence}
	r.Probabilities[int(label)] = confidence
	return r
}

func alertWith(userID string, label common.Likelihood) Alert {
	return Alert{
		PredictionID: "pred-1",
		UserID:       userID,
		Obs: features.Observation{Latitude: 14.6, Longitude: 121.0,
			TemperatureMax: 32, TemperatureMin: 24, Precipitation: 15},
		Result: resultWith(label, 0.85),
	}
}

func TestDecide_SuppressionLadder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		userID   string
		prefs    *Preference
		label    common.Likelihood
		wantSend bool
	}{
		{"anonymous never notifies", "", nil, common.High, false},
		{"no stored prefs is permissive", "u1", nil, common.Low, true},
		{"ai alerts disabled", "u1", &Preference{EnableAiAlerts: boolPtr(false)}, common.High, false},
		{"in-app disabled", "u1", &Preference{ChannelInApp: boolPtr(false)}, common.High, false},
		{"minSeverity high blocks medium", "u1", &Preference{MinSeverity: "high"}, common.Medium, false},
		{"minSeverity high blocks low", "u1", &Preference{MinSeverity: "high"}, common.Low, false},
		{"minSeverity high passes high", "u1", &Preference{MinSeverity: "high"}, common.High, true},
		{"minSeverity medium blocks low", "u1", &Preference{MinSeverity: "medium"}, common.Low, false},
		{"minSeverity medium passes medium", "u1", &Preference{MinSeverity: "medium"}, common.Medium, true},
		{"minSeverity low passes low", "u1", &Preference{MinSeverity: "low"}, common.Low, true},
		{"unknown minSeverity treated as low", "u1", &Preference{MinSeverity: "whatever"}, common.Low, true},
		{"minSeverity case-insensitive", "u1", &Preference{MinSeverity: "HIGH"}, common.Medium, false},
		{"empty preference doc is permissive", "u1", &Preference{}, common.Low, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := Decide(alertWith(tt.userID, tt.label), tt.prefs)
			assert.Equal(t, tt.wantSend, ok)
			if ok {
				assert.Equal(t, tt.label.Severity(), n.Severity)
			}
		})
	}
}

func TestDecide_RecordContents(t *testing.T) {
	t.Parallel()

	n, ok := Decide(alertWith("u1", common.High), nil)
	require.True(t, ok)

	assert.Equal(t, "u1", n.UserID)
	assert.NotEmpty(t, n.NotificationID)
	assert.Equal(t, "ai_prediction_alert", n.Type)
	assert.Equal(t, "high", n.Severity)
	assert.Equal(t, "AI Prediction: High Risk", n.Title)
	assert.Contains(t, n.Description, "85% confidence")
	assert.Equal(t, "pred-1", n.PredictionID)
	assert.Equal(t, 14.6, n.Latitude)
	assert.Equal(t, 28.0, n.Temperature)
	assert.False(t, n.Read)
	assert.Equal(t, common.ModelType, n.ModelType)
}

func TestDecide_DescriptionPerSeverity(t *testing.T) {
	t.Parallel()

	for label, want := range map[common.Likelihood]string{
		common.High:   "High risk",
		common.Medium: "Medium risk",
		common.Low:    "Low risk",
	} {
		n, ok := Decide(alertWith("u1", label), nil)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(n.Description, want), "description %q should start with %q", n.Description, want)
	}
}

func TestOverallSeverity_Thresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		counts ClassCounts
		want   common.Likelihood
	}{
		{"high above 40 percent", ClassCounts{Low: 5, Medium: 0, High: 5}, common.High},
		{"high exactly 40 percent is not high", ClassCounts{Low: 4, Medium: 2, High: 4}, common.Medium},
		{"medium plus high above half", ClassCounts{Low: 4, Medium: 6, High: 0}, common.Medium},
		{"medium plus high exactly half", ClassCounts{Low: 5, Medium: 5, High: 0}, common.Low},
		{"mostly low", ClassCounts{Low: 9, Medium: 1, High: 0}, common.Low},
		{"empty grid", ClassCounts{}, common.Low},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.counts.OverallSeverity())
		})
	}
}

func TestBatchSummary(t *testing.T) {
	t.Parallel()

	counts := ClassCounts{Low: 2, Medium: 3, High: 5}
	n, ok := BatchSummary("u1", counts, 14.6, 121.0)
	require.True(t, ok)
	assert.Equal(t, "ai_batch_analysis", n.Type)
	assert.Equal(t, "high", n.Severity)
	assert.Equal(t, 10, n.TotalPoints)
	assert.Equal(t, 5, n.HighRiskCount)
	assert.Contains(t, n.Description, "5/10")

	_, ok = BatchSummary("", counts, 0, 0)
	assert.False(t, ok, "anonymous grid analyses never notify")
	_, ok = BatchSummary("u1", ClassCounts{}, 0, 0)
	assert.False(t, ok, "empty grids never notify")
}

type notifyMetrics struct {
	created, suppressed, writeFailures int
}

func (m *notifyMetrics) NotificationsCreatedInc()    { m.created++ }
func (m *notifyMetrics) NotificationsSuppressedInc() { m.suppressed++ }
func (m *notifyMetrics) RecordWriteFailuresInc()     { m.writeFailures++ }

func TestService_CreateAlert(t *testing.T) {
	t.Parallel()

	store := storage.NewMemStore()
	metrics := &notifyMetrics{}
	svc := NewService(store, metrics)
	ctx := context.Background()

	// Stored preference gating: minSeverity=high user sees High but not Medium.
	require.NoError(t, store.Put(ctx, storage.CollectionPreferences, "picky", Preference{MinSeverity: "high"}))

	_, ok := svc.CreateAlert(ctx, alertWith("picky", common.Medium))
	assert.False(t, ok)
	assert.Equal(t, 1, metrics.suppressed)
	assert.Equal(t, 0, store.Count(storage.CollectionNotifications))

	id, ok := svc.CreateAlert(ctx, alertWith("picky", common.High))
	require.True(t, ok)
	assert.Equal(t, 1, metrics.created)

	var stored Notification
	found, err := store.Get(ctx, storage.CollectionNotifications, id, &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "high", stored.Severity)
}

func TestService_WriteFailureIsBestEffort(t *testing.T) {
	t.Parallel()

	store := storage.NewMemStore()
	store.FailPuts(true)
	metrics := &notifyMetrics{}
	svc := NewService(store, metrics)

	id, ok := svc.CreateAlert(context.Background(), alertWith("u1", common.High))
	assert.False(t, ok, "failed write yields no notification, not a panic or error")
	assert.Empty(t, id)
	assert.Equal(t, 1, metrics.writeFailures)
}
