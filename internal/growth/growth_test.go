package growth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entwine-app/entwine/internal/models"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func sunflower() *models.Plant {
	return &models.Plant{ID: "sunflower", DurationDays: 7, BaseGrowthRate: 0.14}
}

func plantedGarden(plantedAgo time.Duration) *models.Garden {
	planted := baseTime.Add(-plantedAgo)
	return &models.Garden{
		ID:            "g1",
		UserAID:       1,
		UserBID:       2,
		PlantID:       "sunflower",
		Status:        models.GardenStatusActive,
		BothPlantedAt: &planted,
	}
}

func TestCalculateDailyGrowthBeforePlanting(t *testing.T) {
	g := &models.Garden{Status: models.GardenStatusActive}
	gs := &models.GrowthState{CurrentStage: 1, StageStartedAt: baseTime}

	result := CalculateDailyGrowth(g, gs, sunflower(), 1, baseTime)

	assert.Zero(t, result.NewPercentage)
	assert.Zero(t, result.BaseGrowth)
	assert.Zero(t, result.ActionGrowth)
	assert.False(t, result.StageAdvance)
}

func TestCalculateDailyGrowthFirstDay(t *testing.T) {
	g := plantedGarden(2 * time.Hour)
	gs := &models.GrowthState{CurrentStage: 1, StageStartedAt: baseTime.Add(-2 * time.Hour)}

	result := CalculateDailyGrowth(g, gs, sunflower(), 1, baseTime)

	// One elapsed day at 14%/day, plus 10 care points worth 1.4%.
	assert.InDelta(t, 14.0, result.BaseGrowth, 0.001)
	assert.InDelta(t, 1.4, result.ActionGrowth, 0.001)
	assert.InDelta(t, 15.4, result.NewPercentage, 0.001)
}

func TestCalculateDailyGrowthCapsAtHundred(t *testing.T) {
	g := plantedGarden(10 * 24 * time.Hour)
	gs := &models.GrowthState{
		CurrentStage:     5,
		StageStartedAt:   baseTime.Add(-48 * time.Hour),
		GrowthPercentage: 95,
	}

	result := CalculateDailyGrowth(g, gs, sunflower(), 1, baseTime)

	// Base growth is clamped to the 5% headroom; the action overshoot is
	// absorbed by the final cap.
	assert.InDelta(t, 5.0, result.BaseGrowth, 0.001)
	assert.InDelta(t, 100.0, result.NewPercentage, 0.001)
	assert.False(t, result.StageAdvance)
}

func TestCheckStageAdvance(t *testing.T) {
	started := baseTime.Add(-3 * 24 * time.Hour)

	tests := []struct {
		name       string
		stage      int
		startedAt  time.Time
		percentage float64
		want       bool
	}{
		{"stage one passes both gates", 1, started, 1.5, true},
		{"percentage below threshold", 1, started, 0.5, false},
		{"dwell time too short", 1, baseTime.Add(-24 * time.Hour), 50, false},
		{"stage two needs fifty percent", 2, started, 49, false},
		{"stage two at threshold", 2, started, 50, true},
		{"stage four needs ninety", 4, started, 89.9, false},
		{"terminal stage never advances", 5, started, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := &models.GrowthState{CurrentStage: tt.stage, StageStartedAt: tt.startedAt}
			assert.Equal(t, tt.want, CheckStageAdvance(gs, tt.percentage, baseTime))
		})
	}
}

func TestUpdateStreakFirstSynchronizedDay(t *testing.T) {
	gs := &models.GrowthState{}

	result := UpdateStreak(gs, 2, baseTime)

	assert.Equal(t, 1, result.StreakDays)
	assert.True(t, result.BothParticipated)
	assert.Equal(t, 1, gs.AllTimeMaxStreak)
	require.NotNil(t, gs.LastStreakDay)
	require.NotNil(t, gs.StreakStartedAt)
}

func TestUpdateStreakIdempotentWithinDay(t *testing.T) {
	gs := &models.GrowthState{}

	UpdateStreak(gs, 2, baseTime)
	result := UpdateStreak(gs, 2, baseTime.Add(5*time.Hour))

	assert.Equal(t, 1, result.StreakDays)
	assert.Equal(t, 1, gs.CurrentStreakDays)
}

func TestUpdateStreakConsecutiveDays(t *testing.T) {
	gs := &models.GrowthState{}

	UpdateStreak(gs, 2, baseTime)
	UpdateStreak(gs, 2, baseTime.Add(24*time.Hour))
	result := UpdateStreak(gs, 2, baseTime.Add(48*time.Hour))

	assert.Equal(t, 3, result.StreakDays)
	assert.Equal(t, 3, gs.AllTimeMaxStreak)
}

func TestUpdateStreakResetsAfterMissedDay(t *testing.T) {
	gs := &models.GrowthState{}

	UpdateStreak(gs, 2, baseTime)
	UpdateStreak(gs, 2, baseTime.Add(24*time.Hour))
	// Nobody synchronized on day three; both water again on day four.
	result := UpdateStreak(gs, 2, baseTime.Add(3*24*time.Hour))

	assert.Equal(t, 1, result.StreakDays)
	assert.Equal(t, 2, gs.AllTimeMaxStreak)
}

func TestUpdateStreakSoloWaterKeepsTodayOpen(t *testing.T) {
	gs := &models.GrowthState{}

	UpdateStreak(gs, 2, baseTime)
	// Only one partner has watered so far the next day; the streak holds
	// because the day is not over.
	result := UpdateStreak(gs, 1, baseTime.Add(24*time.Hour))

	assert.Equal(t, 1, result.StreakDays)
	assert.False(t, result.BothParticipated)
}

func TestUpdateStreakSoloAfterGapBreaks(t *testing.T) {
	gs := &models.GrowthState{}

	UpdateStreak(gs, 2, baseTime)
	result := UpdateStreak(gs, 1, baseTime.Add(3*24*time.Hour))

	assert.Equal(t, 0, result.StreakDays)
	assert.Nil(t, gs.StreakStartedAt)
}

func TestHealthStatus(t *testing.T) {
	tests := []struct {
		name        string
		lastCareAgo time.Duration
		want        string
	}{
		{"cared for today", 2 * time.Hour, models.HealthThriving},
		{"one day", 30 * time.Hour, models.HealthHealthy},
		{"two days", 50 * time.Hour, models.HealthDeclining},
		{"three days", 3*24*time.Hour + time.Hour, models.HealthWilting},
		{"six days", 6*24*time.Hour + time.Hour, models.HealthWilting},
		{"seven days", 7 * 24 * time.Hour, models.HealthDead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := baseTime.Add(-tt.lastCareAgo)
			gs := &models.GrowthState{LastCareActionAt: &last}
			assert.Equal(t, tt.want, HealthStatus(gs, baseTime))
		})
	}
}

func TestHealthStatusBloomedStaysHealthy(t *testing.T) {
	last := baseTime.Add(-30 * 24 * time.Hour)
	gs := &models.GrowthState{IsBloomed: true, LastCareActionAt: &last}

	assert.Equal(t, models.HealthHealthy, HealthStatus(gs, baseTime))
}

func TestHealthStatusNeverCared(t *testing.T) {
	assert.Equal(t, models.HealthHealthy, HealthStatus(&models.GrowthState{}, baseTime))
}

func TestAbandonDue(t *testing.T) {
	lastCare := baseTime.Add(-6 * 24 * time.Hour)
	g := plantedGarden(20 * 24 * time.Hour)
	gs := &models.GrowthState{LastCareActionAt: &lastCare}

	assert.False(t, AbandonDue(g, gs, baseTime, DefaultAbandonAfterDays))

	stale := baseTime.Add(-8 * 24 * time.Hour)
	gs.LastCareActionAt = &stale
	assert.True(t, AbandonDue(g, gs, baseTime, DefaultAbandonAfterDays))
}

func TestAbandonDueNeverCaredFallsBackToPlanting(t *testing.T) {
	g := plantedGarden(8 * 24 * time.Hour)
	gs := &models.GrowthState{}

	assert.True(t, AbandonDue(g, gs, baseTime, DefaultAbandonAfterDays))
}

func TestAbandonDueSkipsTerminalGardens(t *testing.T) {
	g := plantedGarden(30 * 24 * time.Hour)
	g.Status = models.GardenStatusBloomed
	gs := &models.GrowthState{IsBloomed: true}

	assert.False(t, AbandonDue(g, gs, baseTime, DefaultAbandonAfterDays))
}

func TestAbandonDueUnplantedGarden(t *testing.T) {
	g := &models.Garden{Status: models.GardenStatusActive}
	gs := &models.GrowthState{}

	assert.False(t, AbandonDue(g, gs, baseTime, DefaultAbandonAfterDays))
}
