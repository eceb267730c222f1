// Package growth holds the pure calculation core of the shared-garden
// mechanic: daily growth, stage advancement, streaks, health and abandonment.
// Every function takes an explicit clock value and mutates nothing but the
// in-memory state it is handed, so the math is testable without a database.
package growth

import (
	"time"

	"github.com/entwine-app/entwine/internal/models"
)

// PointsPerWater is earned by each water action.
const PointsPerWater = 10

// DefaultAbandonAfterDays is the inactivity window before auto-abandon.
const DefaultAbandonAfterDays = 7

// MaxStage is the terminal growth stage.
const MaxStage = 5

// stageAdvanceThreshold is the growth percentage gate per current stage.
// Stage 5 never advances.
var stageAdvanceThreshold = map[int]float64{
	1: 1,
	2: 50,
	3: 70,
	4: 90,
}

// minDaysInStage is the dwell-time gate per current stage.
var minDaysInStage = map[int]int{
	1: 2,
	2: 3,
	3: 3,
	4: 3,
	5: 1,
}

// Result is the outcome of one daily-growth recomputation.
type Result struct {
	NewPercentage float64
	BaseGrowth    float64
	ActionGrowth  float64
	StageAdvance  bool
}

// StreakResult reports the streak state after an update.
type StreakResult struct {
	StreakDays       int
	BothParticipated bool
}

// CalculateDailyGrowth recomputes growth for a garden given the acting
// user's water-action count for the current UTC day. Base growth accrues as
// if continuous since planting, capped at the remaining headroom to 100%.
func CalculateDailyGrowth(g *models.Garden, gs *models.GrowthState, p *models.Plant, todayActions int, now time.Time) Result {
	if g.BothPlantedAt == nil {
		return Result{}
	}

	daysElapsed := wholeDays(*g.BothPlantedAt, now) + 1
	baseGrowth := p.BaseGrowthRate * float64(daysElapsed) * 100
	if headroom := 100 - gs.GrowthPercentage; baseGrowth > headroom {
		baseGrowth = headroom
	}

	points := float64(todayActions * PointsPerWater)
	actionGrowth := (points / 100) * (p.BaseGrowthRate * 100)

	newPercentage := gs.GrowthPercentage + baseGrowth + actionGrowth
	if newPercentage > 100 {
		newPercentage = 100
	}

	return Result{
		NewPercentage: newPercentage,
		BaseGrowth:    baseGrowth,
		ActionGrowth:  actionGrowth,
		StageAdvance:  CheckStageAdvance(gs, newPercentage, now),
	}
}

// CheckStageAdvance reports whether the plant may enter the next stage. Both
// the percentage gate and the minimum dwell time must hold.
func CheckStageAdvance(gs *models.GrowthState, newPercentage float64, now time.Time) bool {
	if gs.CurrentStage >= MaxStage {
		return false
	}

	threshold, ok := stageAdvanceThreshold[gs.CurrentStage]
	if !ok {
		return false
	}

	daysInStage := wholeDays(gs.StageStartedAt, now)
	return newPercentage >= threshold && daysInStage >= minDaysInStage[gs.CurrentStage]
}

// UpdateStreak applies today's participation to the streak counters.
// The streak increments at most once per UTC day, and only on the day both
// participants watered; a full calendar day without synchronization resets it
// to zero. Mutates gs; the caller persists.
func UpdateStreak(gs *models.GrowthState, distinctWaterersToday int, now time.Time) StreakResult {
	bothWatered := distinctWaterersToday >= 2

	if gs.LastStreakDay != nil && daysBetween(*gs.LastStreakDay, now) == 0 {
		// Already counted today.
		return StreakResult{StreakDays: gs.CurrentStreakDays, BothParticipated: bothWatered}
	}

	if bothWatered {
		if gs.LastStreakDay == nil || daysBetween(*gs.LastStreakDay, now) > 1 {
			// Chain broken before today, or first synchronized day.
			gs.CurrentStreakDays = 0
		}
		if gs.CurrentStreakDays == 0 {
			started := now
			gs.StreakStartedAt = &started
		}
		gs.CurrentStreakDays++
		day := now
		gs.LastStreakDay = &day
		if gs.CurrentStreakDays > gs.AllTimeMaxStreak {
			gs.AllTimeMaxStreak = gs.CurrentStreakDays
		}
		return StreakResult{StreakDays: gs.CurrentStreakDays, BothParticipated: true}
	}

	// Not synchronized today. The streak only breaks once a whole calendar
	// day has passed without both watering; today is still in progress.
	if gs.CurrentStreakDays > 0 && (gs.LastStreakDay == nil || daysBetween(*gs.LastStreakDay, now) > 1) {
		gs.CurrentStreakDays = 0
		gs.StreakStartedAt = nil
	}
	return StreakResult{StreakDays: gs.CurrentStreakDays, BothParticipated: false}
}

// HealthStatus derives plant health from elapsed time since the last care
// action. Bloomed gardens stay healthy.
func HealthStatus(gs *models.GrowthState, now time.Time) string {
	if gs.IsBloomed {
		return models.HealthHealthy
	}
	if gs.LastCareActionAt == nil {
		return models.HealthHealthy
	}

	daysInactive := wholeDays(*gs.LastCareActionAt, now)
	switch {
	case daysInactive >= 7:
		return models.HealthDead
	case daysInactive >= 3:
		return models.HealthWilting
	case daysInactive >= 2:
		return models.HealthDeclining
	case daysInactive >= 1:
		return models.HealthHealthy
	default:
		return models.HealthThriving
	}
}

// AbandonDue reports whether the garden crossed the inactivity threshold.
// Terminal gardens are never abandoned again; the caller owns the status
// transition and its persistence.
func AbandonDue(g *models.Garden, gs *models.GrowthState, now time.Time, thresholdDays int) bool {
	if g.Terminal() {
		return false
	}

	var daysInactive int
	switch {
	case gs.LastCareActionAt != nil:
		daysInactive = wholeDays(*gs.LastCareActionAt, now)
	case g.BothPlantedAt != nil:
		daysInactive = wholeDays(*g.BothPlantedAt, now)
	default:
		daysInactive = 0
	}

	return daysInactive >= thresholdDays
}

// wholeDays counts full 24h periods between from and now.
func wholeDays(from, now time.Time) int {
	d := now.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// daysBetween counts UTC calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start) / (24 * time.Hour))
}

// SameUTCDay reports whether two instants fall on the same UTC calendar day.
func SameUTCDay(a, b time.Time) bool {
	return daysBetween(a, b) == 0
}
