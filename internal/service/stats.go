package service

import (
	"context"
	"math"
	"time"

	"github.com/naplog/sleep-server-go/internal/config"
	apperrors "github.com/naplog/sleep-server-go/internal/errors"
	"github.com/naplog/sleep-server-go/internal/repository"
)

const utcDateFormat = "2006-01-02"

type TodayStats struct {
	WokeUp          *time.Time `json:"woke_up"`
	Naps            int        `json:"naps"`
	DaySleepMinutes int        `json:"day_sleep_minutes"`
	AwakeMinutes    int        `json:"awake_minutes"`
}

type WeeklyDay struct {
	Date         string `json:"date"`
	TotalMinutes int    `json:"total_minutes"`
	NightMinutes int    `json:"night_minutes"`
	DayMinutes   int    `json:"day_minutes"`
	Naps         int    `json:"naps"`
}

type WeeklyAverages struct {
	TotalMinutes int     `json:"total_minutes"`
	NightMinutes int     `json:"night_minutes"`
	DayMinutes   int     `json:"day_minutes"`
	Naps         float64 `json:"naps"`
}

type WeeklyStats struct {
	Days     []WeeklyDay    `json:"days"`
	Averages WeeklyAverages `json:"averages"`
}

type OverallTotals struct {
	SessionCount   int `json:"session_count"`
	TotalMinutes   int `json:"total_minutes"`
	AverageMinutes int `json:"average_minutes"`
	MaxMinutes     int `json:"max_minutes"`
}

type DailyStat struct {
	Date         string `json:"date"`
	SessionCount int    `json:"session_count"`
	TotalMinutes int    `json:"total_minutes"`
}

type HourlyStat struct {
	Hour           int `json:"hour"`
	SessionCount   int `json:"session_count"`
	AverageMinutes int `json:"average_minutes"`
}

type OverallStats struct {
	Overall OverallTotals `json:"overall"`
	Daily   []DailyStat   `json:"daily"`
	Hourly  []HourlyStat  `json:"hourly"`
}

// StatsService derives the read-side views from completed sessions. All
// computation is total: empty input yields zeroed results.
type StatsService struct {
	sessions       repository.SessionRepository
	nightStartHour int
	now            func() time.Time
}

func NewStatsService(sessions repository.SessionRepository, nightStartHour int) *StatsService {
	return &StatsService{
		sessions:       sessions,
		nightStartHour: nightStartHour,
		now:            time.Now,
	}
}

// Today anchors the day to the most recent wake-up inside the morning window
// on the current UTC date. Without such a wake-up the view is all zeroes with
// a null woke_up; "no morning yet" and "no data" are indistinguishable.
func (s *StatsService) Today(ctx context.Context) (*TodayStats, error) {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	windowStart := midnight.Add(config.WakeWindowStartHour * time.Hour)
	windowEnd := midnight.Add(config.WakeWindowEndHour * time.Hour)

	wake, err := s.sessions.LatestWakeUpBetween(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if wake == nil {
		return &TodayStats{}, nil
	}

	wokeUp := *wake.EndTime
	naps, err := s.sessions.CompletedStartedAfter(ctx, wokeUp)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	daySleep := 0
	for _, nap := range naps {
		if nap.DurationMinutes != nil {
			daySleep += *nap.DurationMinutes
		}
	}

	// A nap in progress or clock skew must never yield a negative value.
	awake := int(now.Sub(wokeUp).Minutes()) - daySleep
	if awake < 0 {
		awake = 0
	}

	return &TodayStats{
		WokeUp:          &wokeUp,
		Naps:            len(naps),
		DaySleepMinutes: daySleep,
		AwakeMinutes:    awake,
	}, nil
}

// isNightStart reports whether a session starting at this UTC hour belongs
// to the night bucket: from the configured night start hour through the
// small hours before morning. Everything else is a daytime nap.
func isNightStart(hour, nightStartHour int) bool {
	return hour >= nightStartHour || hour < config.MorningHour
}

// Weekly reports per-day night/day totals for the last 7 UTC calendar days
// plus averages over the days that have any record (never dividing by zero).
// A session's entire duration lands in its start date's bucket, even when it
// crosses midnight.
func (s *StatsService) Weekly(ctx context.Context) (*WeeklyStats, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -6)

	sessions, err := s.sessions.CompletedSince(ctx, since)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	byDate := make(map[string]*WeeklyDay)
	for _, session := range sessions {
		start := session.StartTime.UTC()
		date := start.Format(utcDateFormat)
		day, ok := byDate[date]
		if !ok {
			day = &WeeklyDay{Date: date}
			byDate[date] = day
		}

		minutes := 0
		if session.DurationMinutes != nil {
			minutes = *session.DurationMinutes
		}
		if isNightStart(start.Hour(), s.nightStartHour) {
			day.NightMinutes += minutes
		} else {
			day.DayMinutes += minutes
			day.Naps++
		}
		day.TotalMinutes += minutes
	}

	days := make([]WeeklyDay, 0, 7)
	var sumTotal, sumNight, sumDay, sumNaps int
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		date := d.Format(utcDateFormat)
		day := WeeklyDay{Date: date}
		if bucketed, ok := byDate[date]; ok {
			day = *bucketed
		}
		days = append(days, day)
		sumTotal += day.TotalMinutes
		sumNight += day.NightMinutes
		sumDay += day.DayMinutes
		sumNaps += day.Naps
	}

	daysWithData := len(byDate)
	if daysWithData < 1 {
		daysWithData = 1
	}
	n := float64(daysWithData)

	return &WeeklyStats{
		Days: days,
		Averages: WeeklyAverages{
			TotalMinutes: roundMinutes(float64(sumTotal) / n),
			NightMinutes: roundMinutes(float64(sumNight) / n),
			DayMinutes:   roundMinutes(float64(sumDay) / n),
			Naps:         roundTenth(float64(sumNaps) / n),
		},
	}, nil
}

// Overall aggregates an optional date-filtered range, plus a trailing-30-day
// daily breakdown and a start-hour distribution. Float aggregates are rounded
// at this boundary, not during accumulation.
func (s *StatsService) Overall(ctx context.Context, from, to *time.Time) (*OverallStats, error) {
	row, err := s.sessions.Overall(ctx, from, to)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dailyRows, err := s.sessions.DailyTotals(ctx, today.AddDate(0, 0, -29))
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	hourlyRows, err := s.sessions.HourlyDistribution(ctx, from, to)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	daily := make([]DailyStat, 0, len(dailyRows))
	for _, r := range dailyRows {
		daily = append(daily, DailyStat{
			Date:         r.Date,
			SessionCount: r.SessionCount,
			TotalMinutes: r.TotalMinutes,
		})
	}

	hourly := make([]HourlyStat, 0, len(hourlyRows))
	for _, r := range hourlyRows {
		hourly = append(hourly, HourlyStat{
			Hour:           r.Hour,
			SessionCount:   r.SessionCount,
			AverageMinutes: roundMinutes(r.AvgMinutes),
		})
	}

	return &OverallStats{
		Overall: OverallTotals{
			SessionCount:   row.SessionCount,
			TotalMinutes:   row.TotalMinutes,
			AverageMinutes: roundMinutes(row.AvgMinutes),
			MaxMinutes:     row.MaxMinutes,
		},
		Daily:  daily,
		Hourly: hourly,
	}, nil
}

func roundMinutes(v float64) int {
	return int(math.Round(v))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
