package model

// OverallRow is the ungrouped aggregate over completed sessions. Averages
// stay unrounded here; rounding happens at the response boundary.
type OverallRow struct {
	SessionCount int     `db:"session_count"`
	TotalMinutes int     `db:"total_minutes"`
	AvgMinutes   float64 `db:"avg_minutes"`
	MaxMinutes   int     `db:"max_minutes"`
}

// DailyRow is one day's session count and total minutes.
type DailyRow struct {
	Date         string `db:"day"`
	SessionCount int    `db:"session_count"`
	TotalMinutes int    `db:"total_minutes"`
}

// HourlyRow is the per-start-hour distribution of completed sessions.
type HourlyRow struct {
	Hour         int     `db:"hour"`
	SessionCount int     `db:"session_count"`
	AvgMinutes   float64 `db:"avg_minutes"`
}
