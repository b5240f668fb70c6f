// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring transaction dueness.
// Each frequency (daily, weekly, monthly) has its own strategy that knows how
// far one period advances a baseline date.

package services

import (
	"fmt"
	"time"

	"moneytracker/internal/core"
)

// DuenessStrategy is the strategy interface for computing when a recurring
// template is next due. Each implementation encapsulates one frequency.
type DuenessStrategy interface {
	// NextDue returns the instant one period after baseline.
	NextDue(baseline time.Time) time.Time
}

// DailyStrategy implements DuenessStrategy for daily templates.
type DailyStrategy struct{}

func (DailyStrategy) NextDue(baseline time.Time) time.Time {
	return baseline.AddDate(0, 0, 1)
}

// WeeklyStrategy implements DuenessStrategy for weekly templates.
type WeeklyStrategy struct{}

func (WeeklyStrategy) NextDue(baseline time.Time) time.Time {
	return baseline.AddDate(0, 0, 7)
}

// MonthlyStrategy implements DuenessStrategy for monthly templates. Day
// overflow normalizes forward: Jan 31 advances to Mar 2 (or Mar 3 in a
// non-leap year).
type MonthlyStrategy struct{}

func (MonthlyStrategy) NextDue(baseline time.Time) time.Time {
	return baseline.AddDate(0, 1, 0)
}

// duenessStrategies maps frequencies to their corresponding strategies.
var duenessStrategies = map[core.Frequency]DuenessStrategy{
	core.Daily:   DailyStrategy{},
	core.Weekly:  WeeklyStrategy{},
	core.Monthly: MonthlyStrategy{},
}

// GetDuenessStrategy returns the strategy for a frequency.
// Returns an error if the frequency is not supported.
func GetDuenessStrategy(frequency core.Frequency) (DuenessStrategy, error) {
	strategy, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %q", frequency)
	}
	return strategy, nil
}

// NextDue returns when r is next due: one period after its last
// materialization, or after its start date if it never ran.
func NextDue(r core.RecurringTransaction) (time.Time, error) {
	strategy, err := GetDuenessStrategy(r.Frequency)
	if err != nil {
		return time.Time{}, err
	}
	baseline := r.StartDate
	if r.LastProcessed != nil {
		baseline = *r.LastProcessed
	}
	return strategy.NextDue(baseline), nil
}

// IsDue reports whether r should materialize at now.
func IsDue(r core.RecurringTransaction, now time.Time) (bool, error) {
	next, err := NextDue(r)
	if err != nil {
		return false, err
	}
	return !now.Before(next), nil
}
