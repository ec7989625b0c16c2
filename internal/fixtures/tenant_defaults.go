// Package fixtures holds the default configuration seeded for a new tenant.
package fixtures

import (
	"github.com/assyin/pointaflex-26-sub002/internal/domain/schedule"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/shopspring/decimal"
)

// DefaultSettings returns the baseline tenant configuration. Every knob can
// be overridden per tenant afterwards; detection and the ledgers read the
// stored values, never these constants.
func DefaultSettings() tenant.Settings {
	return tenant.Settings{
		DetectionWindowMinutes:       60,
		LateToleranceMinutes:         15,
		LateNotifyThresholdMinutes:   30,
		AbsenceBufferMinutes:         60,
		AbsenceStartToleranceMinutes: 30,
		PartialLookbackHours:         4,

		AutoCloseOvertimeBufferMinutes: 30,

		MinOvertimeMinutes:      15,
		WeeklyOvertimeCapHours:  decimal.NewFromInt(10),
		MonthlyOvertimeCapHours: decimal.NewFromInt(30),
		AutoApproveMaxHours:     decimal.NewFromInt(2),
		NightWindowStart:        "21:00",
		NightWindowEnd:          "06:00",

		ConversionRate:    decimal.NewFromInt(1),
		DailyWorkingHours: decimal.NewFromInt(8),

		DefaultCloseTime: "18:00",
	}
}

// GetDefaultShifts returns the standard shift catalog for a new tenant.
func GetDefaultShifts(tenantID string) []schedule.Shift {
	return []schedule.Shift{
		{TenantID: tenantID, Name: "Day", StartTime: "08:00", EndTime: "17:00"},
		{TenantID: tenantID, Name: "Evening", StartTime: "14:00", EndTime: "22:00"},
		{TenantID: tenantID, Name: "Night", StartTime: "22:00", EndTime: "06:00", IsNightShift: true},
	}
}
