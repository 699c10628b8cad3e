package changepattern

import (
	"math"
	"testing"
	"time"
)

func TestUpdateCalendarTriggers_GroupsByMonthAndDay(t *testing.T) {
	var triggers []CalendarTrigger
	triggers = updateCalendarTriggers(triggers, atUTC(2026, 1, 1, 9, 0))
	triggers = updateCalendarTriggers(triggers, atUTC(2026, 2, 1, 9, 0))
	triggers = updateCalendarTriggers(triggers, atUTC(2027, 1, 1, 9, 0))

	if len(triggers) != 2 {
		t.Fatalf("len(triggers) = %d, want 2 (Jan 1 and Feb 1 must not merge)", len(triggers))
	}
	for _, trig := range triggers {
		if trig.Month == time.January && trig.DayOfMonth == 1 {
			if trig.ObservedCount != 2 {
				t.Errorf("Jan 1 ObservedCount = %d, want 2", trig.ObservedCount)
			}
			if len(trig.Years) != 2 {
				t.Errorf("Jan 1 Years = %v, want 2 distinct years", trig.Years)
			}
		}
		if trig.Month == time.February && trig.DayOfMonth == 1 && trig.ObservedCount != 1 {
			t.Errorf("Feb 1 ObservedCount = %d, want 1", trig.ObservedCount)
		}
	}
}

func TestUpdateCalendarTriggers_ConfidenceGrowsWithDistinctYears(t *testing.T) {
	var triggers []CalendarTrigger
	triggers = updateCalendarTriggers(triggers, atUTC(2024, 1, 1, 9, 0))
	triggers = updateCalendarTriggers(triggers, atUTC(2025, 1, 1, 9, 0))
	triggers = updateCalendarTriggers(triggers, atUTC(2026, 1, 1, 9, 0))

	want := 0.5 + 0.15*3
	if math.Abs(triggers[0].Confidence-want) > 1e-9 {
		t.Errorf("Confidence = %v, want %v", triggers[0].Confidence, want)
	}
}

func TestUpdateCalendarTriggers_ConfidenceCapsAt095(t *testing.T) {
	var triggers []CalendarTrigger
	for year := 2020; year < 2030; year++ {
		triggers = updateCalendarTriggers(triggers, atUTC(year, 1, 1, 9, 0))
	}
	if triggers[0].Confidence != 0.95 {
		t.Errorf("Confidence = %v, want capped at 0.95", triggers[0].Confidence)
	}
}

func TestEligibleCalendarTrigger_RequiresMinDistinctYears(t *testing.T) {
	triggers := []CalendarTrigger{
		{Month: time.January, DayOfMonth: 1, ObservedCount: 3, Years: []int{2026}},
		{Month: time.January, DayOfMonth: 15, ObservedCount: 3, Years: []int{2024, 2025, 2026}, LastObservedAt: atUTC(2026, 1, 15, 0, 0)},
	}
	got, ok := eligibleCalendarTrigger(triggers, 2)
	if !ok || got.DayOfMonth != 15 {
		t.Errorf("eligibleCalendarTrigger() = (%+v, %v), want day 15", got, ok)
	}
}

func TestNextCalendarOccurrence_ClampsShortMonth(t *testing.T) {
	trig := CalendarTrigger{Month: time.February, DayOfMonth: 31}
	next := nextCalendarOccurrence(atUTC(2026, 2, 1, 0, 0), trig)
	if next.Month() != time.February || next.Day() != 28 {
		t.Errorf("nextCalendarOccurrence() = %v, want Feb 28 2026", next)
	}
}

func TestNextCalendarOccurrence_RollsToNextYearWhenPassed(t *testing.T) {
	trig := CalendarTrigger{Month: time.January, DayOfMonth: 5}
	next := nextCalendarOccurrence(atUTC(2026, 1, 10, 0, 0), trig)
	if next.Year() != 2027 || next.Month() != time.January || next.Day() != 5 {
		t.Errorf("nextCalendarOccurrence() = %v, want Jan 5 2027 (annual recurrence, not next month)", next)
	}
}
