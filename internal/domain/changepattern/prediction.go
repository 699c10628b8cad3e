package changepattern

import (
	"sort"
	"time"
)

// Urgency buckets how soon a predicted change should be checked for.
type Urgency int

// Urgency levels, lowest to highest priority.
const (
	UrgencyNone Urgency = iota
	UrgencyLow
	UrgencyMedium
	UrgencyHigh
)

// Prediction is the Content-Change Predictor's output for a single
// (domain, url-pattern): when the next change is expected and how sure it
// is, plus the poll interval a caller should use until then.
type Prediction struct {
	NextExpectedChange time.Time
	Confidence         float64
	RecommendedPollMs  int64
	Urgency            Urgency
	DetectedType       DetectedType
	CalendarTriggered  bool
}

// PredictionAccuracyRecord is one entry in a pattern's bounded accuracy
// history: what was predicted, what actually happened, and how far off it
// was.
type PredictionAccuracyRecord struct {
	PredictedAt            time.Time
	ActualAt               time.Time
	WasAccurate            bool
	ErrorMs                int64
	ConfidenceAtPrediction float64
}

// maxAccuracyRecords bounds the accuracy history the same way Observations
// and ChangeTimestamps are bounded.
const maxAccuracyRecords = 100

// accuracyDecay shrinks confidence when a prediction misses, so a pattern
// that stops holding loses influence gradually rather than flapping between
// fully trusted and discarded.
const accuracyDecay = 0.85

// recordAccuracy folds a hit/miss outcome into confidence: a hit nudges it
// toward 1, a miss multiplies it down by accuracyDecay.
func recordAccuracy(confidence float64, hit bool) float64 {
	if hit {
		return confidence + (1-confidence)*0.15
	}
	return confidence * accuracyDecay
}

// urgencyInputs bundles what urgencyFor needs to apply the four-level
// table, since it depends on the detected type, the statistical prediction
// window, and any independently-qualifying calendar trigger.
type urgencyInputs struct {
	detected              DetectedType
	now                   time.Time
	nextExpected          time.Time
	earlyCheckWindowHours float64
	hasCalendarTrigger    bool
	calendarConfidence    float64
	calendarLeadDays      int
	calendarNext          time.Time
}

// urgencyFor implements the documented 0-3 urgency table. A qualifying
// calendar trigger (confidence >= 0.7, within its lead window) always wins
// at 3/critical, even over a static classification — an annually recurring
// date is exactly the case a flat static poll interval would otherwise
// miss. Absent that, static content is 0, proximity to the statistical
// prediction window is 2, and anything else with a live pattern is 1.
func urgencyFor(in urgencyInputs) Urgency {
	if in.hasCalendarTrigger && in.calendarConfidence >= 0.7 {
		leadDays := in.calendarLeadDays
		if leadDays <= 0 {
			leadDays = 3
		}
		if !in.calendarNext.After(in.now.AddDate(0, 0, leadDays)) {
			return UrgencyHigh
		}
	}

	if in.detected == DetectedStatic {
		return UrgencyNone
	}

	if !in.nextExpected.IsZero() {
		lead := time.Duration(in.earlyCheckWindowHours * float64(time.Hour))
		if !in.nextExpected.After(in.now.Add(lead)) {
			return UrgencyMedium
		}
	}

	return UrgencyLow
}

// averageIntervalMs is avg_interval from the poll-interval formula: the mean
// gap between the earliest and latest recorded change, spread across every
// interval between them.
func averageIntervalMs(changeTimestamps []time.Time) float64 {
	if len(changeTimestamps) < 2 {
		return 0
	}
	sorted := append([]time.Time(nil), changeTimestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	span := sorted[len(sorted)-1].Sub(sorted[0])
	return float64(span.Milliseconds()) / float64(len(sorted)-1)
}

// pollIntervalFor implements the documented recommended-poll-interval
// formula: static content polls at the ceiling; everything else starts at
// 0.8 * avg_interval, is dampened further by low confidence and by
// irregularity, and is clamped to [minMs, maxMs].
func pollIntervalFor(detected DetectedType, changeTimestamps []time.Time, confidence float64, minMs, maxMs int64) int64 {
	if detected == DetectedStatic {
		return maxMs
	}

	base := 0.8 * averageIntervalMs(changeTimestamps)
	if base <= 0 {
		base = float64(maxMs)
	}

	switch {
	case confidence < 0.5:
		base *= 0.5
	case confidence < 0.7:
		base *= 0.7
	}
	if detected == DetectedIrregular {
		base *= 0.6
	}

	pollMs := int64(base)
	if pollMs < minMs {
		pollMs = minMs
	}
	if pollMs > maxMs {
		pollMs = maxMs
	}
	return pollMs
}
