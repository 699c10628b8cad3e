package changepattern

import "time"

// Config bundles the Content-Change Predictor's tunables, mirrored from
// config.PredictorConfig so this package never imports the config package.
type Config struct {
	MinChangesForPattern       int
	MinObservationsForPattern  int
	MaxObservationsToKeep      int
	MaxChangeTimestamps        int
	TimeOfDayToleranceHours    float64
	StaticContentDaysThreshold int
	MinPollIntervalMs          int64
	MaxPollIntervalMs          int64
	ConfidenceThresholdForPredict float64
	CalendarTriggerLeadDays    int
	MinCalendarTriggerObs      int
	EarlyCheckWindowHours      float64
}

func (c Config) thresholds() Thresholds {
	return Thresholds{
		TimeOfDayToleranceHours:    c.TimeOfDayToleranceHours,
		StaticContentDaysThreshold: c.StaticContentDaysThreshold,
	}
}

// ContentChangePattern is the aggregate root for C5: a per-(domain,
// url-pattern) history of observations, the temporal classification derived
// from them, and the resulting prediction. Every mutation goes through the
// Learning Engine's single-consumer channel, so no method here takes a
// lock.
type ContentChangePattern struct {
	ID         string
	Hostname   string
	URLPattern string

	Observations     []ChangeObservation
	ChangeTimestamps []time.Time
	CalendarTriggers []CalendarTrigger

	DetectedType     DetectedType
	TypeConfidence   float64
	Temporal         TemporalPattern
	LastPrediction   Prediction
	PredictionHits   int
	PredictionMisses int
	AccuracyHistory  []PredictionAccuracyRecord

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewContentChangePattern seeds a fresh aggregate for a (hostname,
// urlPattern) pair with no history yet.
func NewContentChangePattern(id, hostname, urlPattern string, now time.Time) *ContentChangePattern {
	return &ContentChangePattern{
		ID:         id,
		Hostname:   hostname,
		URLPattern: urlPattern,
		DetectedType: DetectedUnknown,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Observe records a single check result, bounding both history buffers, and
// appends a calendar bucket when the check detected a change.
func (p *ContentChangePattern) Observe(obs ChangeObservation, cfg Config) {
	maxObs := cfg.MaxObservationsToKeep
	if maxObs <= 0 {
		maxObs = 200
	}
	maxTs := cfg.MaxChangeTimestamps
	if maxTs <= 0 {
		maxTs = 100
	}

	p.Observations = appendBounded(p.Observations, obs, maxObs)
	if obs.Changed {
		p.ChangeTimestamps = appendBounded(p.ChangeTimestamps, obs.CheckedAt, maxTs)
		p.CalendarTriggers = updateCalendarTriggers(p.CalendarTriggers, obs.CheckedAt)
	}
	p.UpdatedAt = obs.CheckedAt
}

// AnalyzeAndUpdatePattern re-runs classification against the current
// change-timestamp history and refreshes DetectedType/Temporal/LastPrediction.
// A no-op until both MinChangesForPattern and MinObservationsForPattern are
// satisfied, so a pattern with only a handful of checks stays "unknown"
// rather than overfitting to noise — but the poll interval is still seeded
// to the maximum so a fresh pattern polls conservatively rather than at its
// zero value.
func (p *ContentChangePattern) AnalyzeAndUpdatePattern(now time.Time, cfg Config) {
	maxPoll := cfg.MaxPollIntervalMs
	if maxPoll <= 0 {
		maxPoll = int64(24 * time.Hour / time.Millisecond)
	}

	minChanges := cfg.MinChangesForPattern
	if minChanges <= 0 {
		minChanges = 3
	}
	minObs := cfg.MinObservationsForPattern
	if minObs <= 0 {
		minObs = 5
	}
	if len(p.ChangeTimestamps) < minChanges || len(p.Observations) < minObs {
		if p.LastPrediction.RecommendedPollMs == 0 {
			p.LastPrediction.RecommendedPollMs = maxPoll
		}
		return
	}

	detected, confidence, temporal := Classify(p.ChangeTimestamps, now, cfg.thresholds())
	p.DetectedType = detected
	p.TypeConfidence = confidence
	p.Temporal = temporal
	p.LastPrediction = p.buildPrediction(now, cfg)
	p.UpdatedAt = now
}

// buildPrediction derives the next prediction window from the current
// classification, folding in any eligible calendar trigger as an override
// when it fires sooner than the statistical estimate.
func (p *ContentChangePattern) buildPrediction(now time.Time, cfg Config) Prediction {
	minPoll := cfg.MinPollIntervalMs
	if minPoll <= 0 {
		minPoll = int64(5 * time.Minute / time.Millisecond)
	}
	maxPoll := cfg.MaxPollIntervalMs
	if maxPoll <= 0 {
		maxPoll = int64(24 * time.Hour / time.Millisecond)
	}

	pollMs := pollIntervalFor(p.DetectedType, p.ChangeTimestamps, p.TypeConfidence, minPoll, maxPoll)
	nextExpected := now.Add(time.Duration(pollMs) * time.Millisecond)

	minCalObs := cfg.MinCalendarTriggerObs
	if minCalObs <= 0 {
		minCalObs = 2
	}
	var calendarNext time.Time
	var calendarConfidence float64
	hasCalendarTrigger := false
	if trig, ok := eligibleCalendarTrigger(p.CalendarTriggers, minCalObs); ok {
		calendarNext = nextCalendarOccurrence(now, trig)
		calendarConfidence = trig.Confidence
		hasCalendarTrigger = true
		if calendarNext.Before(nextExpected) {
			nextExpected = calendarNext
		}
	}

	leadDays := cfg.CalendarTriggerLeadDays
	if leadDays <= 0 {
		leadDays = 3
	}
	earlyWindow := cfg.EarlyCheckWindowHours
	if earlyWindow <= 0 {
		earlyWindow = 2
	}

	confidence := p.TypeConfidence
	urgency := urgencyFor(urgencyInputs{
		detected:              p.DetectedType,
		now:                   now,
		nextExpected:          nextExpected,
		earlyCheckWindowHours: earlyWindow,
		hasCalendarTrigger:    hasCalendarTrigger,
		calendarConfidence:    calendarConfidence,
		calendarLeadDays:      leadDays,
		calendarNext:          calendarNext,
	})

	return Prediction{
		NextExpectedChange: nextExpected,
		Confidence:         confidence,
		RecommendedPollMs:  pollMs,
		Urgency:            urgency,
		DetectedType:       p.DetectedType,
		CalendarTriggered:  hasCalendarTrigger,
	}
}

// RecommendedPollInterval is the number of milliseconds a caller should wait
// before the next check, per the last analysis pass.
func (p *ContentChangePattern) RecommendedPollInterval() time.Duration {
	return time.Duration(p.LastPrediction.RecommendedPollMs) * time.Millisecond
}

// ShouldCheckNow implements the documented decision table, evaluated in
// order: no prediction yet polls immediately; a still-fresh static pattern
// or a check too recent relative to the recommended interval both defer;
// a prediction window still more than a recommended-interval away also
// defers (to be retried nearer the window); anything else — inside or past
// the window — polls now.
func (p *ContentChangePattern) ShouldCheckNow(now time.Time, cfg Config) bool {
	pred := p.LastPrediction
	if pred.NextExpectedChange.IsZero() {
		return true
	}

	maxPoll := cfg.MaxPollIntervalMs
	if maxPoll <= 0 {
		maxPoll = int64(24 * time.Hour / time.Millisecond)
	}
	sinceLastCheck := now.Sub(p.UpdatedAt)

	if p.DetectedType == DetectedStatic && sinceLastCheck < time.Duration(maxPoll)*time.Millisecond {
		return false
	}

	recInterval := time.Duration(pred.RecommendedPollMs) * time.Millisecond
	if recInterval > 0 && sinceLastCheck < time.Duration(0.8*float64(recInterval)) {
		return false
	}

	if now.Before(pred.NextExpectedChange.Add(-recInterval)) {
		return false
	}
	return true
}

// Urgency returns the urgency computed as of the last analysis pass.
func (p *ContentChangePattern) Urgency() Urgency {
	return p.LastPrediction.Urgency
}

// RecordPredictionAccuracy folds a hit/miss outcome for the last prediction
// into the running confidence, used as a correction signal independent of
// the next full re-classification, and appends a bounded
// PredictionAccuracyRecord capturing what was predicted against what
// actually happened at actualAt.
func (p *ContentChangePattern) RecordPredictionAccuracy(hit bool, actualAt time.Time) {
	predictedAt := p.LastPrediction.NextExpectedChange
	record := PredictionAccuracyRecord{
		PredictedAt:            predictedAt,
		ActualAt:               actualAt,
		WasAccurate:            hit,
		ConfidenceAtPrediction: p.TypeConfidence,
	}
	if !predictedAt.IsZero() {
		record.ErrorMs = actualAt.Sub(predictedAt).Milliseconds()
	}
	p.AccuracyHistory = appendBounded(p.AccuracyHistory, record, maxAccuracyRecords)

	if hit {
		p.PredictionHits++
	} else {
		p.PredictionMisses++
	}
	p.TypeConfidence = recordAccuracy(p.TypeConfidence, hit)
	p.LastPrediction.Confidence = p.TypeConfidence
}
