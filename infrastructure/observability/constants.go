package observability

// Metric name prefixes
const (
	MetricPrefix = "wingo"
)

// Metric names
const (
	// Round lifecycle metrics
	RoundsCreatedTotal = MetricPrefix + ".rounds.created_total"
	RoundsSettledTotal = MetricPrefix + ".rounds.settled_total"
	RoundPayoutTotal   = MetricPrefix + ".rounds.payout_total"
	RoundStakeTotal    = MetricPrefix + ".rounds.stake_total"

	// Settlement metrics
	SettlementFailuresTotal = MetricPrefix + ".settlement.failures_total"
	BetsSettledTotal        = MetricPrefix + ".bets.settled_total"

	// Scheduler metrics
	TickDuration     = MetricPrefix + ".scheduler.tick_duration"
	TickSkippedTotal = MetricPrefix + ".scheduler.tick_skipped_total"
	TickErrorsTotal  = MetricPrefix + ".scheduler.tick_errors_total"

	// Demo user metrics
	DemoUsersCached = MetricPrefix + ".demo_users.cached"

	// Event metrics
	EventsPublishedTotal = MetricPrefix + ".events.published_total"
)

// Label keys
const (
	LabelInterval  = "interval"
	LabelOperation = "operation"
	LabelEventType = "event_type"
	LabelStatus    = "status"
)

// Label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)
