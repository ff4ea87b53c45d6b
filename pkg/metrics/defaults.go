package metrics

import "sync"

// Default metrics for Wishmock. These are initialized by calling Init().
var (
	// ValidationChecksTotal counts every request run through validation.
	ValidationChecksTotal *Counter

	// ValidationFailuresTotal counts requests that failed validation.
	ValidationFailuresTotal *Counter

	// ValidationFailuresByType counts failures per constraint kind.
	// Labels: constraint_id
	ValidationFailuresByType *Counter

	// MatchAttemptsTotal counts every call that reached the Matcher.
	MatchAttemptsTotal *Counter

	// MatchesTotal counts calls for which a candidate was selected.
	MatchesTotal *Counter

	// MatchMissesTotal counts calls for which no candidate was eligible.
	MatchMissesTotal *Counter

	// MatchesByRule counts selections per rule key.
	// Labels: rule_key
	MatchesByRule *Counter

	// RequestsTotal counts requests per protocol.
	// Labels: protocol (connect, grpc_web, grpc)
	RequestsTotal *Counter

	// RequestErrorsTotal counts request errors per protocol and kind.
	// Labels: protocol, kind
	RequestErrorsTotal *Counter

	// UptimeSeconds is a gauge of the server uptime in seconds.
	UptimeSeconds *Gauge

	// defaultRegistry is the global metrics registry.
	defaultRegistry *Registry

	// initOnce ensures Init() is only called once.
	initOnce sync.Once
)

// Init initializes the default metrics and returns the registry. Safe to
// call more than once; later calls are no-ops.
func Init() *Registry {
	initOnce.Do(func() {
		defaultRegistry = NewRegistry()

		ValidationChecksTotal = defaultRegistry.NewCounter(
			"wishmock_validation_checks_total",
			"Total number of requests run through validation",
		)
		ValidationFailuresTotal = defaultRegistry.NewCounter(
			"wishmock_validation_failures_total",
			"Total number of requests that failed validation",
		)
		ValidationFailuresByType = defaultRegistry.NewCounter(
			"wishmock_validation_failures_by_type",
			"Failed constraint evaluations by constraint kind",
			"constraint_id",
		)

		MatchAttemptsTotal = defaultRegistry.NewCounter(
			"wishmock_rule_matching_attempts_total",
			"Total number of calls that reached the matcher",
		)
		MatchesTotal = defaultRegistry.NewCounter(
			"wishmock_rule_matching_matches_total",
			"Total number of calls for which a candidate was selected",
		)
		MatchMissesTotal = defaultRegistry.NewCounter(
			"wishmock_rule_matching_misses_total",
			"Total number of calls for which no candidate was eligible",
		)
		MatchesByRule = defaultRegistry.NewCounter(
			"wishmock_rule_matching_matches_by_rule",
			"Selections per rule key",
			"rule_key",
		)

		RequestsTotal = defaultRegistry.NewCounter(
			"wishmock_requests_total",
			"Total number of requests handled, per protocol",
			"protocol",
		)
		RequestErrorsTotal = defaultRegistry.NewCounter(
			"wishmock_request_errors_total",
			"Total number of request errors, per protocol and error kind",
			"protocol", "kind",
		)

		UptimeSeconds = defaultRegistry.NewGauge(
			"wishmock_uptime_seconds",
			"Server uptime in seconds",
		)
	})

	return defaultRegistry
}

// DefaultRegistry returns the default metrics registry, or nil if Init
// has not been called.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Reset zeros all default metrics and clears the event ring. Test-only.
func Reset() {
	initOnce = sync.Once{}
	defaultRegistry = nil
	ValidationChecksTotal = nil
	ValidationFailuresTotal = nil
	ValidationFailuresByType = nil
	MatchAttemptsTotal = nil
	MatchesTotal = nil
	MatchMissesTotal = nil
	MatchesByRule = nil
	RequestsTotal = nil
	RequestErrorsTotal = nil
	UptimeSeconds = nil
	ResetEvents()
}
