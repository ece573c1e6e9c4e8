package tracing

// Span attribute keys used across the run.
const (
	// Run attributes
	AttrRunID   = "run.id"
	AttrRunMode = "run.mode"
	AttrRepo    = "run.repo"

	// Wave attributes
	AttrWaveIndex = "wave.index"
	AttrWaveSize  = "wave.size"

	// Entity attributes
	AttrEntityName   = "entity.name"
	AttrEntityStatus = "entity.status"

	// Operation attributes
	AttrOperationName   = "operation.name"
	AttrOperationEntity = "operation.entity"
	AttrOperationWrite  = "operation.write"
	AttrCacheHit        = "operation.cache_hit"
	AttrRetryAttempts   = "operation.retry_attempts"

	// Error attributes
	AttrErrorMessage = "error.message"
)

// Span name prefixes for consistent naming.
const (
	SpanRun       = "trove.run"
	SpanWave      = "trove.wave"
	SpanPrefixJob = "trove.entity."
	SpanPrefixOp  = "trove.call."
)
