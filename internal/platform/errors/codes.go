// Package errors provides structured error handling for the matchmaking
// engine's four error kinds (see the engine's KindInvalidConfiguration,
// KindPopulationNotInitialised, KindIntegrityViolation and
// KindSerializationFailure).
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Configuration errors
	CodeConfigWeightsNotNormalised Code = "CONFIG_WEIGHTS_NOT_NORMALISED"
	CodeConfigNegativeRate         Code = "CONFIG_NEGATIVE_RATE"
	CodeConfigTooFewBuckets        Code = "CONFIG_TOO_FEW_BUCKETS"
	CodeConfigBadThresholds        Code = "CONFIG_BAD_THRESHOLDS"
	CodeConfigInvalidBatchSize     Code = "CONFIG_INVALID_BATCH_SIZE"
	CodeConfigInvalidTopK          Code = "CONFIG_INVALID_TOP_K"

	// Lifecycle/usage errors
	CodePopulationNotInitialised Code = "POPULATION_NOT_INITIALISED"

	// Defensive integrity errors
	CodeIntegrityPartyNotFound   Code = "INTEGRITY_PARTY_NOT_FOUND"
	CodeIntegritySearchNotFound  Code = "INTEGRITY_SEARCH_NOT_FOUND"
	CodeIntegrityMatchNotFound   Code = "INTEGRITY_MATCH_NOT_FOUND"
	CodeIntegrityPlayerNotFound  Code = "INTEGRITY_PLAYER_NOT_FOUND"
	CodeIntegrityStaleHandle     Code = "INTEGRITY_STALE_HANDLE"
	CodeIntegrityStateMismatch   Code = "INTEGRITY_STATE_MISMATCH"
	CodeIntegritySeatCountDrift  Code = "INTEGRITY_SEAT_COUNT_DRIFT"
	CodeIntegrityNoCommonDC      Code = "INTEGRITY_NO_COMMON_DATACENTRE"

	// Host-boundary errors (never produced internally by the engine)
	CodeSerializationFailure Code = "SERIALIZATION_FAILURE"
)

// GRPCCode maps domain codes to gRPC status codes, for hosts that bridge
// engine errors across a network boundary.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeConfigWeightsNotNormalised,
		CodeConfigNegativeRate,
		CodeConfigTooFewBuckets,
		CodeConfigBadThresholds,
		CodeConfigInvalidBatchSize,
		CodeConfigInvalidTopK:
		return codes.InvalidArgument

	case CodePopulationNotInitialised:
		return codes.FailedPrecondition

	case CodeIntegrityPartyNotFound,
		CodeIntegritySearchNotFound,
		CodeIntegrityMatchNotFound,
		CodeIntegrityPlayerNotFound:
		return codes.NotFound

	case CodeIntegrityStaleHandle,
		CodeIntegrityStateMismatch,
		CodeIntegritySeatCountDrift,
		CodeIntegrityNoCommonDC:
		return codes.Internal

	case CodeSerializationFailure:
		return codes.Internal

	default:
		return codes.Internal
	}
}
