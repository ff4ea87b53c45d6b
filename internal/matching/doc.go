// Package matching scores and selects the response Candidate for one
// call: eligibility first (every when.metadata and when.request leaf
// must be satisfied), then ranking by priority, specificity, and load
// order among the candidates that remain.
//
// Adapted from this codebase's HTTP-request matcher (match score
// accumulation with early 0-return on a required mismatch), retargeted
// from (method, path, header, query, body, mTLS) criteria to
// (metadata, decoded request field path) criteria.
package matching
