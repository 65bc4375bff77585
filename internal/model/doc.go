// Package model defines the core data structures shared across defensys.
//
// This package contains the following main types:
//   - FlowRecord / FlowBatch: raw network-flow summaries fed to the network extractor
//   - Prediction / DetailedPrediction: classifier output
//   - ReputationRecord: result of a PhishTank-style lookup
//   - EnrichedPrediction: classifier output fused with reputation data
//   - ModelMetadata: descriptive metadata stored next to a saved model
//   - RiskLevel: coarse banding of a final verdict used by reports
//
// It also defines the error taxonomy used by every other package:
// InputFormatError, ErrNotTrained, ExternalServiceError and
// MalformedRecordError.
//
// Models live in their own package so that extractors, the classifier,
// the reputation client and the report writers can share them without
// import cycles. All types are serializable to JSON.
package model
