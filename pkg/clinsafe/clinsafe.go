// Package clinsafe is the public surface of the clinical document safety
// core. Embedding applications construct a Processor from configuration,
// feed it CDA XML documents or native structured bundles, and receive
// validated clinical summaries; they may plug in their own narrative
// Enhancer. Everything else lives in internal packages.
package clinsafe

import (
	"github.com/rs/zerolog"

	"github.com/clinsafe/clinsafe/internal/config"
	"github.com/clinsafe/clinsafe/internal/domain/summary"
	"github.com/clinsafe/clinsafe/internal/platform/ccda"
	"github.com/clinsafe/clinsafe/internal/platform/fhir"
	"github.com/clinsafe/clinsafe/internal/platform/logging"
	"github.com/clinsafe/clinsafe/internal/platform/securexml"
)

// Config holds the service settings. Load it from the environment with
// LoadConfig or construct it directly.
type Config = config.Config

// DefaultMaxDocumentBytes caps incoming XML documents at 50 MB.
const DefaultMaxDocumentBytes = config.DefaultMaxDocumentBytes

// LoadConfig reads configuration from the environment and an optional .env
// file, then validates it.
func LoadConfig() (*Config, error) {
	return config.Load()
}

// NewLogger builds the structured logger the pipeline components log
// through: JSON at the configured level, console output in development.
func NewLogger(cfg Config) zerolog.Logger {
	return logging.New(cfg)
}

// Processor runs the full pipeline for one document or bundle per call. It
// is safe for concurrent use.
type Processor = summary.Processor

// NewProcessor wires a processor from configuration. enhancer may be nil;
// narrative enhancement then stays off regardless of configuration.
func NewProcessor(cfg Config, logger zerolog.Logger, enhancer Enhancer) *Processor {
	return summary.NewProcessor(cfg, logger, enhancer)
}

// Summary output model.
type (
	ClinicalSummary    = summary.ClinicalSummary
	MedicationSummary  = summary.MedicationSummary
	LabResultSummary   = summary.LabResultSummary
	VitalSignSummary   = summary.VitalSignSummary
	AllergySummary     = summary.AllergySummary
	NarrativeBlock     = summary.NarrativeBlock
	ProcessingMetadata = summary.ProcessingMetadata
	FieldFlag          = summary.FieldFlag
	SafetyValidation   = summary.SafetyValidation
)

// Enhancement boundary. Implementations transform narrative free text only;
// a failed or inaccurate enhancement falls back to the original text.
type (
	Enhancer = summary.Enhancer
	Enhanced = summary.Enhanced
)

// Error types callers can match with errors.As. SecurityError reports input
// rejected by the XML gate; ParsingError a malformed document;
// DocumentValidationError and ResourceValidationError violated domain
// invariants on the two ingestion paths.
type (
	SecurityError           = securexml.SecurityError
	ParsingError            = ccda.ParsingError
	DocumentValidationError = ccda.ValidationError
	ResourceValidationError = fhir.ValidationError
)

// ErrIntegrity is returned when a preservation digest goes missing between
// extraction and canonicalization.
var ErrIntegrity = summary.ErrIntegrity
