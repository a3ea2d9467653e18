// Package summary turns ingested clinical documents into patient-facing
// summaries. Critical clinical values pass through byte for byte with
// preservation digests proving it; only free-text narrative is ever eligible
// for enhancement, and every run ends with a machine-checkable safety
// validation.
package summary

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/clinsafe/clinsafe/internal/config"
	"github.com/clinsafe/clinsafe/internal/platform/ccda"
	"github.com/clinsafe/clinsafe/internal/platform/fhir"
	"github.com/clinsafe/clinsafe/internal/platform/securexml"
)

// ErrIntegrity is returned when the preservation hash closure does not hold:
// at least one extracted record's digest is missing from the canonical
// resources. Processing never produces a summary past this point.
var ErrIntegrity = errors.New("summary: preservation integrity check failed")

// Processor runs the full pipeline: security gate, parse, extract, transform,
// integrity check, assembly, and optional narrative enhancement with safety
// validation. It is safe for concurrent use.
type Processor struct {
	gate        *securexml.Gate
	parser      *ccda.Parser
	extractor   *ccda.Extractor
	transformer *fhir.Transformer
	service     *Service
	enhancer    Enhancer
	enhance     bool
	logger      zerolog.Logger
}

// NewProcessor wires the pipeline from configuration. enhancer may be nil;
// enhancement then stays off regardless of configuration.
func NewProcessor(cfg config.Config, logger zerolog.Logger, enhancer Enhancer) *Processor {
	return &Processor{
		gate:        securexml.NewGate(cfg.MaxDocumentBytes),
		parser:      ccda.NewParser(),
		extractor:   ccda.NewExtractor(logger),
		transformer: fhir.NewTransformer(logger),
		service:     NewService(logger, cfg.ServiceVersion),
		enhancer:    enhancer,
		enhance:     cfg.EnhancementEnabled && enhancer != nil,
		logger:      logger,
	}
}

// ProcessDocument ingests one CDA XML document and returns its validated
// clinical summary. The stages run in a fixed order and each failure aborts
// the run; a summary is returned only when the preservation closure holds and
// safety validation passed.
func (p *Processor) ProcessDocument(ctx context.Context, data []byte) (*ClinicalSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.gate.Validate(data); err != nil {
		return nil, err
	}

	doc, err := p.parser.Parse(data)
	if err != nil {
		return nil, err
	}

	sections, err := p.extractor.Extract(doc)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resources, err := p.transformer.Transform(sections)
	if err != nil {
		return nil, err
	}

	if !p.transformer.VerifyIntegrity(sections, resources) {
		return nil, ErrIntegrity
	}

	return p.finish(ctx, resources, sections[ccda.SectionNarrative])
}

// ProcessBundle ingests a native structured bundle. The resources arrive
// already canonical with their provenance digests attached at parse, so the
// same safety machinery applies to both ingestion paths.
func (p *Processor) ProcessBundle(ctx context.Context, data []byte) (*ClinicalSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requests, err := fhir.ParseBundle(data)
	if err != nil {
		return nil, err
	}

	resources := make([]fhir.Resource, 0, len(requests))
	for _, mr := range requests {
		resources = append(resources, mr)
	}

	return p.finish(ctx, resources, nil)
}

// finish assembles the summary, runs enhancement when enabled, and validates
// that processing preserved every critical field. Validation failure is an
// error: an unsafe summary is never returned.
func (p *Processor) finish(ctx context.Context, resources []fhir.Resource, narratives []ccda.Record) (*ClinicalSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum, err := p.service.Assemble(resources, narratives)
	if err != nil {
		return nil, err
	}

	if p.enhance {
		original, err := p.service.Assemble(resources, narratives)
		if err != nil {
			return nil, err
		}

		p.service.EnhanceNarratives(ctx, sum, p.enhancer)

		warnings := sum.Validation.Warnings
		sum.Validation = p.service.ValidateSafety(original, sum)
		sum.Validation.Warnings = append(warnings, sum.Validation.Warnings...)
		if !sum.Validation.Passed {
			return nil, errors.New("summary: safety validation failed, critical fields altered")
		}
	}

	p.logger.Info().
		Int("medications", len(sum.Medications)).
		Int("lab_results", len(sum.LabResults)).
		Int("vital_signs", len(sum.VitalSigns)).
		Int("allergies", len(sum.Allergies)).
		Int("narratives", len(sum.Narratives)).
		Msg("clinical summary assembled")

	return sum, nil
}
