package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinsafe/clinsafe/internal/platform/ccda"
	"github.com/clinsafe/clinsafe/internal/platform/fhir"
)

// Enhanced is the output of one narrative enhancement call. AccuracyErrors
// lists problems the enhancer itself detected in its output; a non-empty list
// disqualifies the enhanced text.
type Enhanced struct {
	Text           string
	AccuracyErrors []string
}

// Enhancer transforms a narrative block's free text. Implementations sit
// outside this package; the service only guarantees that critical fields are
// never routed through one and that a failed or inaccurate enhancement falls
// back to the original text.
type Enhancer interface {
	Enhance(ctx context.Context, title, text string) (Enhanced, error)
}

// Service assembles canonical resources and narrative records into clinical
// summaries, applies optional narrative enhancement, and validates that no
// critical field was altered in the process.
type Service struct {
	logger  zerolog.Logger
	version string
}

// NewService creates a summary service. version is stamped into each
// summary's processing metadata.
func NewService(logger zerolog.Logger, version string) *Service {
	return &Service{logger: logger, version: version}
}

// Assemble builds a clinical summary from canonical resources plus the
// narrative records that bypassed canonicalization. Critical field values are
// copied byte for byte from the resources; nothing is reformatted here.
func (s *Service) Assemble(resources []fhir.Resource, narratives []ccda.Record) (*ClinicalSummary, error) {
	sum := &ClinicalSummary{
		Metadata: ProcessingMetadata{
			DocumentID:  uuid.NewString(),
			ProcessedAt: time.Now().UTC(),
			Version:     s.version,
			Fields:      make(map[string]FieldFlag),
		},
	}

	for _, res := range resources {
		switch r := res.(type) {
		case *fhir.MedicationRequest:
			med, err := s.toMedicationSummary(r)
			if err != nil {
				return nil, err
			}
			sum.Medications = append(sum.Medications, med)
		case *fhir.Observation:
			if observationCategory(r) == fhir.CategoryVitalSigns {
				sum.VitalSigns = append(sum.VitalSigns, toVitalSignSummary(r))
			} else {
				sum.LabResults = append(sum.LabResults, toLabResultSummary(r))
			}
		case *fhir.AllergyIntolerance:
			sum.Allergies = append(sum.Allergies, toAllergySummary(r))
		default:
			return nil, fmt.Errorf("summary: unsupported resource type %T", res)
		}
	}

	for _, rec := range narratives {
		if rec.Kind != ccda.SectionNarrative {
			continue
		}
		sum.Narratives = append(sum.Narratives, NarrativeBlock{
			Title:    rec.Fields["title"],
			Original: rec.Fields["text"],
		})
	}

	s.stampFieldFlags(sum)
	sum.Validation = SafetyValidation{
		Passed:                  true,
		CriticalFieldsPreserved: countCritical(sum.Metadata.Fields),
	}

	return sum, nil
}

// EnhanceNarratives runs each narrative block through the enhancer. Any
// enhancer error or reported accuracy problem keeps the original text; the
// failure is recorded as a warning, never as a summary-level error. Critical
// fields are untouched regardless of outcome.
func (s *Service) EnhanceNarratives(ctx context.Context, sum *ClinicalSummary, enhancer Enhancer) {
	if enhancer == nil {
		return
	}

	for i := range sum.Narratives {
		block := &sum.Narratives[i]

		out, err := enhancer.Enhance(ctx, block.Title, block.Original)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("narrative", block.Title).
				Msg("enhancement failed, keeping original text")
			sum.Validation.Warnings = append(sum.Validation.Warnings,
				"enhancement of narrative "+block.Title+" failed, original text retained")
			continue
		}
		if len(out.AccuracyErrors) > 0 {
			s.logger.Warn().
				Str("narrative", block.Title).
				Int("accuracy_errors", len(out.AccuracyErrors)).
				Msg("enhancement rejected, keeping original text")
			sum.Validation.Warnings = append(sum.Validation.Warnings,
				"enhancement of narrative "+block.Title+" rejected by accuracy check, original text retained")
			continue
		}

		block.Enhanced = out.Text
		block.AIProcessed = true

		key := "narrative." + block.Title
		sum.Metadata.Fields[key] = FieldFlag{AIProcessed: true}
		sum.Validation.AIProcessedFields = append(sum.Validation.AIProcessedFields, key)
	}
}

// ValidateSafety compares a processed summary against its pre-processing
// state and reports every critical field that changed. Error messages name
// the field, never its value. A record-count mismatch is itself a critical
// failure: a dropped medication is as dangerous as an altered one.
func (s *Service) ValidateSafety(original, processed *ClinicalSummary) SafetyValidation {
	v := SafetyValidation{AIProcessedFields: processed.Validation.AIProcessedFields}

	check := func(field string, want, got string) {
		if want != got {
			v.Errors = append(v.Errors, "critical field "+field+" was altered")
			return
		}
		v.CriticalFieldsPreserved++
	}

	if len(original.Medications) != len(processed.Medications) {
		v.Errors = append(v.Errors, "medication count changed")
	} else {
		for i, want := range original.Medications {
			got := processed.Medications[i]
			prefix := fmt.Sprintf("medication[%d].", i)
			check(prefix+"name", want.Name, got.Name)
			check(prefix+"dosage", want.Dosage, got.Dosage)
			check(prefix+"frequency", want.Frequency, got.Frequency)
			check(prefix+"route", want.Route, got.Route)
			check(prefix+"instructions", want.Instructions, got.Instructions)
			check(prefix+"status", want.Status, got.Status)
			check(prefix+"intent", want.Intent, got.Intent)
		}
	}

	if len(original.LabResults) != len(processed.LabResults) {
		v.Errors = append(v.Errors, "lab result count changed")
	} else {
		for i, want := range original.LabResults {
			got := processed.LabResults[i]
			prefix := fmt.Sprintf("lab_result[%d].", i)
			check(prefix+"name", want.Name, got.Name)
			check(prefix+"value", want.Value, got.Value)
			check(prefix+"range", want.Range, got.Range)
			check(prefix+"units", want.Units, got.Units)
		}
	}

	if len(original.VitalSigns) != len(processed.VitalSigns) {
		v.Errors = append(v.Errors, "vital sign count changed")
	} else {
		for i, want := range original.VitalSigns {
			got := processed.VitalSigns[i]
			prefix := fmt.Sprintf("vital_sign[%d].", i)
			check(prefix+"type", want.Type, got.Type)
			check(prefix+"value", want.Value, got.Value)
			check(prefix+"units", want.Units, got.Units)
			check(prefix+"timestamp", want.Timestamp, got.Timestamp)
		}
	}

	if len(original.Allergies) != len(processed.Allergies) {
		v.Errors = append(v.Errors, "allergy count changed")
	} else {
		for i, want := range original.Allergies {
			got := processed.Allergies[i]
			prefix := fmt.Sprintf("allergy[%d].", i)
			check(prefix+"substance", want.Substance, got.Substance)
			check(prefix+"severity", want.Severity, got.Severity)
		}
	}

	if len(original.Narratives) != len(processed.Narratives) {
		v.Errors = append(v.Errors, "narrative count changed")
	} else {
		for i, want := range original.Narratives {
			// The original text must survive even when an enhanced rendering
			// was added alongside it.
			if want.Original != processed.Narratives[i].Original {
				v.Errors = append(v.Errors, fmt.Sprintf("original text of narrative[%d] was altered", i))
			}
		}
	}

	v.Passed = len(v.Errors) == 0
	if !v.Passed {
		s.logger.Error().
			Int("violations", len(v.Errors)).
			Msg("safety validation failed")
	}
	return v
}

func (s *Service) toMedicationSummary(mr *fhir.MedicationRequest) (MedicationSummary, error) {
	fields, err := fhir.ExtractMedicationFields(mr)
	if err != nil {
		return MedicationSummary{}, err
	}

	med := MedicationSummary{
		Name:         fields.Name,
		Dosage:       fields.Dosage,
		Frequency:    fields.Frequency,
		Route:        fields.Route,
		Instructions: fields.Instructions,
		Status:       mr.Status,
		Intent:       mr.Intent,
	}
	if prov := mr.ProvenanceBlock(); prov != nil {
		med.PreservationHash = preservationDigest(prov)
	}
	return med, nil
}

func toLabResultSummary(o *fhir.Observation) LabResultSummary {
	lab := LabResultSummary{
		Name:      observationName(o),
		Value:     observationValue(o),
		Units:     observationUnits(o),
		Timestamp: o.EffectiveDateTime,
	}
	if len(o.ReferenceRange) > 0 {
		lab.Range = o.ReferenceRange[0].Text
	}
	if len(o.Interpretation) > 0 {
		lab.Interpretation = o.Interpretation[0].Text
	}
	if prov := o.ProvenanceBlock(); prov != nil {
		lab.PreservationHash = preservationDigest(prov)
	}
	return lab
}

func toVitalSignSummary(o *fhir.Observation) VitalSignSummary {
	vs := VitalSignSummary{
		Type:      observationName(o),
		Value:     observationValue(o),
		Units:     observationUnits(o),
		Timestamp: o.EffectiveDateTime,
	}
	if prov := o.ProvenanceBlock(); prov != nil {
		vs.PreservationHash = preservationDigest(prov)
	}
	return vs
}

func toAllergySummary(a *fhir.AllergyIntolerance) AllergySummary {
	al := AllergySummary{}
	if a.Code != nil {
		al.Substance = a.Code.Text
	}
	if len(a.Reaction) > 0 {
		al.Severity = a.Reaction[0].Severity
	}
	if prov := a.ProvenanceBlock(); prov != nil {
		al.PreservationHash = preservationDigest(prov)
	}
	return al
}

// stampFieldFlags records the classification of every field class present in
// the summary, so downstream consumers can verify the partition without
// reimplementing it.
func (s *Service) stampFieldFlags(sum *ClinicalSummary) {
	stamp := func(dt DataType, present bool) {
		if !present {
			return
		}
		for field := range classificationTables[dt] {
			key := string(dt) + "." + field
			sum.Metadata.Fields[key] = FieldFlag{Critical: Classify(dt, field) == Critical}
		}
	}

	stamp(DataMedication, len(sum.Medications) > 0)
	stamp(DataLabResult, len(sum.LabResults) > 0)
	stamp(DataVitalSign, len(sum.VitalSigns) > 0)
	stamp(DataAllergy, len(sum.Allergies) > 0)
	stamp(DataNarrative, len(sum.Narratives) > 0)
}

func countCritical(fields map[string]FieldFlag) int {
	n := 0
	for _, f := range fields {
		if f.Critical {
			n++
		}
	}
	return n
}

// preservationDigest prefers the section-level record digest; resources from
// the native bundle path carry only the canonical resource digest.
func preservationDigest(prov *fhir.Provenance) string {
	if prov.RecordHash != "" {
		return prov.RecordHash
	}
	return prov.ResourceHash
}

func observationCategory(o *fhir.Observation) string {
	for _, cat := range o.Category {
		for _, c := range cat.Coding {
			if c.Code != "" {
				return c.Code
			}
		}
	}
	return ""
}

func observationName(o *fhir.Observation) string {
	if o.Code == nil {
		return ""
	}
	if o.Code.Text != "" {
		return o.Code.Text
	}
	if len(o.Code.Coding) > 0 {
		return o.Code.Coding[0].Display
	}
	return ""
}

func observationValue(o *fhir.Observation) string {
	if o.ValueQuantity != nil && o.ValueQuantity.Value != nil {
		return o.ValueQuantity.Value.String()
	}
	return o.ValueString
}

func observationUnits(o *fhir.Observation) string {
	if o.ValueQuantity != nil {
		return o.ValueQuantity.Unit
	}
	return ""
}
