package fhir

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinsafe/clinsafe/internal/platform/ccda"
	"github.com/clinsafe/clinsafe/internal/platform/preservation"
)

// statusCodes maps CDA status codes to canonical MedicationRequest statuses.
// Unrecognized input defaults to "active" rather than passing through, so the
// canonical status is always a member of the closed set.
var statusCodes = map[string]string{
	"active":    "active",
	"completed": "completed",
	"cancelled": "cancelled",
	"stopped":   "stopped",
}

// interpretationCodes maps HL7 observation interpretation codes to display
// strings. Codes outside the table pass through unchanged.
var interpretationCodes = map[string]string{
	"H":  "High",
	"L":  "Low",
	"N":  "Normal",
	"A":  "Abnormal",
	"AA": "Critical abnormal",
}

// severityCodes maps allergy severity display values (case-insensitive) to
// canonical reaction severities. Unknown severities are omitted entirely.
var severityCodes = map[string]string{
	"mild":     "mild",
	"moderate": "moderate",
	"severe":   "severe",
}

// Transformer maps extracted CCDA records into canonical resources, carrying
// each record's preservation digest forward as provenance. It holds no
// mutable state and is safe for concurrent use.
type Transformer struct {
	logger zerolog.Logger
}

// NewTransformer creates a transformer with the given logger.
func NewTransformer(logger zerolog.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// Transform converts every non-narrative record into its canonical resource.
// Narrative records are not resources; they flow to the summary assembler
// directly and are skipped here.
func (t *Transformer) Transform(sections map[ccda.SectionKind][]ccda.Record) ([]Resource, error) {
	var resources []Resource

	for kind, records := range sections {
		for _, rec := range records {
			var res Resource
			switch kind {
			case ccda.SectionMedications:
				res = t.toMedicationRequest(rec)
			case ccda.SectionResults:
				res = t.toObservation(rec, "test", CategoryLaboratory)
			case ccda.SectionVitalSigns:
				res = t.toObservation(rec, "vital_sign", CategoryVitalSigns)
			case ccda.SectionAllergies:
				res = t.toAllergyIntolerance(rec)
			case ccda.SectionNarrative:
				continue
			default:
				return nil, &ValidationError{Msg: "no transform for section kind " + kind.String()}
			}
			resources = append(resources, res)
		}
	}

	return resources, nil
}

// toMedicationRequest builds the canonical medication order. The extracted
// dosage, frequency, and route strings are decomposed back into structured
// timing and dose elements so that the field extractor can rebuild them.
func (t *Transformer) toMedicationRequest(rec ccda.Record) *MedicationRequest {
	fields := rec.Fields

	status := statusCodes[fields["status"]]
	if status == "" {
		status = "active"
	}

	mr := &MedicationRequest{
		ResourceType: "MedicationRequest",
		ID:           uuid.NewString(),
		Status:       status,
		Intent:       "order",
		MedicationCodeableConcept: &CodeableConcept{
			Text: fields["medication"],
		},
	}

	dosage := Dosage{Sequence: 1, Text: dosageText(fields)}

	if amount, unit, ok := splitQuantity(fields["dosage"]); ok {
		dosage.DoseAndRate = []DoseAndRate{{DoseQuantity: &Quantity{Value: &amount, Unit: unit}}}
	}

	if period, unit, ok := parseFrequency(fields["frequency"]); ok {
		once := 1
		dosage.Timing = &Timing{Repeat: &Repeat{Frequency: &once, Period: &period, PeriodUnit: unit}}
	}

	if route := fields["route"]; route != "" {
		dosage.Route = &CodeableConcept{Text: route}
	}

	if dosage.Text != "" || dosage.DoseAndRate != nil || dosage.Timing != nil || dosage.Route != nil {
		mr.DosageInstruction = []Dosage{dosage}
	}

	mr.Provenance = &Provenance{
		RecordHash: rec.PreservationHash,
		ResourceHash: preservation.ResourceDigest(map[string]string{
			"medication": fields["medication"],
			"dosage":     dosageText(fields),
			"status":     mr.Status,
			"intent":     mr.Intent,
		}),
		Original: fields,
	}

	return mr
}

// toObservation builds the canonical lab result or vital sign.
func (t *Transformer) toObservation(rec ccda.Record, nameKey, category string) *Observation {
	fields := rec.Fields

	obs := &Observation{
		ResourceType: "Observation",
		ID:           uuid.NewString(),
		Status:       "final",
		Category: []CodeableConcept{{
			Coding: []Coding{{Code: category}},
		}},
		Code: &CodeableConcept{Text: fields[nameKey]},
	}
	if code := fields["code"]; code != "" {
		obs.Code.Coding = []Coding{{Code: code, Display: fields[nameKey]}}
	}

	if raw := fields["value"]; raw != "" {
		if v, err := decimal.NewFromString(raw); err == nil {
			obs.ValueQuantity = &Quantity{Value: &v, Unit: fields["unit"]}
		} else {
			obs.ValueString = raw
		}
	}

	if rng := fields["reference_range"]; rng != "" {
		obs.ReferenceRange = []ObservationRange{{Text: rng}}
	}

	if code := fields["interpretation"]; code != "" {
		display := interpretationCodes[code]
		if display == "" {
			display = code
		}
		obs.Interpretation = []CodeableConcept{{
			Coding: []Coding{{Code: code, Display: display}},
			Text:   display,
		}}
	}

	if ts := fields["timestamp"]; ts != "" {
		obs.EffectiveDateTime = formatTimestamp(ts)
	}

	obs.Provenance = &Provenance{
		RecordHash: rec.PreservationHash,
		ResourceHash: preservation.ResourceDigest(map[string]string{
			"observation": fields[nameKey],
			"value":       fields["value"],
			"unit":        fields["unit"],
			"status":      obs.Status,
		}),
		Original: fields,
	}

	return obs
}

// toAllergyIntolerance builds the canonical allergy record.
func (t *Transformer) toAllergyIntolerance(rec ccda.Record) *AllergyIntolerance {
	fields := rec.Fields

	ai := &AllergyIntolerance{
		ResourceType: "AllergyIntolerance",
		ID:           uuid.NewString(),
		Code:         &CodeableConcept{Text: fields["substance"]},
	}

	if severity, ok := severityCodes[strings.ToLower(fields["severity"])]; ok {
		ai.Reaction = []AllergyReaction{{Severity: severity}}
	}

	ai.Provenance = &Provenance{
		RecordHash: rec.PreservationHash,
		ResourceHash: preservation.ResourceDigest(map[string]string{
			"substance": fields["substance"],
			"severity":  fields["severity"],
		}),
		Original: fields,
	}

	return ai
}

// VerifyIntegrity confirms that every preservation digest present in the
// input sections appears among the resources' attached provenance. Narrative
// records are enhancement-eligible text, never canonicalized, and are
// excluded from the closure. Any missing digest is a hard integrity failure.
func (t *Transformer) VerifyIntegrity(sections map[ccda.SectionKind][]ccda.Record, resources []Resource) bool {
	attached := make(map[string]bool, len(resources))
	for _, res := range resources {
		if prov := res.ProvenanceBlock(); prov != nil {
			attached[prov.RecordHash] = true
		}
	}

	for kind, records := range sections {
		if kind == ccda.SectionNarrative {
			continue
		}
		for _, rec := range records {
			if !attached[rec.PreservationHash] {
				t.logger.Error().
					Str("section", kind.String()).
					Msg("preservation hash missing from canonical resources")
				return false
			}
		}
	}

	return true
}

// dosageText renders the human-facing dosage instruction from the extracted
// fields: amount, frequency, and route joined in source order.
func dosageText(fields map[string]string) string {
	var parts []string
	for _, key := range []string{"dosage", "frequency", "route"} {
		if v := fields[key]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// splitQuantity parses an extracted "{value} {unit}" dosage string.
func splitQuantity(s string) (decimal.Decimal, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, "", false
	}
	parts := strings.SplitN(s, " ", 2)
	v, err := decimal.NewFromString(parts[0])
	if err != nil {
		return decimal.Decimal{}, "", false
	}
	unit := ""
	if len(parts) == 2 {
		unit = parts[1]
	}
	return v, unit, true
}

// parseFrequency inverts the extractor's "Every {period} {unit}" synthesis.
func parseFrequency(s string) (decimal.Decimal, string, bool) {
	rest, ok := strings.CutPrefix(s, "Every ")
	if !ok {
		return decimal.Decimal{}, "", false
	}
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) != 2 {
		return decimal.Decimal{}, "", false
	}
	period, err := decimal.NewFromString(parts[0])
	if err != nil {
		return decimal.Decimal{}, "", false
	}
	return period, parts[1], true
}

// formatTimestamp converts a compact HL7 time (YYYYMMDD or YYYYMMDDHHMMSS)
// to ISO-8601: date-only when no time component is present. Unrecognized
// shapes pass through unchanged.
func formatTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if !allDigits(s) {
		return s
	}
	switch len(s) {
	case 8:
		return s[:4] + "-" + s[4:6] + "-" + s[6:8]
	case 14:
		return s[:4] + "-" + s[4:6] + "-" + s[6:8] + "T" + s[8:10] + ":" + s[10:12] + ":" + s[12:14]
	default:
		return s
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
