package ccda

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// sectionTemplates maps CDA section template identifiers to record kinds.
// Built once at init and never mutated, so concurrent extraction needs no
// locking. Identifiers not present here are skipped, not errored: newer
// document templates must not break ingestion of the sections we do know.
var sectionTemplates = map[string]SectionKind{
	OIDMedicationsSection: SectionMedications,
	OIDResultsSection:     SectionResults,
	OIDVitalSignsSection:  SectionVitalSigns,
	OIDAllergiesSection:   SectionAllergies,
}

// sectionLOINC is the fallback table for sections that declare a LOINC code
// but no template identifier.
var sectionLOINC = map[string]SectionKind{
	LOINCMedications: SectionMedications,
	LOINCResults:     SectionResults,
	LOINCVitalSigns:  SectionVitalSigns,
	LOINCAllergies:   SectionAllergies,
}

// Extractor walks a parsed CDA tree and produces clinical records per
// section. A single malformed entry is logged and dropped; the section keeps
// whatever entries succeeded. Only document-level structural failures abort
// the extraction.
type Extractor struct {
	logger zerolog.Logger
}

// NewExtractor creates an extractor with the given logger.
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract validates document-level structure and dispatches each recognized
// section to its per-kind entry extractor.
func (e *Extractor) Extract(doc *ClinicalDocument) (map[SectionKind][]Record, error) {
	if doc == nil {
		return nil, &ValidationError{Msg: "document tree is nil"}
	}
	if doc.XMLName.Local != "ClinicalDocument" {
		return nil, &ValidationError{Msg: "root element is not ClinicalDocument"}
	}

	// Conventionally-expected header children are warnings, not errors.
	if doc.RecordTarget == nil {
		e.logger.Warn().Msg("document has no recordTarget element")
	}
	if doc.Title == "" {
		e.logger.Warn().Msg("document has no title element")
	}
	if doc.EffectiveTime == nil {
		e.logger.Warn().Msg("document has no effectiveTime element")
	}

	records := make(map[SectionKind][]Record)

	if doc.Component == nil || doc.Component.StructuredBody == nil {
		e.logger.Warn().Msg("document has no structured body")
		return records, nil
	}

	for _, comp := range doc.Component.StructuredBody.Components {
		if comp.Section == nil {
			continue
		}
		section := comp.Section

		kind, ok := classifySection(section)
		if !ok {
			// Unknown sections with narrative text are still usable: the
			// text is enhancement-eligible downstream.
			if rec, textual := narrativeRecord(section); textual {
				records[SectionNarrative] = append(records[SectionNarrative], rec)
			}
			continue
		}

		// A recognized section with no surviving entries still appears in
		// the result, possibly empty; that is a designed outcome.
		records[kind] = append(records[kind], e.extractSection(kind, section)...)
	}

	return records, nil
}

// classifySection resolves a section to a kind via its template identifiers,
// falling back to its LOINC code.
func classifySection(section *Section) (SectionKind, bool) {
	for _, tid := range section.TemplateIDs {
		if kind, ok := sectionTemplates[tid.Root]; ok {
			return kind, true
		}
	}
	if section.Code != nil {
		if kind, ok := sectionLOINC[section.Code.Code]; ok {
			return kind, true
		}
	}
	return 0, false
}

// narrativeRecord builds an enhancement-eligible record from an unrecognized
// but textual section.
func narrativeRecord(section *Section) (Record, bool) {
	if section.Text == nil {
		return Record{}, false
	}
	text := strings.TrimSpace(section.Text.Content)
	if text == "" {
		return Record{}, false
	}
	fields := map[string]string{
		"title": section.Title,
		"text":  text,
	}
	return newRecord(SectionNarrative, fields, true), true
}

// extractSection runs the per-kind entry extractor over every entry,
// collecting successes and logging failures at entry granularity.
func (e *Extractor) extractSection(kind SectionKind, section *Section) []Record {
	var out []Record
	for i, entry := range section.Entries {
		rec, err := e.extractEntry(kind, entry)
		if err != nil {
			e.logger.Warn().
				Err(err).
				Str("section", kind.String()).
				Int("entry", i).
				Msg("dropping malformed section entry")
			continue
		}
		out = append(out, rec...)
	}
	return out
}

// extractEntry dispatches a single entry to its per-kind extractor. Organizer
// sections (labs, vitals) may yield multiple records per entry.
func (e *Extractor) extractEntry(kind SectionKind, entry Entry) ([]Record, error) {
	switch kind {
	case SectionMedications:
		rec, err := extractMedication(entry)
		if err != nil {
			return nil, err
		}
		return []Record{rec}, nil
	case SectionResults:
		return extractOrganizerObservations(SectionResults, "test", entry)
	case SectionVitalSigns:
		return extractOrganizerObservations(SectionVitalSigns, "vital_sign", entry)
	case SectionAllergies:
		rec, err := extractAllergy(entry)
		if err != nil {
			return nil, err
		}
		return []Record{rec}, nil
	default:
		return nil, &ValidationError{Msg: fmt.Sprintf("no extractor for section kind %q", kind)}
	}
}

// extractMedication reads a substanceAdministration entry into a medication
// record: substance name, dose amount and unit, route, a synthesized
// "Every {period} {unit}" frequency, and the status code.
func extractMedication(entry Entry) (Record, error) {
	sa := entry.SubstanceAdministration
	if sa == nil {
		return Record{}, &ValidationError{Msg: "medication entry has no substanceAdministration"}
	}

	name := medicationName(sa)
	if strings.TrimSpace(name) == "" {
		return Record{}, &ValidationError{Msg: "medication entry has no substance display name"}
	}

	fields := map[string]string{
		"medication": name,
	}

	if sa.DoseQuantity != nil && sa.DoseQuantity.Value != "" {
		if err := requirePositive("dose", sa.DoseQuantity.Value); err != nil {
			return Record{}, err
		}
		dosage := sa.DoseQuantity.Value
		if sa.DoseQuantity.Unit != "" {
			dosage += " " + sa.DoseQuantity.Unit
		}
		fields["dosage"] = dosage
	}

	if sa.RouteCode != nil && sa.RouteCode.DisplayName != "" {
		fields["route"] = sa.RouteCode.DisplayName
	}

	for _, et := range sa.EffectiveTimes {
		if et.Period == nil || et.Period.Value == "" {
			continue
		}
		if err := requirePositive("period", et.Period.Value); err != nil {
			return Record{}, err
		}
		fields["frequency"] = fmt.Sprintf("Every %s %s", et.Period.Value, et.Period.Unit)
		break
	}

	if sa.StatusCode != nil && sa.StatusCode.Code != "" {
		fields["status"] = sa.StatusCode.Code
	}

	return newRecord(SectionMedications, fields, false), nil
}

// extractOrganizerObservations reads lab result or vital sign observations
// out of an organizer entry. nameKey distinguishes the two record shapes
// ("test" for labs, "vital_sign" for vitals).
func extractOrganizerObservations(kind SectionKind, nameKey string, entry Entry) ([]Record, error) {
	org := entry.Organizer
	if org == nil {
		return nil, &ValidationError{Msg: kind.String() + " entry has no organizer"}
	}

	var out []Record
	for _, comp := range org.Components {
		obs := comp.Observation
		if obs == nil {
			continue
		}
		if obs.Code == nil || strings.TrimSpace(obs.Code.DisplayName) == "" {
			return nil, &ValidationError{Msg: kind.String() + " observation has no display name"}
		}

		fields := map[string]string{
			nameKey: obs.Code.DisplayName,
		}
		if obs.Code.Code != "" {
			fields["code"] = obs.Code.Code
		}
		if obs.Value != nil {
			if obs.Value.Value != "" {
				fields["value"] = obs.Value.Value
			}
			if obs.Value.Unit != "" {
				fields["unit"] = obs.Value.Unit
			}
		}
		if obs.ReferenceRange != nil && obs.ReferenceRange.ObservationRange != nil {
			if text := strings.TrimSpace(obs.ReferenceRange.ObservationRange.Text); text != "" {
				fields["reference_range"] = text
			}
		}
		if obs.InterpretationCode != nil && obs.InterpretationCode.Code != "" {
			fields["interpretation"] = obs.InterpretationCode.Code
		}
		if ts := observationTimestamp(obs.EffectiveTime); ts != "" {
			fields["timestamp"] = ts
		}

		out = append(out, newRecord(kind, fields, false))
	}

	return out, nil
}

// extractAllergy reads an allergy concern act: the allergen display name and,
// when present, the nested severity observation's display value.
func extractAllergy(entry Entry) (Record, error) {
	act := entry.Act
	if act == nil {
		return Record{}, &ValidationError{Msg: "allergy entry has no act"}
	}

	var obs *ObservationEntry
	for _, er := range act.EntryRelationships {
		if er.Observation != nil {
			obs = er.Observation
			break
		}
	}
	if obs == nil {
		return Record{}, &ValidationError{Msg: "allergy entry has no observation"}
	}

	name := allergenName(obs)
	if strings.TrimSpace(name) == "" {
		return Record{}, &ValidationError{Msg: "allergy entry has no allergen display name"}
	}

	fields := map[string]string{
		"substance": name,
	}
	if severity := severityDisplay(obs); severity != "" {
		fields["severity"] = severity
	}

	return newRecord(SectionAllergies, fields, false), nil
}

// medicationName resolves the substance display name from the consumable.
func medicationName(sa *SubstanceAdministration) string {
	if sa.Consumable == nil || sa.Consumable.ManufacturedProduct == nil {
		return ""
	}
	mat := sa.Consumable.ManufacturedProduct.ManufacturedMaterial
	if mat == nil || mat.Code == nil {
		return ""
	}
	return mat.Code.DisplayName
}

// allergenName prefers the participant's playing entity code, falling back to
// the observation value display.
func allergenName(obs *ObservationEntry) string {
	if obs.Participant != nil && obs.Participant.ParticipantRole != nil {
		if pe := obs.Participant.ParticipantRole.PlayingEntity; pe != nil && pe.Code != nil && pe.Code.DisplayName != "" {
			return pe.Code.DisplayName
		}
	}
	if obs.Value != nil {
		return obs.Value.DisplayName
	}
	return ""
}

// severityDisplay finds a nested severity observation (code SEV) and returns
// its value display name.
func severityDisplay(obs *ObservationEntry) string {
	for _, er := range obs.EntryRelationships {
		sev := er.Observation
		if sev == nil || sev.Code == nil || sev.Code.Code != "SEV" {
			continue
		}
		if sev.Value != nil {
			return sev.Value.DisplayName
		}
	}
	return ""
}

// observationTimestamp prefers a point-in-time value, then the interval low.
func observationTimestamp(et *EffectiveTime) string {
	if et == nil {
		return ""
	}
	if et.Value != "" {
		return et.Value
	}
	if et.Low != nil {
		return et.Low.Value
	}
	return ""
}

// requirePositive enforces the strict-positivity floor on numeric dose and
// period attributes. The offending value is not echoed into the error.
func requirePositive(what, raw string) error {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return &ValidationError{Msg: what + " value is not numeric"}
	}
	if v <= 0 {
		return &ValidationError{Msg: what + " value must be positive"}
	}
	return nil
}
