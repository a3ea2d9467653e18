package fhir

import (
	"fmt"
	"strings"
)

// MedicationFields are the human-facing values derived from a canonical
// medication request. Name is always non-empty; the remaining fields may be
// empty strings when the resource carries no dosage instructions.
type MedicationFields struct {
	Name         string
	Dosage       string
	Frequency    string
	Route        string
	Instructions string
}

// ExtractMedicationFields derives display values from a canonical medication
// request, regardless of which ingestion path produced it. Non-positive
// dose, frequency, or period values and unresolvable names are rejected
// before any string is produced. A resource with an empty dosage-instruction
// list is valid: dosage, frequency, and route come back empty.
func ExtractMedicationFields(mr *MedicationRequest) (MedicationFields, error) {
	if mr == nil {
		return MedicationFields{}, &ValidationError{Msg: "medication request is nil"}
	}

	name, err := medicationName(mr)
	if err != nil {
		return MedicationFields{}, err
	}

	// Validate every numeric value up front so that no partially built
	// result escapes on failure. Absent values are not zero values: a
	// missing dose, frequency, or period skips its rendering below, while
	// an explicit non-positive value is rejected.
	for _, d := range mr.DosageInstruction {
		for _, dr := range d.DoseAndRate {
			if dr.DoseQuantity != nil && dr.DoseQuantity.Value != nil && dr.DoseQuantity.Value.Sign() <= 0 {
				return MedicationFields{}, &ValidationError{Msg: "dose value must be positive"}
			}
		}
		if d.Timing != nil && d.Timing.Repeat != nil {
			r := d.Timing.Repeat
			if r.Frequency != nil && *r.Frequency <= 0 {
				return MedicationFields{}, &ValidationError{Msg: "frequency must be positive"}
			}
			if r.Period != nil && r.Period.Sign() <= 0 {
				return MedicationFields{}, &ValidationError{Msg: "period must be positive"}
			}
		}
	}

	out := MedicationFields{Name: name}

	if len(mr.DosageInstruction) > 0 {
		primary := mr.DosageInstruction[0]

		if len(primary.DoseAndRate) > 0 && primary.DoseAndRate[0].DoseQuantity != nil {
			dq := primary.DoseAndRate[0].DoseQuantity
			if dq.Value != nil {
				out.Dosage = strings.TrimSpace(dq.Value.String() + " " + dq.Unit)
			}
		}

		if primary.Timing != nil && primary.Timing.Repeat != nil {
			r := primary.Timing.Repeat
			if r.Frequency != nil && r.Period != nil {
				out.Frequency = fmt.Sprintf("%d time(s) per %s %s", *r.Frequency, r.Period.String(), r.PeriodUnit)
			}
		}

		if primary.Route != nil {
			out.Route = routeDisplay(primary.Route)
		}

		out.Instructions = instructions(mr.DosageInstruction)
	}

	return out, nil
}

// medicationName resolves the display name: concept text, then the first
// coding's display, then the reference display.
func medicationName(mr *MedicationRequest) (string, error) {
	if cc := mr.MedicationCodeableConcept; cc != nil {
		if name := strings.TrimSpace(cc.Text); name != "" {
			return name, nil
		}
		if len(cc.Coding) > 0 {
			if name := strings.TrimSpace(cc.Coding[0].Display); name != "" {
				return name, nil
			}
		}
	}
	if ref := mr.MedicationReference; ref != nil {
		if name := strings.TrimSpace(ref.Display); name != "" {
			return name, nil
		}
	}
	return "", &ValidationError{Msg: "medication name could not be resolved"}
}

// routeDisplay prefers the route text, then the first route coding display.
func routeDisplay(route *CodeableConcept) string {
	if route.Text != "" {
		return route.Text
	}
	if len(route.Coding) > 0 {
		return route.Coding[0].Display
	}
	return ""
}

// instructions concatenates the primary instruction text, the primary
// patient-facing instruction, and the text/patient-instruction pairs of any
// secondary dosage entries, separated by " | ".
func instructions(dosages []Dosage) string {
	var parts []string

	primary := dosages[0]
	if primary.Text != "" {
		parts = append(parts, primary.Text)
	}
	if primary.PatientInstruction != "" {
		parts = append(parts, primary.PatientInstruction)
	}

	for _, d := range dosages[1:] {
		if d.Text != "" {
			parts = append(parts, d.Text)
		}
		if d.PatientInstruction != "" {
			parts = append(parts, d.PatientInstruction)
		}
	}

	return strings.Join(parts, " | ")
}
