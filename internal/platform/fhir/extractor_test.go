package fhir

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func intp(n int) *int { return &n }

func validMedicationRequest() *MedicationRequest {
	return &MedicationRequest{
		ResourceType:              "MedicationRequest",
		Status:                    "active",
		Intent:                    "order",
		MedicationCodeableConcept: &CodeableConcept{Text: "Metformin Hydrochloride 500 MG Oral Tablet"},
		DosageInstruction: []Dosage{{
			Sequence:           1,
			Text:               "Take one tablet twice daily with meals",
			PatientInstruction: "Take with food to reduce stomach upset",
			Timing:             &Timing{Repeat: &Repeat{Frequency: intp(1), Period: dec("1"), PeriodUnit: "d"}},
			Route:              &CodeableConcept{Text: "Oral"},
			DoseAndRate:        []DoseAndRate{{DoseQuantity: &Quantity{Value: dec("10"), Unit: "mg"}}},
		}},
	}
}

func TestExtractMedicationFields_Complete(t *testing.T) {
	fields, err := ExtractMedicationFields(validMedicationRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fields.Name != "Metformin Hydrochloride 500 MG Oral Tablet" {
		t.Errorf("unexpected name: %q", fields.Name)
	}
	if fields.Dosage != "10 mg" {
		t.Errorf("expected dosage '10 mg', got %q", fields.Dosage)
	}
	if fields.Frequency != "1 time(s) per 1 d" {
		t.Errorf("expected frequency '1 time(s) per 1 d', got %q", fields.Frequency)
	}
	if fields.Route != "Oral" {
		t.Errorf("expected route 'Oral', got %q", fields.Route)
	}
	want := "Take one tablet twice daily with meals | Take with food to reduce stomach upset"
	if fields.Instructions != want {
		t.Errorf("expected instructions %q, got %q", want, fields.Instructions)
	}
}

func TestExtractMedicationFields_NameResolutionOrder(t *testing.T) {
	// Text wins over coding display.
	mr := validMedicationRequest()
	mr.MedicationCodeableConcept = &CodeableConcept{
		Text:   "Primary Name",
		Coding: []Coding{{Display: "Coding Name"}},
	}
	fields, err := ExtractMedicationFields(mr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields.Name != "Primary Name" {
		t.Errorf("expected text to win, got %q", fields.Name)
	}

	// Coding display when text is empty.
	mr.MedicationCodeableConcept = &CodeableConcept{Coding: []Coding{{Display: "Coding Name"}}}
	fields, err = ExtractMedicationFields(mr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields.Name != "Coding Name" {
		t.Errorf("expected coding display, got %q", fields.Name)
	}

	// Reference display as last resort.
	mr.MedicationCodeableConcept = nil
	mr.MedicationReference = &Reference{Display: "Reference Name"}
	fields, err = ExtractMedicationFields(mr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields.Name != "Reference Name" {
		t.Errorf("expected reference display, got %q", fields.Name)
	}
}

func TestExtractMedicationFields_EmptyNameRejected(t *testing.T) {
	mr := validMedicationRequest()
	mr.MedicationCodeableConcept = &CodeableConcept{Text: ""}
	mr.MedicationReference = nil

	_, err := ExtractMedicationFields(mr)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for empty name, got %v", err)
	}

	// Whitespace-only text is also empty after trimming.
	mr.MedicationCodeableConcept = &CodeableConcept{Text: "   "}
	_, err = ExtractMedicationFields(mr)
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for whitespace name, got %v", err)
	}
}

func TestExtractMedicationFields_EmptyDosageListIsSuccess(t *testing.T) {
	mr := validMedicationRequest()
	mr.DosageInstruction = nil

	fields, err := ExtractMedicationFields(mr)
	if err != nil {
		t.Fatalf("empty dosage instruction list must be success, got %v", err)
	}

	if fields.Name == "" {
		t.Error("expected name to survive")
	}
	if fields.Dosage != "" || fields.Frequency != "" || fields.Route != "" || fields.Instructions != "" {
		t.Errorf("expected empty derived fields, got %+v", fields)
	}
}

func TestExtractMedicationFields_NonPositiveValuesRejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MedicationRequest)
	}{
		{"zero dose", func(mr *MedicationRequest) {
			mr.DosageInstruction[0].DoseAndRate[0].DoseQuantity.Value = dec("0")
		}},
		{"negative dose", func(mr *MedicationRequest) {
			mr.DosageInstruction[0].DoseAndRate[0].DoseQuantity.Value = dec("-5")
		}},
		{"zero frequency", func(mr *MedicationRequest) {
			mr.DosageInstruction[0].Timing.Repeat.Frequency = intp(0)
		}},
		{"negative period", func(mr *MedicationRequest) {
			mr.DosageInstruction[0].Timing.Repeat.Period = dec("-1")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := validMedicationRequest()
			tt.mutate(mr)

			_, err := ExtractMedicationFields(mr)
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestExtractMedicationFields_AbsentRepeatFrequency(t *testing.T) {
	// A repeat that states a period but no frequency is incomplete, not
	// invalid: the frequency rendering is skipped, everything else survives.
	mr := validMedicationRequest()
	mr.DosageInstruction[0].Timing.Repeat.Frequency = nil

	fields, err := ExtractMedicationFields(mr)
	if err != nil {
		t.Fatalf("absent frequency must not be rejected: %v", err)
	}
	if fields.Frequency != "" {
		t.Errorf("expected empty frequency, got %q", fields.Frequency)
	}
	if fields.Dosage != "10 mg" {
		t.Errorf("expected dosage to survive, got %q", fields.Dosage)
	}
}

func TestExtractMedicationFields_AbsentRepeatPeriod(t *testing.T) {
	mr := validMedicationRequest()
	mr.DosageInstruction[0].Timing.Repeat.Period = nil

	fields, err := ExtractMedicationFields(mr)
	if err != nil {
		t.Fatalf("absent period must not be rejected: %v", err)
	}
	if fields.Frequency != "" {
		t.Errorf("expected empty frequency, got %q", fields.Frequency)
	}
}

func TestExtractMedicationFields_AbsentDoseValue(t *testing.T) {
	mr := validMedicationRequest()
	mr.DosageInstruction[0].DoseAndRate[0].DoseQuantity.Value = nil

	fields, err := ExtractMedicationFields(mr)
	if err != nil {
		t.Fatalf("absent dose value must not be rejected: %v", err)
	}
	if fields.Dosage != "" {
		t.Errorf("expected empty dosage, got %q", fields.Dosage)
	}
	if fields.Frequency != "1 time(s) per 1 d" {
		t.Errorf("expected frequency to survive, got %q", fields.Frequency)
	}
}

func TestExtractMedicationFields_SecondaryDosageInstructions(t *testing.T) {
	mr := validMedicationRequest()
	mr.DosageInstruction = append(mr.DosageInstruction, Dosage{
		Sequence:           2,
		Text:               "Increase to two tablets after one week",
		PatientInstruction: "Only if tolerated",
	})

	fields, err := ExtractMedicationFields(mr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Take one tablet twice daily with meals | Take with food to reduce stomach upset | " +
		"Increase to two tablets after one week | Only if tolerated"
	if fields.Instructions != want {
		t.Errorf("expected %q, got %q", want, fields.Instructions)
	}
}

func TestExtractMedicationFields_RouteCodingFallback(t *testing.T) {
	mr := validMedicationRequest()
	mr.DosageInstruction[0].Route = &CodeableConcept{Coding: []Coding{{Display: "Intravenous"}}}

	fields, err := ExtractMedicationFields(mr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields.Route != "Intravenous" {
		t.Errorf("expected coding display fallback, got %q", fields.Route)
	}
}

func TestExtractMedicationFields_NilResource(t *testing.T) {
	_, err := ExtractMedicationFields(nil)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for nil resource, got %v", err)
	}
}
