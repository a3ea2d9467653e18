// Package fhir defines the canonical resource form that both ingestion paths
// (CCDA XML and native structured bundles) converge on, the transformer that
// produces it, and the field extractor that derives human-facing values from
// it. Every canonical resource carries an immutable provenance block holding
// the originally extracted field values and their preservation digests.
package fhir

import "github.com/shopspring/decimal"

// ValidationError reports a resource that violates a domain invariant:
// missing required fields, non-positive numeric values, empty required
// names, or values outside a closed enumeration. Messages never echo
// resource content.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "fhir: " + e.Msg }

// Coding is a reference to a code defined by a terminology system.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept is a coded value with an optional plain-text rendering.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Reference points at another resource.
type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

// Quantity is a measured amount. Value uses decimal arithmetic so that the
// exact textual form survives the round trip from source documents. A nil
// Value means the quantity carried no amount, which is distinct from an
// explicit zero.
type Quantity struct {
	Value *decimal.Decimal `json:"value,omitempty"`
	Unit  string           `json:"unit,omitempty"`
	Code  string           `json:"code,omitempty"`
}

// Repeat is a timing repetition rule. Frequency and Period are pointers so
// that an absent element stays distinguishable from an explicit zero.
type Repeat struct {
	Frequency  *int             `json:"frequency,omitempty"`
	Period     *decimal.Decimal `json:"period,omitempty"`
	PeriodUnit string           `json:"periodUnit,omitempty"`
}

// Timing describes when a medication should be taken.
type Timing struct {
	Repeat *Repeat `json:"repeat,omitempty"`
}

// DoseAndRate carries a single dose amount.
type DoseAndRate struct {
	DoseQuantity *Quantity `json:"doseQuantity,omitempty"`
}

// Dosage is one dosage instruction of a medication request.
type Dosage struct {
	Sequence           int              `json:"sequence,omitempty"`
	Text               string           `json:"text,omitempty"`
	PatientInstruction string           `json:"patientInstruction,omitempty"`
	Timing             *Timing          `json:"timing,omitempty"`
	Route              *CodeableConcept `json:"route,omitempty"`
	DoseAndRate        []DoseAndRate    `json:"doseAndRate,omitempty"`
}

// Provenance is the immutable preservation block attached to every canonical
// resource: the originally extracted field values, byte for byte, plus their
// digests. It is never serialized back out with the resource and never
// discarded by any transformation stage.
type Provenance struct {
	// RecordHash is the 16-hex section-level digest stamped at extraction.
	// Empty for resources that entered through the native bundle path.
	RecordHash string
	// ResourceHash is the full 64-hex digest over the resource's critical
	// field subset.
	ResourceHash string
	// Original holds the extracted field values the digests were computed
	// over.
	Original map[string]string
}

// Resource is implemented by every canonical resource type.
type Resource interface {
	// ProvenanceBlock returns the attached preservation proof, or nil when
	// none has been attached yet.
	ProvenanceBlock() *Provenance
}

// MedicationRequest is the canonical form of a medication order, usable
// regardless of whether it originated from a CCDA section or a native
// structured bundle.
type MedicationRequest struct {
	ResourceType              string           `json:"resourceType"`
	ID                        string           `json:"id,omitempty"`
	Status                    string           `json:"status,omitempty"`
	Intent                    string           `json:"intent,omitempty"`
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	MedicationReference       *Reference       `json:"medicationReference,omitempty"`
	Subject                   *Reference       `json:"subject,omitempty"`
	DosageInstruction         []Dosage         `json:"dosageInstruction,omitempty"`

	Provenance *Provenance `json:"-"`
}

func (m *MedicationRequest) ProvenanceBlock() *Provenance { return m.Provenance }

// ObservationRange is a stated reference range.
type ObservationRange struct {
	Text string `json:"text,omitempty"`
}

// Observation is the canonical form of a lab result or vital sign.
type Observation struct {
	ResourceType      string             `json:"resourceType"`
	ID                string             `json:"id,omitempty"`
	Status            string             `json:"status,omitempty"`
	Category          []CodeableConcept  `json:"category,omitempty"`
	Code              *CodeableConcept   `json:"code,omitempty"`
	ValueQuantity     *Quantity          `json:"valueQuantity,omitempty"`
	ValueString       string             `json:"valueString,omitempty"`
	Interpretation    []CodeableConcept  `json:"interpretation,omitempty"`
	ReferenceRange    []ObservationRange `json:"referenceRange,omitempty"`
	EffectiveDateTime string             `json:"effectiveDateTime,omitempty"`

	Provenance *Provenance `json:"-"`
}

func (o *Observation) ProvenanceBlock() *Provenance { return o.Provenance }

// AllergyReaction holds the severity of an allergy reaction.
type AllergyReaction struct {
	Severity string `json:"severity,omitempty"`
}

// AllergyIntolerance is the canonical form of an allergy record.
type AllergyIntolerance struct {
	ResourceType string            `json:"resourceType"`
	ID           string            `json:"id,omitempty"`
	Code         *CodeableConcept  `json:"code,omitempty"`
	Reaction     []AllergyReaction `json:"reaction,omitempty"`

	Provenance *Provenance `json:"-"`
}

func (a *AllergyIntolerance) ProvenanceBlock() *Provenance { return a.Provenance }

// Observation category codes used by the transformer.
const (
	CategoryLaboratory = "laboratory"
	CategoryVitalSigns = "vital-signs"
)
