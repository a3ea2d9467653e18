package summary

import "time"

// FieldFlag records how a single summary field was handled.
type FieldFlag struct {
	Critical    bool `json:"critical"`
	AIProcessed bool `json:"aiProcessed"`
}

// ProcessingMetadata is stamped onto each assembled summary.
type ProcessingMetadata struct {
	DocumentID  string               `json:"documentId"`
	ProcessedAt time.Time            `json:"processedAt"`
	Version     string               `json:"version"`
	Fields      map[string]FieldFlag `json:"fields"`
}

// MedicationSummary carries one medication with its critical fields verbatim
// and optional narrative additions.
type MedicationSummary struct {
	Name             string `json:"name"`
	Dosage           string `json:"dosage,omitempty"`
	Frequency        string `json:"frequency,omitempty"`
	Route            string `json:"route,omitempty"`
	Instructions     string `json:"instructions,omitempty"`
	Status           string `json:"status,omitempty"`
	Intent           string `json:"intent,omitempty"`
	Purpose          string `json:"purpose,omitempty"`
	ImportantNotes   string `json:"importantNotes,omitempty"`
	PreservationHash string `json:"preservationHash,omitempty"`
}

// LabResultSummary carries one laboratory result.
type LabResultSummary struct {
	Name             string `json:"name"`
	Value            string `json:"value,omitempty"`
	Range            string `json:"range,omitempty"`
	Units            string `json:"units,omitempty"`
	Interpretation   string `json:"interpretation,omitempty"`
	Timestamp        string `json:"timestamp,omitempty"`
	PreservationHash string `json:"preservationHash,omitempty"`
}

// VitalSignSummary carries one vital sign reading.
type VitalSignSummary struct {
	Type             string `json:"type"`
	Value            string `json:"value,omitempty"`
	Units            string `json:"units,omitempty"`
	Timestamp        string `json:"timestamp,omitempty"`
	PreservationHash string `json:"preservationHash,omitempty"`
}

// AllergySummary carries one allergy or intolerance.
type AllergySummary struct {
	Substance        string `json:"substance"`
	Reaction         string `json:"reaction,omitempty"`
	Severity         string `json:"severity,omitempty"`
	PreservationHash string `json:"preservationHash,omitempty"`
}

// NarrativeBlock is a free-text section. Enhanced holds the transformed text
// when enhancement ran and passed validation; otherwise it equals Original.
type NarrativeBlock struct {
	Title       string `json:"title"`
	Original    string `json:"original"`
	Enhanced    string `json:"enhanced,omitempty"`
	AIProcessed bool   `json:"aiProcessed"`
}

// SafetyValidation is the machine-checkable outcome of comparing a processed
// summary against its pre-processing state.
type SafetyValidation struct {
	Passed                  bool     `json:"passed"`
	Errors                  []string `json:"errors,omitempty"`
	Warnings                []string `json:"warnings,omitempty"`
	CriticalFieldsPreserved int      `json:"criticalFieldsPreserved"`
	AIProcessedFields       []string `json:"aiProcessedFields,omitempty"`
}

// ClinicalSummary is the assembled, validated output of a processing run.
type ClinicalSummary struct {
	Medications []MedicationSummary `json:"medications,omitempty"`
	LabResults  []LabResultSummary  `json:"labResults,omitempty"`
	VitalSigns  []VitalSignSummary  `json:"vitalSigns,omitempty"`
	Allergies   []AllergySummary    `json:"allergies,omitempty"`
	Narratives  []NarrativeBlock    `json:"narratives,omitempty"`
	Metadata    ProcessingMetadata  `json:"metadata"`
	Validation  SafetyValidation    `json:"validation"`
}
