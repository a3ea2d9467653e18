package ccda

import "encoding/xml"

// CDA OIDs and template identifiers for C-CDA 2.1 CCD documents.
const (
	// CDA namespace
	CDANamespace = "urn:hl7-org:v3"
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

	// Document-level template IDs
	OIDUSRealmHeader = "2.16.840.1.113883.10.20.22.1.1"
	OIDCCDDocument   = "2.16.840.1.113883.10.20.22.1.2"

	// Section-level template IDs
	OIDAllergiesSection   = "2.16.840.1.113883.10.20.22.2.6.1"
	OIDMedicationsSection = "2.16.840.1.113883.10.20.22.2.1.1"
	OIDResultsSection     = "2.16.840.1.113883.10.20.22.2.3.1"
	OIDVitalSignsSection  = "2.16.840.1.113883.10.20.22.2.4.1"

	// LOINC codes for section identification (fallback when no templateId)
	LOINCAllergies   = "48765-2"
	LOINCMedications = "10160-0"
	LOINCResults     = "30954-2"
	LOINCVitalSigns  = "8716-3"

	// Code system OIDs
	OIDLOINC  = "2.16.840.1.113883.6.1"
	OIDSNOMED = "2.16.840.1.113883.6.96"
	OIDRxNorm = "2.16.840.1.113883.6.88"
)

// ClinicalDocument is the root element of a CDA R2 document.
type ClinicalDocument struct {
	XMLName       xml.Name      `xml:"urn:hl7-org:v3 ClinicalDocument"`
	RealmCode     *Code         `xml:"realmCode,omitempty"`
	TypeID        *TypeID       `xml:"typeId,omitempty"`
	TemplateIDs   []TemplateID  `xml:"templateId,omitempty"`
	ID            *InstanceID   `xml:"id,omitempty"`
	Code          *Code         `xml:"code,omitempty"`
	Title         string        `xml:"title,omitempty"`
	EffectiveTime *TimeValue    `xml:"effectiveTime,omitempty"`
	LanguageCode  *Code         `xml:"languageCode,omitempty"`
	RecordTarget  *RecordTarget `xml:"recordTarget,omitempty"`
	Component     *Component    `xml:"component,omitempty"`
}

// TypeID identifies the CDA R2 schema.
type TypeID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr"`
}

// TemplateID specifies a template identifier with optional extension.
type TemplateID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr,omitempty"`
}

// InstanceID is a unique instance identifier.
type InstanceID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr,omitempty"`
}

// Code represents a coded value with optional code system.
type Code struct {
	Code           string `xml:"code,attr,omitempty"`
	CodeSystem     string `xml:"codeSystem,attr,omitempty"`
	CodeSystemName string `xml:"codeSystemName,attr,omitempty"`
	DisplayName    string `xml:"displayName,attr,omitempty"`
	NullFlavor     string `xml:"nullFlavor,attr,omitempty"`
}

// TimeValue holds a time stamp in HL7 format (YYYYMMDD or YYYYMMDDHHmmss).
type TimeValue struct {
	Value string `xml:"value,attr,omitempty"`
}

// TimeBoundary represents a low or high boundary of a time interval.
type TimeBoundary struct {
	Value string `xml:"value,attr,omitempty"`
}

// EffectiveTime covers the CDA effectiveTime shapes this core reads: a point
// value, an IVL_TS interval, or a PIVL_TS dosing period.
type EffectiveTime struct {
	Type   string        `xml:"type,attr,omitempty"`
	Value  string        `xml:"value,attr,omitempty"`
	Low    *TimeBoundary `xml:"low,omitempty"`
	High   *TimeBoundary `xml:"high,omitempty"`
	Period *PeriodValue  `xml:"period,omitempty"`
}

// PeriodValue is the dosing period of a PIVL_TS effectiveTime.
type PeriodValue struct {
	Value string `xml:"value,attr,omitempty"`
	Unit  string `xml:"unit,attr,omitempty"`
}

// RecordTarget holds the patient information in the CDA header.
type RecordTarget struct {
	PatientRole *PatientRole `xml:"patientRole,omitempty"`
}

// PatientRole contains patient identifiers.
type PatientRole struct {
	IDs []InstanceID `xml:"id,omitempty"`
}

// Component wraps the structured body of the CDA document.
type Component struct {
	StructuredBody *StructuredBody `xml:"structuredBody,omitempty"`
}

// StructuredBody holds the document sections.
type StructuredBody struct {
	Components []SectionComponent `xml:"component,omitempty"`
}

// SectionComponent wraps a single section.
type SectionComponent struct {
	Section *Section `xml:"section,omitempty"`
}

// Section represents a CDA section with template, code, narrative, and entries.
type Section struct {
	TemplateIDs []TemplateID `xml:"templateId,omitempty"`
	Code        *Code        `xml:"code,omitempty"`
	Title       string       `xml:"title,omitempty"`
	Text        *Narrative   `xml:"text,omitempty"`
	Entries     []Entry      `xml:"entry,omitempty"`
}

// Narrative holds the human-readable narrative block for a section.
type Narrative struct {
	Content string `xml:",innerxml"`
}

// Entry represents a CDA entry element containing clinical data.
type Entry struct {
	TypeCode                string                   `xml:"typeCode,attr,omitempty"`
	Act                     *Act                     `xml:"act,omitempty"`
	Organizer               *Organizer               `xml:"organizer,omitempty"`
	SubstanceAdministration *SubstanceAdministration `xml:"substanceAdministration,omitempty"`
	Observation             *ObservationEntry        `xml:"observation,omitempty"`
}

// Act represents a CDA act element (allergy concern acts, etc.).
type Act struct {
	ClassCode          string              `xml:"classCode,attr,omitempty"`
	MoodCode           string              `xml:"moodCode,attr,omitempty"`
	TemplateIDs        []TemplateID        `xml:"templateId,omitempty"`
	IDs                []InstanceID        `xml:"id,omitempty"`
	Code               *Code               `xml:"code,omitempty"`
	StatusCode         *Code               `xml:"statusCode,omitempty"`
	EffectiveTime      *EffectiveTime      `xml:"effectiveTime,omitempty"`
	EntryRelationships []EntryRelationship `xml:"entryRelationship,omitempty"`
}

// EntryRelationship links entries together.
type EntryRelationship struct {
	TypeCode    string            `xml:"typeCode,attr,omitempty"`
	Observation *ObservationEntry `xml:"observation,omitempty"`
}

// ObservationEntry represents a CDA observation.
type ObservationEntry struct {
	ClassCode          string              `xml:"classCode,attr,omitempty"`
	MoodCode           string              `xml:"moodCode,attr,omitempty"`
	TemplateIDs        []TemplateID        `xml:"templateId,omitempty"`
	IDs                []InstanceID        `xml:"id,omitempty"`
	Code               *Code               `xml:"code,omitempty"`
	StatusCode         *Code               `xml:"statusCode,omitempty"`
	EffectiveTime      *EffectiveTime      `xml:"effectiveTime,omitempty"`
	Value              *Value              `xml:"value,omitempty"`
	InterpretationCode *Code               `xml:"interpretationCode,omitempty"`
	ReferenceRange     *ReferenceRange     `xml:"referenceRange,omitempty"`
	Participant        *Participant        `xml:"participant,omitempty"`
	EntryRelationships []EntryRelationship `xml:"entryRelationship,omitempty"`
}

// Value represents a typed value (physical quantity, coded value, etc.).
type Value struct {
	Type        string `xml:"type,attr,omitempty"`
	Value       string `xml:"value,attr,omitempty"`
	Unit        string `xml:"unit,attr,omitempty"`
	Code        string `xml:"code,attr,omitempty"`
	CodeSystem  string `xml:"codeSystem,attr,omitempty"`
	DisplayName string `xml:"displayName,attr,omitempty"`
}

// ReferenceRange holds the stated normal range for an observation.
type ReferenceRange struct {
	ObservationRange *ObservationRange `xml:"observationRange,omitempty"`
}

// ObservationRange carries the textual reference range.
type ObservationRange struct {
	Text string `xml:"text,omitempty"`
}

// Participant represents a participant in an entry (the allergen for
// allergy observations).
type Participant struct {
	TypeCode        string           `xml:"typeCode,attr,omitempty"`
	ParticipantRole *ParticipantRole `xml:"participantRole,omitempty"`
}

// ParticipantRole holds participant role information.
type ParticipantRole struct {
	ClassCode     string         `xml:"classCode,attr,omitempty"`
	PlayingEntity *PlayingEntity `xml:"playingEntity,omitempty"`
}

// PlayingEntity holds an entity name and code.
type PlayingEntity struct {
	ClassCode string `xml:"classCode,attr,omitempty"`
	Code      *Code  `xml:"code,omitempty"`
	Name      string `xml:"name,omitempty"`
}

// SubstanceAdministration represents a medication entry.
type SubstanceAdministration struct {
	ClassCode      string          `xml:"classCode,attr,omitempty"`
	MoodCode       string          `xml:"moodCode,attr,omitempty"`
	TemplateIDs    []TemplateID    `xml:"templateId,omitempty"`
	IDs            []InstanceID    `xml:"id,omitempty"`
	StatusCode     *Code           `xml:"statusCode,omitempty"`
	EffectiveTimes []EffectiveTime `xml:"effectiveTime,omitempty"`
	RouteCode      *Code           `xml:"routeCode,omitempty"`
	DoseQuantity   *Value          `xml:"doseQuantity,omitempty"`
	Consumable     *Consumable     `xml:"consumable,omitempty"`
}

// Consumable wraps a manufactured product (medication).
type Consumable struct {
	ManufacturedProduct *ManufacturedProduct `xml:"manufacturedProduct,omitempty"`
}

// ManufacturedProduct holds a medication material.
type ManufacturedProduct struct {
	TemplateIDs          []TemplateID          `xml:"templateId,omitempty"`
	ManufacturedMaterial *ManufacturedMaterial `xml:"manufacturedMaterial,omitempty"`
}

// ManufacturedMaterial holds the medication code.
type ManufacturedMaterial struct {
	Code *Code `xml:"code,omitempty"`
}

// Organizer groups related observations (lab panels, vital sign sets).
type Organizer struct {
	ClassCode     string               `xml:"classCode,attr,omitempty"`
	MoodCode      string               `xml:"moodCode,attr,omitempty"`
	TemplateIDs   []TemplateID         `xml:"templateId,omitempty"`
	IDs           []InstanceID         `xml:"id,omitempty"`
	Code          *Code                `xml:"code,omitempty"`
	StatusCode    *Code                `xml:"statusCode,omitempty"`
	EffectiveTime *EffectiveTime       `xml:"effectiveTime,omitempty"`
	Components    []OrganizerComponent `xml:"component,omitempty"`
}

// OrganizerComponent wraps an observation inside an organizer.
type OrganizerComponent struct {
	Observation *ObservationEntry `xml:"observation,omitempty"`
}
