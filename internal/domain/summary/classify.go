package summary

// Sensitivity partitions every summary field into exactly two classes:
// critical fields are preserved byte for byte and never eligible for text
// transformation; narrative fields may be routed through the external
// enhancer.
type Sensitivity int

const (
	// Critical fields must never be altered by any text transformation.
	Critical Sensitivity = iota
	// Narrative fields are eligible for optional downstream enhancement.
	Narrative
)

func (s Sensitivity) String() string {
	if s == Narrative {
		return "narrative"
	}
	return "critical"
}

// DataType names a class of summary record for classification purposes.
type DataType string

const (
	DataMedication  DataType = "medication"
	DataLabResult   DataType = "lab_result"
	DataVitalSign   DataType = "vital_sign"
	DataAllergy     DataType = "allergy"
	DataAppointment DataType = "appointment"
	DataNarrative   DataType = "narrative"
)

// classificationTables is the fixed field partition per data type. Built once
// and never mutated, so concurrent classification needs no locking. Fields
// not listed default to Critical: an unclassified field must never leak into
// the enhancer.
var classificationTables = map[DataType]map[string]Sensitivity{
	DataMedication: {
		"name":            Critical,
		"dosage":          Critical,
		"frequency":       Critical,
		"route":           Critical,
		"instructions":    Critical,
		"status":          Critical,
		"intent":          Critical,
		"purpose":         Narrative,
		"important_notes": Narrative,
	},
	DataLabResult: {
		"name":  Critical,
		"value": Critical,
		"range": Critical,
		"units": Critical,
	},
	DataVitalSign: {
		"type":      Critical,
		"value":     Critical,
		"units":     Critical,
		"timestamp": Critical,
	},
	DataAllergy: {
		"substance": Critical,
		"reaction":  Critical,
		"severity":  Critical,
	},
	DataAppointment: {
		"date":     Critical,
		"time":     Critical,
		"provider": Critical,
		"location": Critical,
		"phone":    Critical,
	},
	DataNarrative: {
		"chief_complaint":       Narrative,
		"diagnosis_explanation": Narrative,
		"care_instructions":     Narrative,
		"follow_up_guidance":    Narrative,
	},
}

// Classify returns the sensitivity of a field within a data type. Unknown
// fields of clinical data types are Critical; the narrative data type is
// Narrative throughout, since its records exist only to carry free text.
func Classify(dt DataType, field string) Sensitivity {
	if table, ok := classificationTables[dt]; ok {
		if s, ok := table[field]; ok {
			return s
		}
	}
	if dt == DataNarrative {
		return Narrative
	}
	return Critical
}

// CriticalFields returns the critical field names of a data type, for
// building per-field metadata flags.
func CriticalFields(dt DataType) []string {
	table := classificationTables[dt]
	out := make([]string, 0, len(table))
	for field, s := range table {
		if s == Critical {
			out = append(out, field)
		}
	}
	return out
}
