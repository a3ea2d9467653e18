package fhir

import (
	"encoding/json"

	"github.com/clinsafe/clinsafe/internal/platform/preservation"
)

// medicationRequestStatuses is the closed set of acceptable statuses for
// native structured input. Unrecognized values are rejected, never passed
// through as valid.
var medicationRequestStatuses = map[string]bool{
	"active": true, "on-hold": true, "cancelled": true, "completed": true,
	"entered-in-error": true, "stopped": true, "draft": true, "unknown": true,
}

// medicationRequestIntents is the closed set of acceptable intents.
var medicationRequestIntents = map[string]bool{
	"proposal": true, "plan": true, "order": true, "original-order": true,
	"reflex-order": true, "filler-order": true, "instance-order": true, "option": true,
}

type bundleEnvelope struct {
	ResourceType string        `json:"resourceType"`
	Entry        []bundleEntry `json:"entry"`
}

type bundleEntry struct {
	Resource json.RawMessage `json:"resource"`
}

type resourceProbe struct {
	ResourceType string `json:"resourceType"`
}

// ParseBundle decodes native structured input: either a Bundle of resources
// or a single MedicationRequest. Only medication requests are consumed from
// bundles; other entry types are skipped. Each parsed request is validated
// against the closed status/intent sets and gets its provenance block
// attached before return.
func ParseBundle(data []byte) ([]*MedicationRequest, error) {
	var probe resourceProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &ValidationError{Msg: "input is not valid JSON"}
	}

	switch probe.ResourceType {
	case "Bundle":
		var env bundleEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &ValidationError{Msg: "bundle shape is invalid"}
		}
		var out []*MedicationRequest
		for _, entry := range env.Entry {
			var p resourceProbe
			if err := json.Unmarshal(entry.Resource, &p); err != nil {
				return nil, &ValidationError{Msg: "bundle entry is not a resource"}
			}
			if p.ResourceType != "MedicationRequest" {
				continue
			}
			mr, err := parseMedicationRequest(entry.Resource)
			if err != nil {
				return nil, err
			}
			out = append(out, mr)
		}
		return out, nil

	case "MedicationRequest":
		mr, err := parseMedicationRequest(data)
		if err != nil {
			return nil, err
		}
		return []*MedicationRequest{mr}, nil

	default:
		return nil, &ValidationError{Msg: "unsupported resourceType"}
	}
}

// parseMedicationRequest decodes and validates a single medication request.
func parseMedicationRequest(data []byte) (*MedicationRequest, error) {
	var mr MedicationRequest
	if err := json.Unmarshal(data, &mr); err != nil {
		return nil, &ValidationError{Msg: "medication request shape is invalid"}
	}

	if mr.Status == "" || !medicationRequestStatuses[mr.Status] {
		return nil, &ValidationError{Msg: "status is not in the accepted set"}
	}
	if mr.Intent == "" || !medicationRequestIntents[mr.Intent] {
		return nil, &ValidationError{Msg: "intent is not in the accepted set"}
	}
	if mr.MedicationCodeableConcept == nil && mr.MedicationReference == nil {
		return nil, &ValidationError{Msg: "medication identity is missing"}
	}

	AttachProvenance(&mr)
	return &mr, nil
}

// AttachProvenance stamps the 64-hex resource digest over the critical field
// subset of a medication request: medication identity, primary dosage
// instruction, status, and intent.
func AttachProvenance(mr *MedicationRequest) {
	identity := ""
	if mr.MedicationCodeableConcept != nil {
		identity = mr.MedicationCodeableConcept.Text
		if identity == "" && len(mr.MedicationCodeableConcept.Coding) > 0 {
			identity = mr.MedicationCodeableConcept.Coding[0].Display
		}
	} else if mr.MedicationReference != nil {
		identity = mr.MedicationReference.Display
	}

	instruction := ""
	if len(mr.DosageInstruction) > 0 {
		instruction = mr.DosageInstruction[0].Text
	}

	critical := map[string]string{
		"medication": identity,
		"dosage":     instruction,
		"status":     mr.Status,
		"intent":     mr.Intent,
	}

	mr.Provenance = &Provenance{
		ResourceHash: preservation.ResourceDigest(critical),
		Original:     critical,
	}
}
