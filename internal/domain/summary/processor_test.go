package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinsafe/clinsafe/internal/config"
	"github.com/clinsafe/clinsafe/internal/platform/ccda"
	"github.com/clinsafe/clinsafe/internal/platform/fhir"
	"github.com/clinsafe/clinsafe/internal/platform/securexml"
)

const pipelineCCD = `<?xml version="1.0" encoding="UTF-8"?>
<ClinicalDocument xmlns="urn:hl7-org:v3">
  <templateId root="2.16.840.1.113883.10.20.22.1.2"/>
  <title>Continuity of Care Document</title>
  <effectiveTime value="20240115103000"/>
  <recordTarget><patientRole><id root="1.2.3" extension="patient-1"/></patientRole></recordTarget>
  <component><structuredBody>
    <component><section>
      <templateId root="2.16.840.1.113883.10.20.22.2.1.1"/>
      <code code="10160-0" codeSystem="2.16.840.1.113883.6.1"/>
      <title>Medications</title>
      <entry>
        <substanceAdministration classCode="SBADM" moodCode="EVN">
          <statusCode code="active"/>
          <effectiveTime type="PIVL_TS"><period value="12" unit="h"/></effectiveTime>
          <routeCode code="C38288" displayName="Oral"/>
          <doseQuantity value="1" unit="TAB"/>
          <consumable><manufacturedProduct><manufacturedMaterial>
            <code code="860975" displayName="Metformin Hydrochloride 500 MG Oral Tablet"/>
          </manufacturedMaterial></manufacturedProduct></consumable>
        </substanceAdministration>
      </entry>
    </section></component>
    <component><section>
      <code code="51847-2" codeSystem="2.16.840.1.113883.6.1"/>
      <title>Assessment</title>
      <text>Diabetes is well controlled on current regimen.</text>
    </section></component>
  </structuredBody></component>
</ClinicalDocument>`

func testConfig(enhance bool) config.Config {
	return config.Config{
		Env:                "test",
		LogLevel:           "info",
		ServiceVersion:     "1.0.0",
		MaxDocumentBytes:   config.DefaultMaxDocumentBytes,
		EnhancementEnabled: enhance,
	}
}

func TestProcessor_ProcessDocument(t *testing.T) {
	p := NewProcessor(testConfig(false), zerolog.Nop(), nil)

	sum, err := p.ProcessDocument(context.Background(), []byte(pipelineCCD))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sum.Medications) != 1 {
		t.Fatalf("expected 1 medication, got %d", len(sum.Medications))
	}
	med := sum.Medications[0]
	if med.Name != "Metformin Hydrochloride 500 MG Oral Tablet" {
		t.Errorf("unexpected medication name: %q", med.Name)
	}
	if med.Dosage != "1 TAB" {
		t.Errorf("expected dosage '1 TAB', got %q", med.Dosage)
	}
	if med.Frequency != "1 time(s) per 12 h" {
		t.Errorf("unexpected frequency: %q", med.Frequency)
	}
	if len(med.PreservationHash) != 16 {
		t.Errorf("expected the 16-hex record digest, got %q", med.PreservationHash)
	}

	if len(sum.Narratives) != 1 {
		t.Fatalf("expected 1 narrative, got %d", len(sum.Narratives))
	}
	if sum.Narratives[0].Original != "Diabetes is well controlled on current regimen." {
		t.Errorf("unexpected narrative text: %q", sum.Narratives[0].Original)
	}
	if sum.Narratives[0].AIProcessed {
		t.Error("enhancement disabled, narrative must stay unprocessed")
	}

	if !sum.Validation.Passed {
		t.Errorf("expected validation to pass: %v", sum.Validation.Errors)
	}
}

func TestProcessor_ProcessDocument_WithEnhancement(t *testing.T) {
	enhancer := fakeEnhancer{text: "Your diabetes is well controlled on your current medicines."}
	p := NewProcessor(testConfig(true), zerolog.Nop(), enhancer)

	sum, err := p.ProcessDocument(context.Background(), []byte(pipelineCCD))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	block := sum.Narratives[0]
	if !block.AIProcessed {
		t.Fatal("expected narrative to be enhanced")
	}
	if block.Original != "Diabetes is well controlled on current regimen." {
		t.Error("original narrative text must survive enhancement")
	}
	if !sum.Validation.Passed {
		t.Errorf("expected validation to pass: %v", sum.Validation.Errors)
	}
	if len(sum.Validation.AIProcessedFields) != 1 {
		t.Errorf("expected 1 processed field, got %v", sum.Validation.AIProcessedFields)
	}

	// Critical fields pass through enhancement untouched.
	if sum.Medications[0].Dosage != "1 TAB" {
		t.Errorf("dosage changed across enhancement: %q", sum.Medications[0].Dosage)
	}
}

func TestProcessor_ProcessDocument_FailedEnhancementFallsBack(t *testing.T) {
	enhancer := fakeEnhancer{err: errors.New("upstream unavailable")}
	p := NewProcessor(testConfig(true), zerolog.Nop(), enhancer)

	sum, err := p.ProcessDocument(context.Background(), []byte(pipelineCCD))
	if err != nil {
		t.Fatalf("a failed enhancer must not fail the pipeline: %v", err)
	}

	block := sum.Narratives[0]
	if block.AIProcessed || block.Enhanced != "" {
		t.Error("expected fallback to original text")
	}
	if !sum.Validation.Passed {
		t.Errorf("expected validation to pass: %v", sum.Validation.Errors)
	}
	if len(sum.Validation.Warnings) == 0 {
		t.Error("expected the failure recorded as a warning")
	}
}

func TestProcessor_ProcessDocument_RejectsDoctype(t *testing.T) {
	p := NewProcessor(testConfig(false), zerolog.Nop(), nil)

	payload := `<?xml version="1.0"?>
<!DOCTYPE ClinicalDocument [<!ENTITY xxe SYSTEM "file:///etc/passwd">]>
<ClinicalDocument xmlns="urn:hl7-org:v3"><title>&xxe;</title></ClinicalDocument>`

	_, err := p.ProcessDocument(context.Background(), []byte(payload))

	var secErr *securexml.SecurityError
	if !errors.As(err, &secErr) {
		t.Fatalf("expected SecurityError, got %v", err)
	}
}

func TestProcessor_ProcessDocument_RejectsMalformedXML(t *testing.T) {
	p := NewProcessor(testConfig(false), zerolog.Nop(), nil)

	_, err := p.ProcessDocument(context.Background(), []byte(`<ClinicalDocument xmlns="urn:hl7-org:v3"><title>`))

	var parseErr *ccda.ParsingError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParsingError, got %v", err)
	}
}

func TestProcessor_ProcessDocument_CancelledContext(t *testing.T) {
	p := NewProcessor(testConfig(false), zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProcessDocument(ctx, []byte(pipelineCCD))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProcessor_ProcessBundle(t *testing.T) {
	p := NewProcessor(testConfig(false), zerolog.Nop(), nil)

	payload := `{
	  "resourceType": "Bundle",
	  "type": "collection",
	  "entry": [{
	    "resource": {
	      "resourceType": "MedicationRequest",
	      "status": "active",
	      "intent": "order",
	      "medicationCodeableConcept": {"text": "Lisinopril 10 MG Oral Tablet"},
	      "dosageInstruction": [{
	        "sequence": 1,
	        "doseAndRate": [{"doseQuantity": {"value": 10, "unit": "mg"}}],
	        "timing": {"repeat": {"frequency": 1, "period": 1, "periodUnit": "d"}}
	      }]
	    }
	  }]
	}`

	sum, err := p.ProcessBundle(context.Background(), []byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sum.Medications) != 1 {
		t.Fatalf("expected 1 medication, got %d", len(sum.Medications))
	}
	med := sum.Medications[0]
	if med.Name != "Lisinopril 10 MG Oral Tablet" {
		t.Errorf("unexpected name: %q", med.Name)
	}
	if med.Dosage != "10 mg" {
		t.Errorf("expected dosage '10 mg', got %q", med.Dosage)
	}
	if med.Frequency != "1 time(s) per 1 d" {
		t.Errorf("unexpected frequency: %q", med.Frequency)
	}
	// Bundle-path resources have no section digest; the canonical digest
	// stands in.
	if len(med.PreservationHash) != 64 {
		t.Errorf("expected the 64-hex canonical digest, got %q", med.PreservationHash)
	}
	if !sum.Validation.Passed {
		t.Errorf("expected validation to pass: %v", sum.Validation.Errors)
	}
}

func TestProcessor_ProcessBundle_ProvenanceStampedAtParse(t *testing.T) {
	// The digest on the summary must be exactly the one attached when the
	// bundle was parsed, not a re-derivation later in the pipeline.
	payload := `{
	  "resourceType": "MedicationRequest",
	  "status": "active",
	  "intent": "order",
	  "medicationCodeableConcept": {"text": "Amlodipine 5 MG Oral Tablet"},
	  "dosageInstruction": [{"text": "One tablet daily"}]
	}`

	requests, err := fhir.ParseBundle([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := NewProcessor(testConfig(false), zerolog.Nop(), nil)
	sum, err := p.ProcessBundle(context.Background(), []byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sum.Medications[0].PreservationHash != requests[0].Provenance.ResourceHash {
		t.Error("summary digest must match the digest attached at parse")
	}
}

func TestProcessor_ProcessBundle_MalformedJSON(t *testing.T) {
	p := NewProcessor(testConfig(false), zerolog.Nop(), nil)

	if _, err := p.ProcessBundle(context.Background(), []byte(`{"resourceType":`)); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
