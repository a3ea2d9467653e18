package preservation

import "testing"

func TestRecordDigest_Deterministic(t *testing.T) {
	fields := map[string]string{
		"medication": "Metformin Hydrochloride 500 MG Oral Tablet",
		"dosage":     "1 TAB",
		"frequency":  "Every 12 h",
		"route":      "Oral",
		"status":     "active",
	}

	first := RecordDigest(fields)
	for i := 0; i < 10; i++ {
		if got := RecordDigest(fields); got != first {
			t.Fatalf("digest not deterministic: %s vs %s", first, got)
		}
	}

	if len(first) != RecordDigestLen {
		t.Errorf("expected %d hex chars, got %d", RecordDigestLen, len(first))
	}
}

func TestRecordDigest_SensitiveToEveryField(t *testing.T) {
	base := map[string]string{
		"medication": "Lisinopril 10 MG Oral Tablet",
		"dosage":     "1 TAB",
		"frequency":  "Every 24 h",
		"route":      "Oral",
	}
	baseDigest := RecordDigest(base)

	for key := range base {
		mutated := make(map[string]string, len(base))
		for k, v := range base {
			mutated[k] = v
		}
		mutated[key] = mutated[key] + "X"

		if RecordDigest(mutated) == baseDigest {
			t.Errorf("mutating field %q did not change the digest", key)
		}
	}
}

func TestRecordDigest_OrderIndependent(t *testing.T) {
	// Map iteration order is random in Go, so determinism across runs already
	// exercises this; build two maps inserted in different orders anyway.
	a := map[string]string{}
	a["z"] = "1"
	a["a"] = "2"

	b := map[string]string{}
	b["a"] = "2"
	b["z"] = "1"

	if RecordDigest(a) != RecordDigest(b) {
		t.Error("digest depends on insertion order")
	}
}

func TestResourceDigest_FullWidth(t *testing.T) {
	critical := map[string]string{
		"medication": "Atorvastatin 20 MG Oral Tablet",
		"dosage":     "1 TAB daily",
		"status":     "active",
		"intent":     "order",
	}

	digest := ResourceDigest(critical)
	if len(digest) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(digest))
	}

	if ResourceDigest(critical) != digest {
		t.Error("resource digest not deterministic")
	}
}

func TestResourceDigest_DiffersFromRecordDigest(t *testing.T) {
	fields := map[string]string{"medication": "Aspirin", "status": "active"}

	if RecordDigest(fields) == ResourceDigest(fields)[:RecordDigestLen] {
		t.Error("record and resource digests should use different canonical forms")
	}
}

func TestRecordDigest_EmptyFields(t *testing.T) {
	if got := RecordDigest(map[string]string{}); len(got) != RecordDigestLen {
		t.Errorf("expected digest for empty field set, got %q", got)
	}
}
