// Package securexml screens untrusted XML before any tree is built. The gate
// is a pure byte-level scan: it rejects oversized payloads, DTD declarations,
// external-entity constructions, and non-declaration processing instructions
// without ever invoking an XML parser. Documents that pass the gate are then
// decoded with a hardened decoder that refuses entity resolution as defense
// in depth.
package securexml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/clinsafe/clinsafe/internal/config"
)

// SecurityError reports a document rejected by the gate. The message carries
// structural metadata only, never document content.
type SecurityError struct {
	Reason string
}

func (e *SecurityError) Error() string {
	return "securexml: " + e.Reason
}

// Gate validates raw XML bytes before parsing.
type Gate struct {
	maxBytes int64
}

// NewGate creates a gate with the given maximum document size. A non-positive
// size falls back to the default of 50 MB.
func NewGate(maxBytes int64) *Gate {
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxDocumentBytes
	}
	return &Gate{maxBytes: maxBytes}
}

// Validate scans the raw bytes for hostile constructions. It must be called
// and must succeed before any tree-building parser touches the data.
func (g *Gate) Validate(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return &SecurityError{Reason: "document is empty"}
	}

	if int64(len(data)) > g.maxBytes {
		return &SecurityError{Reason: fmt.Sprintf("document exceeds maximum size of %d bytes", g.maxBytes)}
	}

	upper := bytes.ToUpper(data)

	if bytes.Contains(upper, []byte("<!DOCTYPE")) {
		return &SecurityError{Reason: "DOCTYPE declarations are not allowed"}
	}

	if bytes.Contains(upper, []byte("<!ENTITY")) {
		return &SecurityError{Reason: "ENTITY declarations are not allowed"}
	}

	// Heuristic XXE check: an external-entity keyword together with an
	// ampersand-introduced reference anywhere in the stream.
	if bytes.ContainsRune(data, '&') {
		for _, token := range [][]byte{[]byte("SYSTEM"), []byte("PUBLIC"), []byte("ENTITY")} {
			if bytes.Contains(upper, token) {
				return &SecurityError{Reason: "possible external entity reference"}
			}
		}
	}

	if err := checkProcessingInstructions(data); err != nil {
		return err
	}

	return nil
}

// checkProcessingInstructions rejects any processing instruction other than
// the leading XML declaration.
func checkProcessingInstructions(data []byte) error {
	offset := 0
	for {
		i := bytes.Index(data[offset:], []byte("<?"))
		if i < 0 {
			return nil
		}
		pos := offset + i
		rest := data[pos+2:]
		if bytes.HasPrefix(rest, []byte("xml")) && (len(rest) == 3 || isXMLDeclTerm(rest[3])) {
			offset = pos + 2
			continue
		}
		return &SecurityError{Reason: "processing instructions are not allowed"}
	}
}

func isXMLDeclTerm(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '?'
}

// NewDecoder returns an XML decoder hardened against entity expansion.
// encoding/xml never resolves external entities or fetches DTDs; Strict mode
// and a nil entity map additionally refuse custom internal entities, and the
// absence of a CharsetReader rejects non-UTF-8 encodings outright.
func NewDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.Entity = nil
	dec.CharsetReader = nil
	return dec
}
