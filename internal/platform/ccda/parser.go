package ccda

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/clinsafe/clinsafe/internal/platform/securexml"
)

// Parser builds a read-only CDA element tree from gate-approved bytes. It is
// safe for concurrent use because it holds no mutable state.
type Parser struct{}

// NewParser creates a new CDA parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a CDA XML document into an element tree. The decoder refuses
// entity resolution and non-UTF-8 charsets; callers must have run the
// securexml gate first. A well-formedness failure yields a ParsingError,
// never a partial tree; a well-formed document whose root is not
// ClinicalDocument yields a ValidationError.
func (p *Parser) Parse(data []byte) (*ClinicalDocument, error) {
	if len(data) == 0 {
		return nil, &ParsingError{Op: "parse: document is empty"}
	}

	dec := securexml.NewDecoder(bytes.NewReader(data))

	// Walk to the root start element ourselves so a wrong root is a
	// structural validation failure, not a decode failure.
	var root xml.StartElement
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, &ParsingError{Op: "parse: document has no root element"}
		}
		if err != nil {
			return nil, &ParsingError{Op: "read root element", Err: err}
		}
		if se, ok := tok.(xml.StartElement); ok {
			root = se
			break
		}
	}

	if root.Name.Local != "ClinicalDocument" {
		return nil, &ValidationError{Msg: "root element is not ClinicalDocument"}
	}

	var doc ClinicalDocument
	if err := dec.DecodeElement(&doc, &root); err != nil {
		return nil, &ParsingError{Op: "decode document", Err: err}
	}

	// Consume trailing tokens so that content after the root element is a
	// parse failure rather than silently ignored. Whitespace and comments
	// after the root are fine.
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParsingError{Op: "trailing content", Err: err}
		}
		switch t := tok.(type) {
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, &ParsingError{Op: "parse: content after root element"}
			}
		case xml.Comment:
		default:
			return nil, &ParsingError{Op: "parse: content after root element"}
		}
	}

	return &doc, nil
}
