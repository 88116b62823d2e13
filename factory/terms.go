/*
Package factory provides document to typed-terms conversion.

PURPOSE:
  Converts raw JSON or YAML contract documents into generic.Terms. The
  engine only ever reads typed values; every string-to-date, string-to-
  decimal and cycle check happens here, once, before a run starts.

DOCUMENT SCHEMA:
  {
    "contractType": "PAM",
    "contractID": "loan-1",
    "contractRole": "RPA",
    "statusDate": "2024-01-01",
    "initialExchangeDate": "2024-01-01",
    "maturityDate": "2026-01-01",
    "notionalPrincipal": "1000",
    "nominalInterestRate": 0.05,
    "cycleOfInterestPayment": "P1YL0",
    "contractStructure": [
      {"referenceRole": "FIL", "referenceType": "CNT", "object": {...}},
      {"referenceRole": "COVE", "referenceType": "CID", "object": "loan-7"},
      {"referenceRole": "UDL", "referenceType": "MOC", "object": "AAPL"}
    ]
  }

VALUE RULES:
  - Dates: "2006-01-02", "2006-01-02T15:04:05" or RFC 3339, read as UTC
  - Decimals: strings or numbers; strings are preferred to keep precision
  - Cycles: P<n><D|W|M|Q|H|Y>L<0|1>, validated with conventions.ParseCycle
  - Unknown attributes are rejected unless IgnoreUnknown is set

SEE ALSO:
  - generic/attributes.go: The vocabulary and kinds
  - generic/terms.go: The typed accessor
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/cashflow-engine/conventions"
	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// Document is a decoded, still untyped contract document.
type Document map[string]any

// Reference types of a contractStructure entry.
const (
	RefTypeContract     = "CNT" // nested terms
	RefTypeContractID   = "CID" // another stored contract
	RefTypeMarketObject = "MOC" // a risk-factor series
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension. Anything that
// is not .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// DecodeJSON decodes a JSON object, keeping numbers exact.
func DecodeJSON(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse terms JSON: %v: %w", err, generic.ErrAttributeConversion)
	}
	return doc, nil
}

// DecodeYAML decodes a YAML mapping.
func DecodeYAML(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse terms YAML: %v: %w", err, generic.ErrAttributeConversion)
	}
	return doc, nil
}

// =============================================================================
// TERMS FACTORY
// =============================================================================

// TermsFactory converts documents to typed terms.
type TermsFactory struct {
	// IgnoreUnknown skips attributes outside the vocabulary instead of
	// failing.
	IgnoreUnknown bool
}

// NewTermsFactory creates a strict factory.
func NewTermsFactory() *TermsFactory {
	return &TermsFactory{}
}

// Parse decodes and converts a document in the given format.
func (f *TermsFactory) Parse(data []byte, format Format) (*generic.Terms, error) {
	var (
		doc Document
		err error
	)
	switch format {
	case FormatYAML:
		doc, err = DecodeYAML(data)
	default:
		doc, err = DecodeJSON(data)
	}
	if err != nil {
		return nil, err
	}
	return f.FromDocument(doc)
}

// ParseJSON converts a JSON document.
func (f *TermsFactory) ParseJSON(data []byte) (*generic.Terms, error) {
	return f.Parse(data, FormatJSON)
}

// ParseFile reads and converts a terms file, picking the format from its
// extension.
func (f *TermsFactory) ParseFile(path string) (*generic.Terms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read terms %s: %w", path, err)
	}
	return f.Parse(data, FormatFromPath(path))
}

// FromDocument converts every attribute of doc. Attributes are visited in
// name order so the first reported error is deterministic.
func (f *TermsFactory) FromDocument(doc Document) (*generic.Terms, error) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	terms := generic.NewTerms()
	for _, k := range keys {
		raw := doc[k]
		if raw == nil {
			continue
		}
		attr := generic.Attribute(k)
		kind, ok := generic.KindOf(attr)
		if !ok {
			if f.IgnoreUnknown {
				continue
			}
			return nil, &generic.AttributeError{Attribute: attr, Reason: "unknown attribute"}
		}
		v, err := f.convert(attr, kind, raw)
		if err != nil {
			return nil, err
		}
		if err := terms.Set(attr, v); err != nil {
			return nil, err
		}
	}
	return terms, nil
}

func (f *TermsFactory) convert(attr generic.Attribute, kind generic.Kind, raw any) (any, error) {
	fail := func(reason string) error {
		return &generic.AttributeError{Attribute: attr, Want: kind, Reason: reason}
	}

	switch kind {
	case generic.KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fail(fmt.Sprintf("got %T", raw))
		}
		return s, nil

	case generic.KindDate:
		t, err := ParseDate(raw)
		if err != nil {
			return nil, fail(err.Error())
		}
		return t, nil

	case generic.KindDecimal:
		d, err := ParseDecimal(raw)
		if err != nil {
			return nil, fail(err.Error())
		}
		return d, nil

	case generic.KindInt:
		d, err := ParseDecimal(raw)
		if err != nil {
			return nil, fail(err.Error())
		}
		if !d.Equal(d.Truncate(0)) {
			return nil, fail(fmt.Sprintf("%s is not an integer", d))
		}
		return int(d.IntPart()), nil

	case generic.KindCycle:
		s, ok := raw.(string)
		if !ok {
			return nil, fail(fmt.Sprintf("got %T", raw))
		}
		if _, err := conventions.ParseCycle(s); err != nil {
			return nil, fail(err.Error())
		}
		return s, nil

	case generic.KindReferences:
		return f.references(attr, raw)
	}
	return nil, fail("unsupported kind")
}

func (f *TermsFactory) references(attr generic.Attribute, raw any) ([]generic.ContractReference, error) {
	fail := func(i int, reason string) error {
		return &generic.AttributeError{Attribute: attr, Want: generic.KindReferences, Reason: fmt.Sprintf("entry %d: %s", i, reason)}
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fail(0, fmt.Sprintf("got %T, want a list", raw))
	}
	out := make([]generic.ContractReference, 0, len(list))
	for i, item := range list {
		entry, ok := asMap(item)
		if !ok {
			return nil, fail(i, fmt.Sprintf("got %T, want an object", item))
		}
		role, _ := entry["referenceRole"].(string)
		ref := generic.ContractReference{Role: generic.ReferenceRole(role)}
		switch ref.Role {
		case generic.RefUnderlying, generic.RefFirstLeg, generic.RefSecondLeg, generic.RefCovered, generic.RefCovering:
		default:
			return nil, fail(i, fmt.Sprintf("unknown reference role %q", role))
		}

		typ, _ := entry["referenceType"].(string)
		switch typ {
		case RefTypeContract:
			nested, ok := asMap(entry["object"])
			if !ok {
				return nil, fail(i, "CNT reference needs an object")
			}
			terms, err := f.FromDocument(nested)
			if err != nil {
				return nil, fmt.Errorf("%s entry %d: %w", attr, i, err)
			}
			ref.Terms = terms
		case RefTypeContractID:
			id, ok := entry["object"].(string)
			if !ok || id == "" {
				return nil, fail(i, "CID reference needs a contract ID")
			}
			ref.ContractID = generic.ContractID(id)
		case RefTypeMarketObject:
			code, ok := entry["object"].(string)
			if !ok || code == "" {
				return nil, fail(i, "MOC reference needs a market object code")
			}
			ref.MarketObject = code
		default:
			return nil, fail(i, fmt.Sprintf("unknown reference type %q", typ))
		}
		out = append(out, ref)
	}
	return out, nil
}

// asMap accepts the map shapes the JSON and YAML decoders produce.
func asMap(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	}
	return nil, false
}

// =============================================================================
// SCALAR PARSERS
// =============================================================================

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

// ParseDate reads a date or date-time. Values without a zone are UTC.
func ParseDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparsable date %q", v)
	}
	return time.Time{}, fmt.Errorf("got %T, want a date string", raw)
}

// ParseDecimal reads a decimal from a string or any decoded number.
func ParseDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case json.Number:
		return decimal.NewFromString(v.String())
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	}
	return decimal.Zero, fmt.Errorf("got %T, want a number", raw)
}
