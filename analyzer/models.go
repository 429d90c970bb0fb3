/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analyzer

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
)

// StatusAbnormal is the ResultEntry status that marks an out-of-range result.
const StatusAbnormal = "abnormal"

// ReportAnalysis is the structured analysis returned by the external analyzer.
// It is immutable once decoded.
type ReportAnalysis struct {
	PatientInfo     *PatientInfo
	AbnormalResults []ResultEntry
	AllResults      []ResultEntry
	Recommendations []string

	raw []byte
}

// Raw returns the response body the analysis was decoded from.
func (a *ReportAnalysis) Raw() []byte {
	return a.raw
}

// ResultEntry is one lab-test measurement.
type ResultEntry struct {
	Parameter      string
	Value          Value
	Unit           string
	ReferenceRange string
	Status         string
	Interpretation string
}

// IsAbnormal reports whether the analyzer flagged the entry as abnormal.
func (r ResultEntry) IsAbnormal() bool {
	return r.Status == StatusAbnormal
}

// Value holds a JSON scalar exactly as received.
type Value struct {
	raw json.RawMessage
}

// NewValue wraps a JSON literal. It is mostly useful in tests.
func NewValue(literal string) Value {
	var v Value
	_ = v.UnmarshalJSON([]byte(literal))

	return v
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		v.raw = nil
		return nil
	}

	if !json.Valid(b) {
		return ErrMalformedResponse
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, b); err != nil {
		return err
	}

	v.raw = compact.Bytes()

	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.raw == nil {
		return []byte("null"), nil
	}

	return v.raw, nil
}

// IsZero reports whether the value was absent or null.
func (v Value) IsZero() bool {
	return len(v.raw) == 0
}

// String renders the value for display. Strings are unquoted and numbers use
// their shortest decimal form; absent values render as "".
func (v Value) String() string {
	if len(v.raw) == 0 {
		return ""
	}

	switch v.raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v.raw, &s); err != nil {
			return ""
		}

		return s
	case 't', 'f':
		return string(v.raw)
	case '{', '[':
		return string(v.raw)
	default:
		f, err := strconv.ParseFloat(string(v.raw), 64)
		if err != nil {
			return string(v.raw)
		}

		return formatNumber(f)
	}
}

// Falsy reports whether the value is empty, zero, false or absent.
func (v Value) Falsy() bool {
	if len(v.raw) == 0 {
		return true
	}

	switch v.raw[0] {
	case '"':
		return v.String() == ""
	case 'f':
		return true
	case 't', '{', '[':
		return false
	default:
		f, err := strconv.ParseFloat(string(v.raw), 64)
		return err == nil && f == 0
	}
}

// formatNumber renders f the way browsers print numbers: plain decimals
// between 1e-6 and 1e21, otherwise an unpadded exponent such as 1.5e-7.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}

	abs := math.Abs(f)
	if abs < 1e21 && abs >= 1e-6 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)

	mantissa, exp, ok := strings.Cut(s, "e")
	if !ok || len(exp) < 2 {
		return s
	}

	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}

	return mantissa + "e" + exp[:1] + digits
}

// PatientField is one label/value pair of the patient section.
type PatientField struct {
	Key   string
	Value Value
}

// PatientInfo keeps the patient section in the order the analyzer sent it.
type PatientInfo struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// NewPatientInfo returns an empty PatientInfo.
func NewPatientInfo() *PatientInfo {
	return &PatientInfo{fields: orderedmap.NewOrderedMap[string, Value]()}
}

// Set adds or replaces a field. Replacing keeps the original position.
func (p *PatientInfo) Set(key string, v Value) {
	p.fields.Set(key, v)
}

// Get returns the field with the given key.
func (p *PatientInfo) Get(key string) (Value, bool) {
	if p == nil || p.fields == nil {
		return Value{}, false
	}

	return p.fields.Get(key)
}

// Len returns the number of fields.
func (p *PatientInfo) Len() int {
	if p == nil || p.fields == nil {
		return 0
	}

	return p.fields.Len()
}

// Fields returns the fields in payload order.
func (p *PatientInfo) Fields() []PatientField {
	if p.Len() == 0 {
		return nil
	}

	fields := make([]PatientField, 0, p.fields.Len())
	for el := p.fields.Front(); el != nil; el = el.Next() {
		fields = append(fields, PatientField{Key: el.Key, Value: el.Value})
	}

	return fields
}

func (p *PatientInfo) UnmarshalJSON(b []byte) error {
	p.fields = orderedmap.NewOrderedMap[string, Value]()

	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if tok == nil {
		return nil
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotAnObject
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := keyTok.(string)
		if !ok {
			return errNotAnObject
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return err
		}

		p.fields.Set(key, v)
	}

	_, err = dec.Token()

	return err
}
