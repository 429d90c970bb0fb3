/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/elliotchance/orderedmap/v3"
)

// ExportFilename is the file name offered for downloaded analyses.
const ExportFilename = "analyzed-blood-report.json"

const exportIndent = "  "

// Export parses the received JSON and serializes it again with two-space
// indentation, the way a browser's JSON.stringify(data, null, 2) does: key
// order and unknown fields are kept, numbers take their shortest form and
// strings are re-escaped.
func (a *ReportAnalysis) Export() ([]byte, error) {
	if a == nil || len(a.raw) == 0 {
		return nil, ErrEmptyAnalysis
	}

	dec := json.NewDecoder(bytes.NewReader(a.raw))
	dec.UseNumber()

	tree, err := readNode(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse analysis: %w", ErrMalformedResponse)
	}

	var out bytes.Buffer
	writeNode(&out, tree, "")

	return out.Bytes(), nil
}

// readNode reads one JSON value. Objects become ordered maps; a repeated key
// keeps its first position and its last value.
func readNode(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := orderedmap.NewOrderedMap[string, any]()

		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}

			key, ok := keyTok.(string)
			if !ok {
				return nil, ErrMalformedResponse
			}

			value, err := readNode(dec)
			if err != nil {
				return nil, err
			}

			obj.Set(key, value)
		}

		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		return obj, nil
	case '[':
		arr := []any{}

		for dec.More() {
			value, err := readNode(dec)
			if err != nil {
				return nil, err
			}

			arr = append(arr, value)
		}

		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		return arr, nil
	default:
		return nil, ErrMalformedResponse
	}
}

func writeNode(out *bytes.Buffer, node any, indent string) {
	switch v := node.(type) {
	case nil:
		out.WriteString("null")
	case bool:
		out.WriteString(strconv.FormatBool(v))
	case json.Number:
		f, err := strconv.ParseFloat(v.String(), 64)
		if math.IsInf(f, 0) || (err != nil && !errors.Is(err, strconv.ErrRange)) {
			out.WriteString("null")
			return
		}

		out.WriteString(formatNumber(f))
	case string:
		writeString(out, v)
	case []any:
		if len(v) == 0 {
			out.WriteString("[]")
			return
		}

		inner := indent + exportIndent

		out.WriteString("[\n")

		for i, item := range v {
			if i > 0 {
				out.WriteString(",\n")
			}

			out.WriteString(inner)
			writeNode(out, item, inner)
		}

		out.WriteString("\n" + indent + "]")
	case *orderedmap.OrderedMap[string, any]:
		if v.Len() == 0 {
			out.WriteString("{}")
			return
		}

		inner := indent + exportIndent

		out.WriteString("{\n")

		for el := v.Front(); el != nil; el = el.Next() {
			out.WriteString(inner)
			writeString(out, el.Key)
			out.WriteString(": ")
			writeNode(out, el.Value, inner)

			if el.Next() != nil {
				out.WriteString(",")
			}

			out.WriteString("\n")
		}

		out.WriteString(indent + "}")
	}
}

// writeString quotes s with the escapes JSON.stringify uses: quote, backslash,
// the short control escapes and \u00XX for the remaining control characters.
// Everything else, including "/" and non-ASCII text, is written as is.
func writeString(out *bytes.Buffer, s string) {
	out.WriteByte('"')

	for _, r := range s {
		switch r {
		case '"':
			out.WriteString(`\"`)
		case '\\':
			out.WriteString(`\\`)
		case '\b':
			out.WriteString(`\b`)
		case '\f':
			out.WriteString(`\f`)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\t':
			out.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(out, `\u%04x`, r)

				continue
			}

			out.WriteRune(r)
		}
	}

	out.WriteByte('"')
}
