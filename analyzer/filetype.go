/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analyzer

import (
	"fmt"
	"path"
	"strings"
)

// supportedTypes maps accepted extensions to the part content type sent upstream.
var supportedTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// AcceptAttr is the value for the accept attribute of the upload input.
const AcceptAttr = ".pdf,.png,.jpg,.jpeg"

// BaseName strips any client-side directory from an uploaded file name.
func BaseName(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	return path.Base(filename)
}

func extension(filename string) string {
	name := BaseName(filename)

	idx := strings.LastIndex(name, ".")
	if idx == -1 {
		return ""
	}

	return strings.ToLower(name[idx:])
}

// ValidateFilename checks the file name against the supported report types.
func ValidateFilename(filename string) error {
	if _, ok := supportedTypes[extension(filename)]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFileType, BaseName(filename))
	}

	return nil
}

// ContentType returns the MIME type for a supported file name, or
// application/octet-stream for anything else.
func ContentType(filename string) string {
	if ct, ok := supportedTypes[extension(filename)]; ok {
		return ct
	}

	return "application/octet-stream"
}
