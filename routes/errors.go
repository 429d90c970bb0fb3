/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import "errors"

var (
	errNoAnalysis      = errors.New("no analysis in session")
	errAnalysisCorrupt = errors.New("stored analysis could not be decoded")
)
