/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import "errors"

var (
	errCSRFSecretRequired   = errors.New("CSRF_SECRET is required")
	errInvalidRuntimeEnv    = errors.New(runtimeEnvVar + " must be one of: development, dev, production, prod")
	errFileArgumentRequired = errors.New("a report file is required")
)
