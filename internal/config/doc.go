// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config resolves the extension configuration from defaults, an
// optional strict YAML file and the environment, in that order of precedence.
package config
