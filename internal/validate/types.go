// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package validate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

var logLevels = []zerolog.Level{
	zerolog.TraceLevel,
	zerolog.DebugLevel,
	zerolog.InfoLevel,
	zerolog.WarnLevel,
	zerolog.ErrorLevel,
}

// LogLevels lists the zerolog level names accepted in config, most verbose first.
func LogLevels() []string {
	out := make([]string, len(logLevels))
	for i, l := range logLevels {
		out[i] = l.String()
	}
	return out
}

// LogLevel checks that value names one of LogLevels.
func (v *Validator) LogLevel(field, value string) {
	l, err := zerolog.ParseLevel(value)
	if err != nil || value == "" || !slices.Contains(logLevels, l) {
		v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(LogLevels(), ", ")), value)
	}
}
