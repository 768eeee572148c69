// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"os"
	"strings"
)

// ParseBool reads the loose boolean spellings accepted in environment
// variables and config files: true/1/yes/on/enable/enabled and their
// negatives, case insensitive. Empty input yields def; any other non-empty
// value counts as true.
func ParseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "enable", "enabled":
		return true
	case "false", "0", "no", "off", "disable", "disabled":
		return false
	case "":
		return def
	default:
		return true
	}
}

// GetBoolEnv applies ParseBool to the environment variable envVar.
func GetBoolEnv(envVar string, defaultValue bool) bool {
	return ParseBool(os.Getenv(envVar), defaultValue)
}

// GetEnvOrDefault returns the environment variable key, or def if unset or empty.
func GetEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
