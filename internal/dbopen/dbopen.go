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

// Package dbopen assembles Postgres connection URLs from the environment.
package dbopen

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// DefaultPrefix is the environment prefix prefsctl reads Postgres settings from.
const DefaultPrefix = "SQLPREFS_PG"

var ErrDatabaseNotConfigured = errors.New("database connection configuration is unavailable")

// GetDatabaseURLFromEnv returns PREFIX_URL if set. Otherwise it builds a
// URL from PREFIX_HOST, PREFIX_PORT (default 5432), PREFIX_USER,
// PREFIX_PASSWORD, PREFIX_DBNAME and PREFIX_SSLMODE. HOST and DBNAME are
// required; if neither is set the error wraps ErrDatabaseNotConfigured.
func GetDatabaseURLFromEnv(prefix string) (string, error) {
	prefix = strings.TrimSuffix(prefix, "_") + "_"
	env := func(name string) string { return os.Getenv(prefix + name) }

	if u := env("URL"); u != "" {
		return u, nil
	}

	host, dbname := env("HOST"), env("DBNAME")
	if host == "" && dbname == "" {
		return "", fmt.Errorf("%w: set %sURL or %sHOST and %sDBNAME", ErrDatabaseNotConfigured, prefix, prefix, prefix)
	}
	var missing []string
	if host == "" {
		missing = append(missing, prefix+"HOST")
	}
	if dbname == "" {
		missing = append(missing, prefix+"DBNAME")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	port := env("PORT")
	if port == "" {
		port = "5432"
	}

	u := &url.URL{
		Scheme: "postgresql",
		Host:   host + ":" + port,
		Path:   dbname,
	}
	if user := env("USER"); user != "" {
		if pass := env("PASSWORD"); pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}

	q := u.Query()
	if sslmode := env("SSLMODE"); sslmode != "" {
		q.Set("sslmode", sslmode)
	}
	if appName := applicationName(os.Getenv("OTEL_SERVICE_NAME")); appName != "" {
		q.Set("application_name", appName)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// applicationName maps a service name onto the characters and length
// Postgres accepts for application_name.
func applicationName(service string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, service)
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}
