package database

import (
	"net/url"
	"strings"
)

// ConstructDatabaseURL joins databaseName onto baseURL and defaults sslmode to
// disable. An empty databaseName returns baseURL untouched, and so does a
// baseURL that does not parse.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return baseURL
	}
	u.Path = "/" + databaseName

	query := u.Query()
	if query.Get("sslmode") == "" {
		query.Set("sslmode", "disable")
	}
	u.RawQuery = query.Encode()

	return u.String()
}
