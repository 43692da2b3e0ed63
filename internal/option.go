package internal

import (
	"net/http"
	"os"

	"golang.org/x/oauth2"
)

// ClientSettings collects the values backend ClientOptions write into.
type ClientSettings struct {
	ProjectID string
	Namespace string

	Scopes          []string
	TokenSource     oauth2.TokenSource
	CredentialsFile string // if set, Token Source is ignored.
	HTTPClient      *http.Client
	EmulatorHost    string
}

// GetProjectID falls back on the conventional environment variables when
// no WithProjectID option was supplied.
func GetProjectID() string {
	if v := os.Getenv("ARBOR_PROJECT_ID"); v != "" {
		return v
	}
	return os.Getenv("PROJECT_ID")
}

// GetEmulatorHost reports the emulator endpoint configured via environment.
func GetEmulatorHost() string {
	return os.Getenv("DATASTORE_EMULATOR_HOST")
}
