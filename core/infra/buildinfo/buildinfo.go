package buildinfo

import (
	"fmt"
	"log"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Branch  = "unknown"
	Date    = "unknown"
)

// Metadata describes the running build, served on the metadata endpoint.
type Metadata struct {
	APIVersion   string `json:"apiVersion"`
	APICommit    string `json:"apiCommit"`
	APIBranch    string `json:"apiBranch"`
	APITimestamp string `json:"apiTimestamp"`
}

// Current returns the build metadata baked in at link time.
func Current() Metadata {
	return Metadata{
		APIVersion:   Version,
		APICommit:    Commit,
		APIBranch:    Branch,
		APITimestamp: Date,
	}
}

// Info returns a single-line build summary.
func Info() string {
	return fmt.Sprintf("version=%s commit=%s branch=%s date=%s", Version, Commit, Branch, Date)
}

// Log writes the build summary with the service name.
func Log(service string) {
	log.Printf("%s %s", service, Info())
}
