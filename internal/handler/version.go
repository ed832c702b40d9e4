package handler

import (
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// VersionInfo describes the running build.
type VersionInfo struct {
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	GoVersion string    `json:"go_version"`
	Revision  string    `json:"revision,omitempty"`
	Modified  bool      `json:"modified,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Version may be injected with -ldflags "-X .../internal/handler.Version=1.2.3".
var Version = "dev"

var startedAt = time.Now().UTC()

// HandleVersion reports the version, the VCS revision stamped by the Go toolchain and
// the process start time.
func HandleVersion() http.HandlerFunc {
	info := buildVersionInfo(debug.ReadBuildInfo)
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, info)
	}
}

func buildVersionInfo(read func() (*debug.BuildInfo, bool)) VersionInfo {
	info := VersionInfo{
		Service:   logger.DefaultServiceName,
		Version:   resolveVersion(),
		GoVersion: runtime.Version(),
		StartedAt: startedAt,
	}
	bi, ok := read()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// resolveVersion prefers the link-time value, then VERSION from the environment.
func resolveVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return "dev"
}
