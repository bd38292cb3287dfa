package buildconfig

import "runtime"

// Build-time variables injected via ldflags:
//
//	-X github.com/Harshitk-cp/agente-basico/internal/buildconfig.version=v1.2.3
//	-X github.com/Harshitk-cp/agente-basico/internal/buildconfig.commit=abc123
var (
	version = "dev"
	commit  = "unknown"
)

// Version returns the build version
func Version() string {
	return version
}

// Commit returns the git commit hash
func Commit() string {
	return commit
}

// VersionInfo is reported by the health endpoint.
func VersionInfo() map[string]string {
	return map[string]string{
		"version": version,
		"commit":  commit,
		"go":      runtime.Version(),
	}
}
