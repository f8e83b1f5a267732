package web

import (
	"runtime"
	"sync"
)

// VersionInfo describes the running binary
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

var (
	verMu   sync.RWMutex
	verInfo = VersionInfo{Version: "dev", Commit: "unknown", BuildTime: "unknown"}
)

// SetVersionInfo sets the version information to be exposed by the web API
func SetVersionInfo(versionStr, commit, buildTime string) {
	verMu.Lock()
	defer verMu.Unlock()
	verInfo = VersionInfo{Version: versionStr, Commit: commit, BuildTime: buildTime}
}

// GetVersionInfo returns the currently set version info
func GetVersionInfo() VersionInfo {
	verMu.RLock()
	defer verMu.RUnlock()
	info := verInfo
	info.GoVersion = runtime.Version()
	return info
}
