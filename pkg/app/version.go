package app

import (
	"fmt"
	"strings"
	"sync"
)

// Version is the current version of guildsettings.
const Version = "v0.1.0"

var (
	versionMu  sync.RWMutex
	appVersion string
)

// AppVersion is the version of the host application, when it embeds
// guildsettings under its own name.
func AppVersion() string {
	versionMu.RLock()
	defer versionMu.RUnlock()
	return appVersion
}

// SetAppVersion sets the version reported by AppVersion.
func SetAppVersion(v string) {
	versionMu.Lock()
	appVersion = v
	versionMu.Unlock()
}

func formatStartupMessage(appName, appVersion, coreVersion string) string {
	appName = strings.TrimSpace(appName)
	appVersion = strings.TrimSpace(appVersion)
	coreVersion = strings.TrimSpace(coreVersion)

	switch {
	case appVersion == "" || appVersion == coreVersion:
		return fmt.Sprintf("🚀 Starting %s %s...", appName, coreVersion)
	default:
		return fmt.Sprintf("🚀 Starting %s %s (guildsettings %s)...", appName, appVersion, coreVersion)
	}
}
