package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

// appVersion is stamped at build time via -ldflags.
var appVersion = "v0.0.0"

type gitHubRelease struct {
	TagName string `json:"tag_name"`
}

// checkForUpdates compares the running version against the latest GitHub
// release. Failures are silent: an update check must never affect startup.
func checkForUpdates(logger *zap.Logger) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", "agentforge", "llm-gateway")

	client := http.Client{
		Timeout: 2 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return
	}

	var release gitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return
	}

	current, err := version.NewVersion(appVersion)
	if err != nil {
		return
	}

	latest, err := version.NewVersion(release.TagName)
	if err != nil {
		return
	}

	if current.LessThan(latest) {
		logger.Warn("running an outdated version",
			zap.String("current", appVersion),
			zap.String("latest", release.TagName),
		)
	}
}
