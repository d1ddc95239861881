package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# stock-sentinel configuration

[engine]
poll_interval = "60s"
inter_subject_delay = "1s"
fetch_timeout = "10s"
dispatch_timeout = "10s"

[alerts]
cooldown_window = "30m"
volume_spike_ratio = 2.0
percent_change_threshold = 0.05  # 5%
sentiment_threshold = 0.6
quiet_hours_start = 22
quiet_hours_end = 7
max_alerts_per_day = 50
watchlist_limit = 20

[dashboard]
enabled = true
refresh_interval = "60s"
interaction_grace = "3s"
channel_id = ""

[ui]
color_enabled = true
date_format = "2006-01-02"
`

const credentialsTemplate = `# stock-sentinel credentials
# Environment variables FINNHUB_API_KEY, OPENAI_API_KEY and
# DISCORD_WEBHOOK_URL override values set here.

[finnhub]
api_key = ""

[openai]
api_key = ""
model = "gpt-4o-mini"

[discord]
webhook_url = ""
dashboard_webhook_url = ""
`

func createTemplateConfig(configDir string) error {
	return writeTemplate(filepath.Join(configDir, "config.toml"), configTemplate, 0644)
}

func createTemplateCredentials(configDir string) error {
	return writeTemplate(filepath.Join(configDir, "credentials.toml"), credentialsTemplate, 0600)
}

func writeTemplate(path, content string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing template %s: %w", filepath.Base(path), err)
	}
	return nil
}
