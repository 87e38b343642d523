package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Settings holds process-wide configuration for both binaries. All values
// come from the environment; there is no config file in the deployment.
type Settings struct {
	Elasticsearch ElasticsearchConfig
	Coralogix     CoralogixConfig
	Slack         SlackConfig
	KibanaURL     string
	ClusterName   string
	AWSRegion     string
}

// ElasticsearchConfig holds search-backend credentials and routing.
type ElasticsearchConfig struct {
	Enabled      bool
	Endpoint     string
	Username     string
	Password     string
	IndexPattern string
}

// Configured reports whether every field required to issue a query is set.
// The enable flag is checked separately by the backend selector.
func (c ElasticsearchConfig) Configured() bool {
	return c.Endpoint != "" && c.Username != "" && c.Password != ""
}

// CoralogixConfig holds DataPrime query credentials. Account is only needed
// for UI link generation, not for the query API.
type CoralogixConfig struct {
	Enabled bool
	APIKey  string
	Region  string
	Account string
}

// Configured reports whether the query API can be reached.
func (c CoralogixConfig) Configured() bool {
	return c.APIKey != "" && c.Region != ""
}

// SlackConfig holds bot credentials for chat.postMessage and file uploads.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// Configured reports whether notifications can be sent.
func (c SlackConfig) Configured() bool {
	return c.BotToken != "" && c.Channel != ""
}

// Load reads Settings from the environment. Boolean enable flags accept the
// usual spellings ("true", "1", "t"); anything else is false.
func Load() *Settings {
	v := viper.New()
	v.AutomaticEnv()
	for _, key := range []string{
		"ENABLE_ELASTICSEARCH_INTEGRATION",
		"ELASTICSEARCH_ENDPOINT",
		"ELASTICSEARCH_USERNAME",
		"ELASTICSEARCH_PASSWORD",
		"ELASTICSEARCH_INDEX_PATTERN",
		"ENABLE_CORALOGIX_INTEGRATION",
		"CORALOGIX_API_KEY",
		"CORALOGIX_REGION",
		"CORALOGIX_ACCOUNT",
		"KIBANA_URL",
		"SLACK_BOT_TOKEN",
		"SLACK_CHANNEL",
		"CLUSTER_NAME",
		"AWS_REGION",
	} {
		_ = v.BindEnv(key)
	}
	v.SetDefault("ELASTICSEARCH_INDEX_PATTERN", "*")
	v.SetDefault("CLUSTER_NAME", "unknown")

	return &Settings{
		Elasticsearch: ElasticsearchConfig{
			Enabled:      parseBool(v.GetString("ENABLE_ELASTICSEARCH_INTEGRATION")),
			Endpoint:     v.GetString("ELASTICSEARCH_ENDPOINT"),
			Username:     v.GetString("ELASTICSEARCH_USERNAME"),
			Password:     v.GetString("ELASTICSEARCH_PASSWORD"),
			IndexPattern: v.GetString("ELASTICSEARCH_INDEX_PATTERN"),
		},
		Coralogix: CoralogixConfig{
			Enabled: parseBool(v.GetString("ENABLE_CORALOGIX_INTEGRATION")),
			APIKey:  v.GetString("CORALOGIX_API_KEY"),
			Region:  v.GetString("CORALOGIX_REGION"),
			Account: v.GetString("CORALOGIX_ACCOUNT"),
		},
		Slack: SlackConfig{
			BotToken: v.GetString("SLACK_BOT_TOKEN"),
			Channel:  v.GetString("SLACK_CHANNEL"),
		},
		KibanaURL:   v.GetString("KIBANA_URL"),
		ClusterName: v.GetString("CLUSTER_NAME"),
		AWSRegion:   v.GetString("AWS_REGION"),
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "t", "yes":
		return true
	}
	return false
}
