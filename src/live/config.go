package live

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the runtime configuration of the intake pipeline. It can be
// replaced while the pipeline is running via Reconfigure.
type Config struct {
	Enabled                 bool    `envconfig:"LIVE_ENABLED" default:"false" json:"enabled"`
	TradesPerSecond         float64 `envconfig:"LIVE_TRADES_PER_SECOND" default:"2" json:"trades_per_second"`
	GroupingIntervalSeconds int     `envconfig:"LIVE_GROUPING_INTERVAL_SECONDS" default:"10" json:"grouping_interval_seconds"`
	AutoDocumentsEnabled    bool    `envconfig:"LIVE_AUTO_DOCUMENTS_ENABLED" default:"false" json:"auto_documents_enabled"`
	DocumentIntervalSeconds int     `envconfig:"LIVE_DOCUMENT_INTERVAL_SECONDS" default:"20" json:"document_interval_seconds"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
