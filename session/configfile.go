package session

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// configFile mirrors SessionConfig's shape for JSON decoding; Mode is
// accepted as its lowercase name instead of an integer tag.
type configFile struct {
	Name         string   `json:"name"`
	AuthToken    string   `json:"auth_token"`
	ChartSymbols []string `json:"chart_symbols"`
	QuoteSymbols []string `json:"quote_symbols"`
	Indicators   []string `json:"indicators"`
	Timeframe    string   `json:"timeframe"`
	Range        int      `json:"range"`
	Mode         string   `json:"mode"`
}

// LoadConfig reads a SessionConfig from a JSON file. A missing file is not
// an error: callers get a zero-value config and build it up in code.
func LoadConfig(path string) (*SessionConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("📄 config file not found, using zero value")
		return &SessionConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: read config %s: %w", path, err)
	}

	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("session: parse config %s: %w", path, err)
	}

	mode := ModeStandard
	if cf.Mode == "streaming" {
		mode = ModeStreaming
	}

	return &SessionConfig{
		Name:         cf.Name,
		AuthToken:    cf.AuthToken,
		ChartSymbols: cf.ChartSymbols,
		QuoteSymbols: cf.QuoteSymbols,
		Indicators:   cf.Indicators,
		Timeframe:    cf.Timeframe,
		Range:        cf.Range,
		Mode:         mode,
	}, nil
}
