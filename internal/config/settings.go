package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/meridianlabs/boardsync/pkg/errors"
)

// Environment variable keys, resolved through viper with the BOARDSYNC
// prefix (BOARDSYNC_API_TOKEN and so on). The unprefixed names are also
// accepted for drop-in compatibility with existing deployments.
const (
	keyAPIToken    = "api_token"
	keyEndpoint    = "endpoint"
	keySourceBoard = "source_board"
	keyTargetBoard = "target_board"
)

// Settings is the runtime configuration of a merge run, sourced from the
// environment.
type Settings struct {
	Token       string
	Endpoint    string
	SourceBoard string
	TargetBoard string
}

// LoadSettings reads settings from the environment via viper.
func LoadSettings() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("BOARDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{keyAPIToken, keyEndpoint, keySourceBoard, keyTargetBoard} {
		// Fall back to the unprefixed spelling (API_TOKEN etc.).
		_ = v.BindEnv(key, "BOARDSYNC_"+strings.ToUpper(key), strings.ToUpper(key))
	}

	s := &Settings{
		Token:       v.GetString(keyAPIToken),
		Endpoint:    v.GetString(keyEndpoint),
		SourceBoard: v.GetString(keySourceBoard),
		TargetBoard: v.GetString(keyTargetBoard),
	}
	return s, nil
}

// Validate checks that the settings a remote run requires are present.
func (s *Settings) Validate() error {
	if s.Token == "" {
		return errors.ErrTokenRequired
	}
	if s.SourceBoard == "" {
		return errors.NewConfigError("settings", "source board id is required (BOARDSYNC_SOURCE_BOARD)", nil)
	}
	if s.TargetBoard == "" {
		return errors.NewConfigError("settings", "target board id is required (BOARDSYNC_TARGET_BOARD)", nil)
	}
	return nil
}
