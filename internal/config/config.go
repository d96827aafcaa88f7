package config

import "time"

// Config exposes the settings the session subsystem consumes. Kept as an
// interface so tests can supply fixed values without touching the environment.
type Config interface {
	GetAppName() string
	GetEnv() string
	GetAPIBaseURL() string
	GetLoginPath() string
	GetStateDir() string
	GetTokenRefreshInterval() time.Duration
}

type mainConfig struct {
	AppName         string        `mapstructure:"APP_NAME"`
	Env             string        `mapstructure:"ENV"`
	APIBaseURL      string        `mapstructure:"API_BASE_URL"`
	LoginPath       string        `mapstructure:"LOGIN_PATH"`
	StateDir        string        `mapstructure:"STATE_DIR"`
	RefreshInterval time.Duration `mapstructure:"TOKEN_REFRESH_INTERVAL"`
}

var _ Config = mainConfig{}

func (c mainConfig) GetAppName() string                     { return c.AppName }
func (c mainConfig) GetEnv() string                         { return c.Env }
func (c mainConfig) GetAPIBaseURL() string                  { return c.APIBaseURL }
func (c mainConfig) GetLoginPath() string                   { return c.LoginPath }
func (c mainConfig) GetStateDir() string                    { return c.StateDir }
func (c mainConfig) GetTokenRefreshInterval() time.Duration { return c.RefreshInterval }

// Static returns a Config with fixed values, primarily for tests.
func Static(apiBaseURL, loginPath, stateDir string, refreshInterval time.Duration) Config {
	return mainConfig{
		AppName:         "EMR Session",
		Env:             "DEV",
		APIBaseURL:      apiBaseURL,
		LoginPath:       loginPath,
		StateDir:        stateDir,
		RefreshInterval: refreshInterval,
	}
}
