package config

const (
	defaultDataDir           = "~/.local/share/starstage"
	defaultStagingDir        = "~/.local/share/starstage/staging"
	defaultLogDir            = "~/.local/share/starstage/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultDateToleranceDays = 0
	defaultMaterializeMode   = "copy"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Matching: Matching{
			DateToleranceDays: defaultDateToleranceDays,
		},
		Staging: Staging{
			MaterializeMode: defaultMaterializeMode,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
