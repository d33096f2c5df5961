package config

const (
	defaultConfigPath      = "~/.config/trackiq/config.toml"
	defaultUploadDir       = "~/.local/share/trackiq/uploads"
	defaultDatabasePath    = "~/.local/share/trackiq/trackiq.db"
	defaultBind            = "127.0.0.1:8000"
	defaultMaxUploadMB     = 200
	defaultMaxConcurrent   = 2
	defaultTimeoutSeconds  = 300
	defaultResampleQuality = "high"
	defaultFFmpegPath      = "ffmpeg"
	defaultFFprobePath     = "ffprobe"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

func defaultAllowedOrigins() []string {
	return []string{"http://localhost:3000", "http://localhost"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:    defaultUploadDir,
			DatabasePath: defaultDatabasePath,
		},
		Server: Server{
			Bind:           defaultBind,
			AllowedOrigins: defaultAllowedOrigins(),
			MaxUploadMB:    defaultMaxUploadMB,
			MaxConcurrent:  defaultMaxConcurrent,
		},
		Extraction: Extraction{
			SampleRate:      0,
			ResampleQuality: defaultResampleQuality,
			TimeoutSeconds:  defaultTimeoutSeconds,
		},
		Decoder: Decoder{
			FFmpegPath:  defaultFFmpegPath,
			FFprobePath: defaultFFprobePath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
