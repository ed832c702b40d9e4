package logger

import (
	"cmp"
	"log/slog"
	"strings"
)

// Config controls the process-wide slog handler.
type Config struct {
	Level       string
	Format      string
	ServiceName string
	Version     string
	Environment string
	AddSource   bool
}

// ForEnvironment builds the logger config for an environment. Production logs
// JSON at info without source locations; every other environment logs text at
// debug with source. Non-empty level, format and version override the defaults.
func ForEnvironment(environment, level, format, version string) Config {
	prod := environment == EnvironmentProduction

	cfg := Config{
		Level:       LogLevelDebug,
		Format:      LogFormatText,
		ServiceName: DefaultServiceName,
		Version:     cmp.Or(version, DefaultVersion),
		Environment: cmp.Or(environment, EnvironmentDev),
		AddSource:   !prod,
	}
	if prod {
		cfg.Level = LogLevelInfo
		cfg.Format = LogFormatJSON
	}

	cfg.Level = cmp.Or(level, cfg.Level)
	cfg.Format = cmp.Or(format, cfg.Format)
	return cfg
}

// LogLevel parses Level, accepting "warning" for warn. Unknown values log at info.
func (c Config) LogLevel() slog.Level {
	name := strings.ToLower(strings.TrimSpace(c.Level))
	if name == LogLevelWarning {
		name = LogLevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func (c Config) IsJSON() bool {
	return strings.EqualFold(c.Format, LogFormatJSON)
}

// BaseAttributes are attached to every record.
func (c Config) BaseAttributes() []slog.Attr {
	return []slog.Attr{
		slog.String(AttrKeyService, cmp.Or(c.ServiceName, DefaultServiceName)),
		slog.String(AttrKeyVersion, c.Version),
		slog.String(AttrKeyEnvironment, c.Environment),
	}
}
