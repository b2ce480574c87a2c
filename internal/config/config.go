package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/onthepitch/matchsim/internal/tuning"
)

// FileName is the config file looked up in the config directory.
const FileName = "matchsim.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend.
type SQLiteConfig struct {
	OutputPath   string
	DumpInterval time.Duration
}

// WebSocketConfig holds the live streaming target.
type WebSocketConfig struct {
	URL    string
	Secret string
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Type      string
	Memory    MemoryConfig
	SQLite    SQLiteConfig
	WebSocket WebSocketConfig
}

// SimulationConfig is the scenario a run plays.
type SimulationConfig struct {
	HomeTeam              string
	AwayTeam              string
	MatchDuration         float64
	SymmetricMode         bool
	ReverseTeamProcessing bool
	Render                bool
	PhysicsStepsPerFrame  int
	PlayersPerTeam        int
	Seed                  uint64
	MaxTicks              int
	Realtime              bool
	FrameEvery            int
	Tag                   string
}

// CameraConfig holds the broadcast camera preferences.
type CameraConfig struct {
	FOV         float64
	Zoom        float64
	Height      float64
	AngleFactor float64
	Method      string
}

// OTelConfig holds the OpenTelemetry log export settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// SetDefaults registers every default. Load calls it; tools that run without
// a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./matchlogs")

	viper.SetDefault("simulation.homeTeam", "Home")
	viper.SetDefault("simulation.awayTeam", "Away")
	viper.SetDefault("simulation.matchDuration", 1.0)
	viper.SetDefault("simulation.symmetricMode", true)
	viper.SetDefault("simulation.reverseTeamProcessing", false)
	viper.SetDefault("simulation.render", false)
	viper.SetDefault("simulation.physicsStepsPerFrame", 10)
	viper.SetDefault("simulation.playersPerTeam", 11)
	viper.SetDefault("simulation.seed", 1)
	viper.SetDefault("simulation.maxTicks", 0)
	viper.SetDefault("simulation.realtime", false)
	viper.SetDefault("simulation.frameEvery", 10)
	viper.SetDefault("simulation.tag", "Friendly")

	viper.SetDefault("camera.fov", 0.5)
	viper.SetDefault("camera.zoom", 0.5)
	viper.SetDefault("camera.height", 0.5)
	viper.SetDefault("camera.angleFactor", 0.5)
	viper.SetDefault("camera.method", "wide")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "matchsim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "matchsim-metrics")
	viper.SetDefault("influx.retentionDays", 90)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.outputPath", "./recordings/matchsim.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/ingest")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "matchsim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			OutputPath:   viper.GetString("storage.sqlite.outputPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetSimulationConfig returns the simulation section.
func GetSimulationConfig() SimulationConfig {
	return SimulationConfig{
		HomeTeam:              viper.GetString("simulation.homeTeam"),
		AwayTeam:              viper.GetString("simulation.awayTeam"),
		MatchDuration:         viper.GetFloat64("simulation.matchDuration"),
		SymmetricMode:         viper.GetBool("simulation.symmetricMode"),
		ReverseTeamProcessing: viper.GetBool("simulation.reverseTeamProcessing"),
		Render:                viper.GetBool("simulation.render"),
		PhysicsStepsPerFrame:  viper.GetInt("simulation.physicsStepsPerFrame"),
		PlayersPerTeam:        viper.GetInt("simulation.playersPerTeam"),
		Seed:                  viper.GetUint64("simulation.seed"),
		MaxTicks:              viper.GetInt("simulation.maxTicks"),
		Realtime:              viper.GetBool("simulation.realtime"),
		FrameEvery:            viper.GetInt("simulation.frameEvery"),
		Tag:                   viper.GetString("simulation.tag"),
	}
}

// GetCameraConfig returns the camera section.
func GetCameraConfig() CameraConfig {
	return CameraConfig{
		FOV:         viper.GetFloat64("camera.fov"),
		Zoom:        viper.GetFloat64("camera.zoom"),
		Height:      viper.GetFloat64("camera.height"),
		AngleFactor: viper.GetFloat64("camera.angleFactor"),
		Method:      viper.GetString("camera.method"),
	}
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetTuning overlays the tuning section of the config on the reference table
// and validates the result.
func GetTuning() (tuning.Params, error) {
	p := tuning.Default()
	if viper.IsSet("tuning") {
		if err := viper.UnmarshalKey("tuning", &p); err != nil {
			return p, fmt.Errorf("decode tuning: %w", err)
		}
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid tuning: %w", err)
	}
	return p, nil
}
