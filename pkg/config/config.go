// Package config holds the application configuration for the duralogd
// daemon. Durability options mirror the store builder's knobs.
package config

// Config is the root configuration structure, parsed from YAML.
type Config struct {
	Logger     LoggerConfig     `yaml:"logger"`
	Server     ServerConfig     `yaml:"http-server"`
	Durability DurabilityConfig `yaml:"durability"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DurabilityConfig struct {
	// DataDir is the persistence directory, created recursively if absent.
	DataDir string `yaml:"data_dir"`

	// MaxJournalFileLength is the journal byte length past which a mutation
	// triggers compaction. Zero compacts after every mutation. Ignored when
	// AutoCompaction is false.
	MaxJournalFileLength int `yaml:"max_journal_file_length"`

	// AutoCompaction toggles length-triggered compaction.
	AutoCompaction bool `yaml:"auto_compaction"`

	// BufferedJournal selects buffered journal writes. Disabling it makes
	// every mutation block until its record reaches the file.
	BufferedJournal bool `yaml:"buffered_journal"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "DEBUG",
			JSON:  false,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Durability: DurabilityConfig{
			DataDir:              "./data",
			MaxJournalFileLength: 10 << 20,
			AutoCompaction:       true,
			BufferedJournal:      true,
		},
	}
}
