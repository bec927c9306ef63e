package store

// Config holds configuration for the DynamoDB-backed Store.
type Config struct {
	// TableName is the shared entity table.
	// Default: "admix_entities"
	TableName string
}

// DefaultConfig returns defaults suitable for local development.
func DefaultConfig() Config {
	return Config{
		TableName: "admix_entities",
	}
}

// validate ensures config values are usable.
func (c *Config) validate() {
	if c.TableName == "" {
		c.TableName = "admix_entities"
	}
}
