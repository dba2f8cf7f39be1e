package store

// Config holds the SQLite store configuration.
type Config struct {
	// Path is the location of the database file. ":memory:" keeps the
	// database in memory, which is what the tests use.
	Path string
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Path: "veilscan.db",
	}
}
