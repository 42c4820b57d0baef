package config

// DetectFormat exports detectFormat for testing.
var DetectFormat = detectFormat

// MakeTestConfig returns a valid in-memory configuration that needs no
// external services.
func MakeTestConfig() *Config {
	cfg := Default()
	cfg.Cache.Mode = "memory"
	cfg.Server.Listen = "127.0.0.1:0"
	return cfg
}

// MakeTestValidationError returns a ValidationError with Errors initialized.
func MakeTestValidationError() *ValidationError {
	return &ValidationError{
		Errors: []string{},
	}
}

// mapLookup adapts a map to LookupFunc.
func mapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}
