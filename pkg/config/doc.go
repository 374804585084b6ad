// Package config loads configuration structs from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct-tag parsing). Every package in this
// module exposes a Config struct with `env` and `envDefault` tags, so the
// composition root only needs:
//
//	var cfg session.Config
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Load reads the default .env file once per process; LoadEnv loads extra
// files explicitly. Parsing errors wrap ErrParsingConfig.
package config
