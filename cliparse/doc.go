// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Commands that own their flag set register the flags and load afterwards:

	cliparse.RegisterFlags(cmd.Flags())
	cfg, err := cliparse.Load(cmd.Flags())

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: full connection string, overrides the DB* fields
  - DBHost, DBPort, DBUser, DBPass, DBName, DBSSLMode: connection parts
  - ConnectionLimit: size of the connection pool (default: 1)
  - LogLevel: slog level (default: info)

# Sources

Values are resolved in this order:

 1. CLI flags that were set explicitly
 2. Environment variables (PORT, DATABASE_URL, DB_HOST, DB_PORT, DB_USER,
    DB_PASS, DB_NAME, DB_SSLMODE, DB_CONNECTION_LIMIT, LOG_LEVEL)
 3. Variables from the env file (--env-file, default .env), which never
    override the real environment
 4. Defaults

# Validation

Load returns an error unless either DATABASE_URL or all of DB_HOST, DB_USER
and DB_NAME are provided. The connection limit must be at least 1.

# Example

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	pool, err := db.Open(ctx, cfg)
	// ...
	mux := router.NewRouter(datastore.New(pool))
*/
package cliparse
