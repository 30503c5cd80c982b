// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Commonspace API server.

Commonspace collects public life survey data. Study owners define studies
over a map and choose the fields their surveyors record. Each study gets
its own data table. Surveyors are scheduled into surveys and record data
points from the field.

# Commands

	commonspace serve    Create the schema if needed and start the HTTP server
	commonspace migrate  Create the schema and exit
	commonspace version  Print the version

# Configuration

Settings come from flags, then environment variables, then defaults. A .env
file (--env-file) is loaded into the environment first:

	DATABASE_URL=postgres://... commonspace serve

Or with flags:

	commonspace serve -p 3318 --db-host localhost --db-user survey --db-name commonspace

Database settings:

  - DATABASE_URL (-d): PostgreSQL connection string, overrides the parts below
  - DB_HOST, DB_PORT, DB_USER, DB_PASS, DB_NAME, DB_SSLMODE
  - DB_CONNECTION_LIMIT: maximum open connections (default: 1)

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - LOG_LEVEL: debug, info, warn or error (default: info)

# Architecture

  - handlers: HTTP request handlers (users, studies, surveys, data points)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - datastore: PostgreSQL stores and per-study table management
  - models: Domain, request and response types, survey updates
  - auth: Id generation and validation, caller identity
  - db: Connection pool, transactions, schema creation
  - cliparse: Configuration parsing
  - testutil: Test database and HTTP helpers

See package documentation for each component.
*/
package main
