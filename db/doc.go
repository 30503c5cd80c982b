// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles the connection pool, transactions and schema creation.

# Connection Pool

Open builds the single pool shared by the whole process, capped at the
configured connection limit, and pings it:

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

# Transactions

WithTx commits when the callback returns nil and rolls back otherwise:

	err := db.WithTx(ctx, pool, func(tx *sql.Tx) error {
		// ...
	})

# Schema Creation

CreateSchema initializes all shared tables:

	if err := db.CreateSchema(ctx, pool); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times. Requires the PostGIS extension to be available.

# Tables

  - public.users: one row per email
  - data_collection.study: study metadata, fields, and its data table name
  - data_collection.location: map features of a study
  - data_collection.survey: scheduled observation sessions
  - data_collection.surveyors: which users may survey which studies

Each study also owns a data table, data_collection.study_<hex id>, created
and dropped by the datastore package.

# Relationships

	users 1──* study (owner)
	study 1──* location
	study 1──* survey
	users *──* study (via surveyors)
	survey 1──* study data table rows

Deleting a study cascades to its locations, surveys and grants. Data table
rows cascade from their survey.
*/
package db
