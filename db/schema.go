// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates the shared tables and types needed by the application.
// Safe to call multiple times - uses IF NOT EXISTS and ignores duplicate types.
// Per-study data tables are created by the study store, not here.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// DropSchema removes everything CreateSchema created, including every
// per-study data table in data_collection. Used by tests.
func DropSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		DROP SCHEMA IF EXISTS data_collection CASCADE;
		DROP TABLE IF EXISTS public.users CASCADE;
	`)
	if err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return nil
}

// Schema is the DDL for the shared tables
const Schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE SCHEMA IF NOT EXISTS data_collection;

-- Value types for the columns of per-study data tables
DO $$ BEGIN
    CREATE TYPE data_collection.gender AS ENUM ('male', 'female', 'unknown');
EXCEPTION WHEN duplicate_object THEN NULL;
END $$;

DO $$ BEGIN
    CREATE TYPE data_collection.mode AS ENUM ('pedestrian', 'bicyclist', 'skateboarder', 'wheelchair', 'stroller', 'other');
EXCEPTION WHEN duplicate_object THEN NULL;
END $$;

DO $$ BEGIN
    CREATE TYPE data_collection.posture AS ENUM ('leaning', 'lying', 'sitting', 'sitting_on_the_ground', 'standing', 'multiple');
EXCEPTION WHEN duplicate_object THEN NULL;
END $$;

DO $$ BEGIN
    CREATE TYPE data_collection.activities AS ENUM (
        'commercial', 'consuming', 'conversing', 'cultural', 'electronic_engagement',
        'pets', 'idle', 'running', 'smoking', 'recreation_active', 'recreation_passive',
        'waiting_transfer', 'working_civic', 'disruptive', 'soliciting'
    );
EXCEPTION WHEN duplicate_object THEN NULL;
END $$;

DO $$ BEGIN
    CREATE TYPE data_collection.groups AS ENUM ('group_1', 'group_2', 'group_3-7', 'group_8+');
EXCEPTION WHEN duplicate_object THEN NULL;
END $$;

DO $$ BEGIN
    CREATE TYPE data_collection.object AS ENUM (
        'animal', 'bag_carried', 'clothing_cultural', 'clothing_activity',
        'goods_carried', 'goods_pushcart', 'luggage_wheeled', 'mobility_aid', 'stroller'
    );
EXCEPTION WHEN duplicate_object THEN NULL;
END $$;

-- Users
CREATE TABLE IF NOT EXISTS public.users (
    user_id UUID PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Studies
CREATE TABLE IF NOT EXISTS data_collection.study (
    study_id UUID PRIMARY KEY,
    title TEXT,
    project TEXT,
    project_phase TEXT,
    start_date TIMESTAMPTZ,
    end_date TIMESTAMPTZ,
    scale TEXT CHECK (scale IN ('district', 'city', 'cityCentre', 'neighborhood', 'blockScale', 'singleSite')),
    areas JSONB,
    user_id UUID NOT NULL REFERENCES public.users(user_id),
    study_type TEXT NOT NULL CHECK (study_type IN ('stationary', 'movement')),
    map JSONB NOT NULL DEFAULT '{}',
    protocol_version TEXT NOT NULL,
    fields TEXT[] NOT NULL,
    tablename TEXT NOT NULL UNIQUE,
    notes TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_study_user_id ON data_collection.study(user_id);

-- Locations (map features surveys take place at)
CREATE TABLE IF NOT EXISTS data_collection.location (
    location_id UUID PRIMARY KEY,
    study_id UUID NOT NULL REFERENCES data_collection.study(study_id) ON DELETE CASCADE,
    name TEXT,
    geometry geometry NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_location_study_id ON data_collection.location(study_id);

-- Surveys
CREATE TABLE IF NOT EXISTS data_collection.survey (
    survey_id UUID PRIMARY KEY,
    study_id UUID NOT NULL REFERENCES data_collection.study(study_id) ON DELETE CASCADE,
    user_id UUID REFERENCES public.users(user_id),
    location_id UUID REFERENCES data_collection.location(location_id) ON DELETE SET NULL,
    title TEXT,
    start_date TIMESTAMPTZ,
    end_date TIMESTAMPTZ,
    representation TEXT,
    microclimate TEXT,
    temperature_c DOUBLE PRECISION,
    method TEXT,
    notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_survey_study_id ON data_collection.survey(study_id);
CREATE INDEX IF NOT EXISTS idx_survey_user_id ON data_collection.survey(user_id);

-- Surveyor grants
CREATE TABLE IF NOT EXISTS data_collection.surveyors (
    user_id UUID NOT NULL REFERENCES public.users(user_id) ON DELETE CASCADE,
    study_id UUID NOT NULL REFERENCES data_collection.study(study_id) ON DELETE CASCADE,
    PRIMARY KEY (user_id, study_id)
);
`
