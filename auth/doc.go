// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifier generation and caller identification.

# ID Generation

Users, studies, surveys and data points are keyed by random UUIDs:

	id, err := auth.GenerateID()

Handlers fill in missing ids with EnsureID, which also normalizes ids the
client supplied:

	studyID, err := auth.EnsureID(req.StudyID)

# ID Validation

NormalizeID accepts any form uuid.Parse accepts and returns the canonical
lowercase, hyphenated form. It fails with ErrInvalidID otherwise. Study ids
become part of SQL table names, so they must be normalized first.

# Caller Identity

The caller's user id is read from the X-User-ID header:

	userID, err := auth.UserIDFromRequest(r)

The header is trusted as-is; there is no authentication. It is used to check
that a caller is the surveyor assigned to a survey before recording data.
*/
package auth
