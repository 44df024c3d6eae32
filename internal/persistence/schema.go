package persistence

// Schema creates the saved-object tables. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS form_saved_objects (
		id           UUID PRIMARY KEY,
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		attributes   JSONB NOT NULL,
		"references" JSONB NOT NULL DEFAULT '[]',
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS form_saved_object_aliases (
		source_id  TEXT PRIMARY KEY,
		target_id  UUID NOT NULL REFERENCES form_saved_objects(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS form_saved_objects_updated_at_idx ON form_saved_objects (updated_at DESC)`,
}
