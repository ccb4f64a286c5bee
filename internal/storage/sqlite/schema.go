package sqlite

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS hubs (
	id          TEXT PRIMARY KEY,
	universe_id TEXT,
	name        TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hubs_name ON hubs(name);

CREATE TABLE IF NOT EXISTS works (
	id             TEXT PRIMARY KEY,
	hub_id         TEXT NOT NULL,
	media_type     TEXT NOT NULL,
	sequence_index INTEGER
);
CREATE INDEX IF NOT EXISTS idx_works_hub ON works(hub_id);

CREATE TABLE IF NOT EXISTS editions (
	id           TEXT PRIMARY KEY,
	work_id      TEXT NOT NULL,
	format_label TEXT
);
CREATE INDEX IF NOT EXISTS idx_editions_work ON editions(work_id);

CREATE TABLE IF NOT EXISTS media_assets (
	id           TEXT PRIMARY KEY,
	edition_id   TEXT NOT NULL,
	content_hash TEXT NOT NULL UNIQUE,
	path_root    TEXT NOT NULL,
	status       TEXT NOT NULL CHECK (status IN ('Normal','Conflicted','Orphaned'))
);
CREATE INDEX IF NOT EXISTS idx_assets_path_root ON media_assets(path_root);

CREATE TABLE IF NOT EXISTS metadata_claims (
	id             TEXT PRIMARY KEY,
	entity_id      TEXT NOT NULL,
	entity_type    TEXT NOT NULL,
	provider_id    TEXT NOT NULL,
	claim_key      TEXT NOT NULL,
	claim_value    TEXT NOT NULL,
	confidence     REAL NOT NULL,
	claimed_at     TEXT NOT NULL,
	is_user_locked INTEGER NOT NULL CHECK (is_user_locked IN (0,1))
);
CREATE INDEX IF NOT EXISTS idx_claims_entity ON metadata_claims(entity_id, claim_key, claimed_at);

CREATE TABLE IF NOT EXISTS canonical_values (
	entity_id      TEXT NOT NULL,
	entity_type    TEXT NOT NULL,
	claim_key      TEXT NOT NULL,
	claim_value    TEXT NOT NULL,
	last_scored_at TEXT NOT NULL,
	is_conflicted  INTEGER NOT NULL CHECK (is_conflicted IN (0,1)),
	PRIMARY KEY (entity_id, claim_key)
);
CREATE INDEX IF NOT EXISTS idx_canonical_conflicted ON canonical_values(is_conflicted, last_scored_at);

CREATE TABLE IF NOT EXISTS persons (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	role         TEXT NOT NULL,
	external_id  TEXT,
	portrait_url TEXT,
	biography    TEXT,
	created_at   TEXT NOT NULL,
	enriched_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_persons_name_role ON persons(name, role);

CREATE TABLE IF NOT EXISTS person_media_links (
	asset_id  TEXT NOT NULL,
	person_id TEXT NOT NULL,
	role      TEXT NOT NULL,
	PRIMARY KEY (asset_id, person_id, role)
);

CREATE TABLE IF NOT EXISTS provider_registry (
	provider_id TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	domain      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS provider_config (
	provider_id   TEXT PRIMARY KEY,
	enabled       INTEGER NOT NULL DEFAULT 1,
	weight        REAL NOT NULL DEFAULT 1.0,
	field_weights TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS api_keys (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	role       TEXT NOT NULL,
	hash       TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	role       TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transaction_log (
	id          TEXT PRIMARY KEY,
	entity_id   TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	operation   TEXT NOT NULL,
	actor       TEXT NOT NULL,
	occurred_at TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_txlog_entity ON transaction_log(entity_id, occurred_at);

CREATE TABLE IF NOT EXISTS user_states (
	profile_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (profile_id, key)
);
`
