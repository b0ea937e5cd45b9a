package database

// Schema is the full database schema as produced by applying all
// migrations to an empty database.
//
// Generated from internal/database/migrations/files/*.sql by
// internal/database/tools/generate_schema.go. Do not edit manually;
// run 'go generate ./internal/database' after changing migrations.
const Schema = `
CREATE TABLE workspace (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE host (
    id TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL REFERENCES workspace(id) ON DELETE CASCADE,
    address TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (workspace_id, address)
);

CREATE TABLE service (
    id TEXT PRIMARY KEY,
    host_id TEXT NOT NULL REFERENCES host(id) ON DELETE CASCADE,
    kind TEXT NOT NULL,
    port INTEGER NOT NULL DEFAULT 0,
    complete BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (host_id, kind, port)
);

CREATE TABLE match_rule (
    id TEXT PRIMARY KEY,
    search_location TEXT NOT NULL,
    search_pattern TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    relevance TEXT NOT NULL,
    accuracy TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (search_location, search_pattern)
);

CREATE TABLE file (
    id TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL REFERENCES workspace(id) ON DELETE CASCADE,
    content BLOB,
    size_bytes INTEGER NOT NULL,
    sha256 TEXT NOT NULL,
    file_type TEXT NOT NULL DEFAULT '',
    mime_type TEXT NOT NULL DEFAULT '',
    review TEXT NOT NULL DEFAULT 'tbd',
    comment TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    UNIQUE (workspace_id, sha256)
);

CREATE TABLE path (
    id TEXT PRIMARY KEY,
    service_id TEXT NOT NULL REFERENCES service(id) ON DELETE CASCADE,
    file_id TEXT NOT NULL REFERENCES file(id) ON DELETE CASCADE,
    share TEXT NOT NULL DEFAULT '',
    full_path TEXT NOT NULL,
    file_name TEXT NOT NULL,
    extension TEXT NOT NULL DEFAULT '',
    access_time TIMESTAMP,
    modified_time TIMESTAMP,
    creation_time TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (service_id, share, full_path)
);

CREATE TABLE file_match_rule (
    file_id TEXT NOT NULL REFERENCES file(id) ON DELETE CASCADE,
    match_rule_id TEXT NOT NULL REFERENCES match_rule(id) ON DELETE CASCADE,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (file_id, match_rule_id)
);

CREATE TABLE scan_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    operation TEXT NOT NULL,
    parameters TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'running'
);

CREATE INDEX idx_path_file_id ON path(file_id);
CREATE INDEX idx_path_service_id ON path(service_id);
CREATE INDEX idx_file_workspace_digest ON file(workspace_id, sha256);
`
