package store

import (
	"context"
	"fmt"
)

// mtreeDim is the embedding vector width the MTREE indexes are built for.
// Follows the teacher's defaultMtreeDim convention.
const mtreeDim = 768

// schemaStatements define every table this package owns. Unlike the
// teacher's numbered migrations (v1..v12, tracked in a schema_version
// table), every statement here is declared with `IF NOT EXISTS` so a
// reindex or a second project pointed at the same database is always safe
// to run — there is no migration ladder to keep in sync because there is
// only ever one schema shape.
var schemaStatements = []string{
	`DEFINE TABLE IF NOT EXISTS projects SCHEMALESS;`,
	`DEFINE FIELD IF NOT EXISTS root_path ON projects TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS created_at ON projects TYPE datetime VALUE time::now();`,
	`DEFINE FIELD IF NOT EXISTS watch_enabled ON projects TYPE bool DEFAULT false;`,
	`DEFINE FIELD IF NOT EXISTS reconcile_watermark ON projects TYPE datetime;`,
	`DEFINE INDEX IF NOT EXISTS projects_root_path ON projects FIELDS root_path UNIQUE;`,

	`DEFINE TABLE IF NOT EXISTS components SCHEMALESS;`,
	`DEFINE FIELD IF NOT EXISTS project_id ON components TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS name ON components TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS type ON components TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS language ON components TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS file_path ON components TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS parent_id ON components TYPE option<string>;`,
	`DEFINE FIELD IF NOT EXISTS code ON components TYPE option<string>;`,
	`DEFINE FIELD IF NOT EXISTS metadata ON components FLEXIBLE TYPE option<object>;`,
	`DEFINE FIELD IF NOT EXISTS content_hash ON components TYPE option<string>;`,
	`DEFINE FIELD IF NOT EXISTS created_at ON components TYPE datetime VALUE time::now();`,
	`DEFINE FIELD IF NOT EXISTS updated_at ON components TYPE datetime VALUE time::now();`,
	`DEFINE INDEX IF NOT EXISTS components_project_file ON components FIELDS project_id, file_path;`,
	`DEFINE INDEX IF NOT EXISTS components_project_name ON components FIELDS project_id, name;`,
	`DEFINE INDEX IF NOT EXISTS components_parent ON components FIELDS project_id, parent_id;`,

	`DEFINE TABLE IF NOT EXISTS relationships SCHEMALESS;`,
	`DEFINE FIELD IF NOT EXISTS type ON relationships TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS source_id ON relationships TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS target_id ON relationships TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS metadata ON relationships FLEXIBLE TYPE option<object>;`,
	`DEFINE INDEX IF NOT EXISTS relationships_source ON relationships FIELDS source_id;`,
	`DEFINE INDEX IF NOT EXISTS relationships_target ON relationships FIELDS target_id;`,

	`DEFINE TABLE IF NOT EXISTS embeddings SCHEMALESS;`,
	`DEFINE FIELD IF NOT EXISTS entity_id ON embeddings TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS entity_kind ON embeddings TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS project_id ON embeddings TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS vector ON embeddings TYPE array<float>;`,
	`DEFINE FIELD IF NOT EXISTS content_hash ON embeddings TYPE string;`,
	`DEFINE INDEX IF NOT EXISTS embeddings_entity ON embeddings FIELDS entity_id UNIQUE;`,
	fmt.Sprintf(`DEFINE INDEX IF NOT EXISTS embeddings_mtree ON embeddings FIELDS vector MTREE DIMENSION %d DIST COSINE;`, mtreeDim),

	`DEFINE TABLE IF NOT EXISTS work_items SCHEMALESS;`,
	`DEFINE FIELD IF NOT EXISTS project_id ON work_items TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS kind ON work_items TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS parent_id ON work_items TYPE option<string>;`,
	`DEFINE FIELD IF NOT EXISTS depth_level ON work_items TYPE option<int>;`,
	`DEFINE FIELD IF NOT EXISTS sort_order ON work_items TYPE option<int>;`,
	`DEFINE FIELD IF NOT EXISTS title ON work_items TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS content ON work_items TYPE option<string>;`,
	`DEFINE FIELD IF NOT EXISTS status ON work_items TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS tags ON work_items TYPE option<array<string>>;`,
	`DEFINE FIELD IF NOT EXISTS entity_links ON work_items FLEXIBLE TYPE option<array>;`,
	`DEFINE FIELD IF NOT EXISTS depends_on_ids ON work_items TYPE option<array<string>>;`,
	`DEFINE FIELD IF NOT EXISTS created_at ON work_items TYPE datetime VALUE time::now();`,
	`DEFINE FIELD IF NOT EXISTS updated_at ON work_items TYPE datetime VALUE time::now();`,
	`DEFINE INDEX IF NOT EXISTS work_items_project_parent ON work_items FIELDS project_id, parent_id;`,

	`DEFINE TABLE IF NOT EXISTS files SCHEMALESS;`,
	`DEFINE FIELD IF NOT EXISTS project_id ON files TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS file_path ON files TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS language ON files TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS hash ON files TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS component_count ON files TYPE int DEFAULT 0;`,
	`DEFINE FIELD IF NOT EXISTS indexed_at ON files TYPE datetime VALUE time::now();`,
	`DEFINE INDEX IF NOT EXISTS files_project_path ON files FIELDS project_id, file_path UNIQUE;`,

	`DEFINE TABLE IF NOT EXISTS watch_state SCHEMALESS;`,
	`DEFINE FIELD IF NOT EXISTS project_id ON watch_state TYPE string;`,
	`DEFINE FIELD IF NOT EXISTS last_reconcile ON watch_state TYPE option<datetime>;`,
	`DEFINE FIELD IF NOT EXISTS events_processed ON watch_state TYPE int DEFAULT 0;`,
	`DEFINE FIELD IF NOT EXISTS events_failed ON watch_state TYPE int DEFAULT 0;`,
	`DEFINE INDEX IF NOT EXISTS watch_state_project ON watch_state FIELDS project_id UNIQUE;`,
}

// InitializeSchema runs every DEFINE statement. Every statement tolerates
// being re-run (IF NOT EXISTS on the embedded driver, or an
// already-exists/already-defined error swallowed on the remote driver when
// that guard clause isn't supported by the server version in use).
func (s *Store) InitializeSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.query(ctx, stmt, nil); err != nil {
			if isAlreadyExistsError(err) {
				continue
			}
			return fmt.Errorf("schema statement %q: %w", stmt, err)
		}
	}
	return nil
}
