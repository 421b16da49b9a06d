package store

import (
	"context"
	"fmt"

	"github.com/madeindigio/felix-index/pkg/component"
)

// FileRecord tracks one previously-indexed file's content hash, the
// orchestrator's change-detection check before re-parsing (mirrors the
// teacher's CodeFile/GetCodeFile/SaveCodeFile skip-if-unchanged shape).
type FileRecord struct {
	ProjectID      string
	FilePath       string
	Language       component.Language
	Hash           string
	ComponentCount int
}

// UpsertFileRecord writes f through the write lane, keyed by (project_id,
// file_path) via the unique index declared in schema.go.
func (s *Store) UpsertFileRecord(ctx context.Context, f *FileRecord) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `
			UPSERT files CONTENT {
				project_id: $project_id, file_path: $file_path, language: $language,
				hash: $hash, component_count: $component_count, indexed_at: time::now()
			} WHERE project_id = $project_id AND file_path = $file_path;
		`, map[string]interface{}{
			"project_id": f.ProjectID, "file_path": f.FilePath, "language": string(f.Language),
			"hash": f.Hash, "component_count": f.ComponentCount,
		})
		return err
	})
}

// GetFileHash returns the previously-recorded hash for filePath, and
// whether a record exists at all (a new file has none).
func (s *Store) GetFileHash(ctx context.Context, projectID, filePath string) (string, bool, error) {
	results, err := s.query(ctx, `
		SELECT hash FROM files WHERE project_id = $project_id AND file_path = $file_path LIMIT 1;
	`, map[string]interface{}{"project_id": projectID, "file_path": filePath})
	if err != nil {
		return "", false, fmt.Errorf("get file hash %s: %w", filePath, err)
	}
	rows, err := decodeResult[struct {
		Hash string `json:"hash"`
	}](results)
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Hash, true, nil
}

// ListFilePaths returns every distinct file path known for projectID, the
// reconcile pass's "distinct known file paths" to stat against disk.
func (s *Store) ListFilePaths(ctx context.Context, projectID string) ([]string, error) {
	results, err := s.query(ctx, `
		SELECT file_path FROM files WHERE project_id = $project_id;
	`, map[string]interface{}{"project_id": projectID})
	if err != nil {
		return nil, fmt.Errorf("list file paths: %w", err)
	}
	rows, err := decodeResult[struct {
		FilePath string `json:"file_path"`
	}](results)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(rows))
	for i, r := range rows {
		paths[i] = r.FilePath
	}
	return paths, nil
}

// DeleteFileRecord removes filePath's tracking row, called by remove_file
// alongside DeleteComponentsByFile.
func (s *Store) DeleteFileRecord(ctx context.Context, projectID, filePath string) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `DELETE FROM files WHERE project_id = $project_id AND file_path = $file_path;`,
			map[string]interface{}{"project_id": projectID, "file_path": filePath})
		return err
	})
}
