package shotgen

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o640
)

// PartitionDir returns the hive-style directory of one season under dir.
func PartitionDir(dir, season string) string {
	return filepath.Join(dir, "Season="+url.PathEscape(season))
}

// writePartition writes rows as one parquet file in the season's partition
// and returns its path.
func writePartition(dir, season string, rows []Row, rowGroupSize int) (string, error) {
	partDir := PartitionDir(dir, season)
	if err := os.MkdirAll(partDir, directoryPermission); err != nil {
		return "", fmt.Errorf("create partition: %w", err)
	}
	path := filepath.Join(partDir, "part-00000.parquet")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	w := parquet.NewGenericWriter[Row](f, parquet.MaxRowsPerRowGroup(int64(max(1, rowGroupSize))))
	if _, err := w.Write(rows); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write rows: %w", err)
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("flush parquet: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return path, nil
}
