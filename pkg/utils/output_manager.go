package utils

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// OutputTimestampLayout is the second-precision stamp embedded in output names
const OutputTimestampLayout = "20060102_150405"

// OutputManager builds object paths for pipeline output in the data lake
type OutputManager struct {
	BaseDir     string
	Prefix      string
	Format      string
	Partitioned bool
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseDir, prefix, format string, partitioned bool) *OutputManager {
	return &OutputManager{
		BaseDir:     baseDir,
		Prefix:      prefix,
		Format:      strings.ToLower(format),
		Partitioned: partitioned,
	}
}

// FileName returns "{prefix}_{YYYYMMDD_HHMMSS}.{format}"
func (om *OutputManager) FileName(now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", om.Prefix, now.Format(OutputTimestampLayout), om.Format)
}

// PartitionDir returns "year=YYYY/month=MM/day=DD"
func PartitionDir(now time.Time) string {
	return fmt.Sprintf("year=%04d/month=%02d/day=%02d", now.Year(), int(now.Month()), now.Day())
}

// FilePath joins the base directory, the optional date partition and the
// file name into a slash separated path
func (om *OutputManager) FilePath(now time.Time) string {
	parts := []string{}
	if dir := strings.Trim(om.BaseDir, "/"); dir != "" {
		parts = append(parts, dir)
	}
	if om.Partitioned {
		parts = append(parts, PartitionDir(now))
	}
	parts = append(parts, om.FileName(now))
	return path.Join(parts...)
}

// GetFileType determines the output type from a file name's extension
func GetFileType(fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	switch ext {
	case ".parquet":
		return "parquet"
	case ".csv":
		return "csv"
	default:
		return "unknown"
	}
}
