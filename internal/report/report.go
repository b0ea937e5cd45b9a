// Package report renders the flagged files of a workspace as CSV or
// Excel and exports complete bundles (report plus content) to a vault.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"sfh-go/internal/sfh"
)

var columns = []string{
	"service", "share", "full_path", "file_name", "extension",
	"size_bytes", "sha256", "file_type", "mime_type",
	"review", "comment", "rules", "modified_time",
}

// WriteCSV renders one row per flagged path.
func WriteCSV(w io.Writer, records []*sfh.FileRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("writing row for %s: %w", r.FullPath, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(r *sfh.FileRecord) []string {
	return []string{
		serviceLabel(r),
		r.Share,
		r.FullPath,
		r.FileName,
		r.Extension,
		strconv.FormatInt(r.SizeBytes, 10),
		r.SHA256,
		r.FileType,
		r.MimeType,
		string(r.Review),
		r.Comment,
		ruleSummary(r),
		formatTime(r.ModifiedTime),
	}
}

func serviceLabel(r *sfh.FileRecord) string {
	t := sfh.Target{Address: r.Address, Port: r.Port, Kind: r.Kind}
	return t.String()
}

// ruleSummary joins the matched rules into one cell, categories first.
func ruleSummary(r *sfh.FileRecord) string {
	parts := make([]string, 0, len(r.Rules))
	for _, rule := range r.Rules {
		parts = append(parts, fmt.Sprintf("%s/%s: %s", rule.Category, rule.Location, rule.Pattern))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
