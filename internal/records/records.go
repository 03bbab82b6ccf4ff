// Package records reads batch tag updates from CSV or JSONL input.
package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/springboard/drip-cli/internal/api"
	"github.com/springboard/drip-cli/internal/validation"
)

// Format is an input encoding.
type Format string

const (
	CSV   Format = "csv"
	JSONL Format = "jsonl"
)

// ParseFormat parses a --format value. An empty value infers the format from
// path: .jsonl and .ndjson are JSONL, everything else (including stdin) is CSV.
func ParseFormat(value, path string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return CSV, nil
	case "jsonl", "ndjson":
		return JSONL, nil
	case "":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".jsonl", ".ndjson":
			return JSONL, nil
		}
		return CSV, nil
	default:
		return "", fmt.Errorf("invalid format %q (use 'csv' or 'jsonl')", value)
	}
}

// ErrNoRecords is returned when the input holds no updates.
var ErrNoRecords = errors.New("no records in input")

// Read decodes updates in the given format. Rows for the same email are
// merged into one update, in first-seen order.
func Read(r io.Reader, format Format) ([]api.TagUpdate, error) {
	var (
		updates []api.TagUpdate
		err     error
	)
	switch format {
	case JSONL:
		updates, err = readJSONL(r)
	default:
		updates, err = readCSV(r)
	}
	if err != nil {
		return nil, err
	}
	updates = merge(updates)
	if len(updates) == 0 {
		return nil, ErrNoRecords
	}
	return updates, nil
}

// readCSV accepts rows of email,tag,remove_tag. A header row is detected by an
// "email" first cell and may reorder the columns. Empty cells are skipped.
func readCSV(r io.Reader) ([]api.TagUpdate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	cols := map[string]int{"email": 0, "tag": 1, "remove_tag": 2}
	var out []api.TagUpdate
	for first := true; ; first = false {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		if first && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "email") {
			cols = headerColumns(row)
			continue
		}
		line, _ := cr.FieldPos(0)

		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		email := cell("email")
		if email == "" && cell("tag") == "" && cell("remove_tag") == "" {
			continue
		}
		if err := validation.Email(email); err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		u := api.TagUpdate{Email: email}
		if tag := cell("tag"); tag != "" {
			u.Tags = []string{tag}
		}
		if tag := cell("remove_tag"); tag != "" {
			u.RemoveTags = []string{tag}
		}
		out = append(out, u)
	}
	return out, nil
}

func headerColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "tags":
			name = "tag"
		case "remove_tags", "remove":
			name = "remove_tag"
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

// readJSONL accepts one {"email","tags","remove_tags"} object per line.
// Blank lines are skipped.
func readJSONL(r io.Reader) ([]api.TagUpdate, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out []api.TagUpdate
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		var u api.TagUpdate
		if err := dec.Decode(&u); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
		u.Email = strings.TrimSpace(u.Email)
		if err := validation.Email(u.Email); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
		u.Tags = compact(u.Tags)
		u.RemoveTags = compact(u.RemoveTags)
		out = append(out, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl: %w", err)
	}
	return out, nil
}

// merge folds updates for the same email together, dropping duplicate tags.
func merge(updates []api.TagUpdate) []api.TagUpdate {
	index := make(map[string]int, len(updates))
	out := make([]api.TagUpdate, 0, len(updates))
	for _, u := range updates {
		key := strings.ToLower(u.Email)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, api.TagUpdate{Email: u.Email, Tags: compact(u.Tags), RemoveTags: compact(u.RemoveTags)})
			continue
		}
		out[i].Tags = compact(append(out[i].Tags, u.Tags...))
		out[i].RemoveTags = compact(append(out[i].RemoveTags, u.RemoveTags...))
	}
	return out
}

func compact(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
