package dryrun

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/springboard/drip-cli/internal/api"
)

func TestWithDryRun(t *testing.T) {
	if IsEnabled(context.Background()) {
		t.Error("IsEnabled should return false by default")
	}
	if !IsEnabled(WithDryRun(context.Background(), true)) {
		t.Error("IsEnabled should return true when dry-run is enabled")
	}
	if IsEnabled(WithDryRun(context.Background(), false)) {
		t.Error("IsEnabled should return false when dry-run is explicitly disabled")
	}
}

func TestPreview_Write(t *testing.T) {
	p := &Preview{
		Operation: "add tag",
		Method:    "POST",
		URL:       "https://api.getdrip.com/v2/1/subscribers",
		Details:   map[string]any{"tag": "vip", "email": "a@x.com"},
		Warnings:  []string{"subscriber will be created if missing"},
	}
	var buf bytes.Buffer
	p.Write(&buf)
	out := buf.String()

	for _, want := range []string{"[DRY-RUN] Would add tag", "POST https://api.getdrip.com/v2/1/subscribers", "! subscriber will be created"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "email:") > strings.Index(out, "tag:") {
		t.Error("details should be sorted by key")
	}
}

func TestBatchPreview(t *testing.T) {
	paths := api.PathBuilder{Endpoint: "https://api.example.com/v2/", AccountID: "acct1"}
	updates := make([]api.TagUpdate, 1500)
	for i := range updates {
		updates[i] = api.TagUpdate{Email: fmt.Sprintf("u%d@x.com", i), Tags: []string{"a"}}
	}
	updates[1499].RemoveTags = []string{"b"}

	previews := BatchPreview(paths, updates)
	if len(previews) != 2 {
		t.Fatalf("previews = %d, want 2", len(previews))
	}
	first, second := previews[0], previews[1]
	if first.Details["subscribers"] != 1000 || first.Details["first"] != "u0@x.com" || first.Details["last"] != "u999@x.com" {
		t.Errorf("first = %+v", first.Details)
	}
	if second.Details["subscribers"] != 500 || second.Details["tags_removed"] != 1 {
		t.Errorf("second = %+v", second.Details)
	}
	if first.URL != "https://api.example.com/v2/acct1/subscribers/batches" || first.Operation != "send batch 1 of 2" {
		t.Errorf("first = %+v", first)
	}

	if len(BatchPreview(paths, nil)) != 0 {
		t.Error("empty input should produce no previews")
	}
}

func TestBatchPreview_WarnsOnEmptyChanges(t *testing.T) {
	paths := api.PathBuilder{Endpoint: "https://x/", AccountID: "1"}
	previews := BatchPreview(paths, []api.TagUpdate{{Email: "a@x.com"}})
	if len(previews) != 1 || len(previews[0].Warnings) != 1 {
		t.Errorf("previews = %+v", previews)
	}
}

func TestWriteAll(t *testing.T) {
	var buf bytes.Buffer
	WriteAll(&buf, []*Preview{{Operation: "a"}, {Operation: "b"}})
	out := buf.String()
	if strings.Count(out, "[DRY-RUN]") != 2 || !strings.HasSuffix(out, "No changes made (dry-run mode)\n") {
		t.Errorf("output = %q", out)
	}
}
