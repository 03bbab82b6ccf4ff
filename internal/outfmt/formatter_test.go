package outfmt

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFormatter_Output_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithMode(context.Background(), JSON), &buf, &buf)

	if err := f.Output(map[string]string{"email": "a@x.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"email": "a@x.com"`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatter_Output_JSONLWithQuery(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithQuery(WithMode(context.Background(), JSONL), "[.[] | .email]")
	f := NewFormatter(ctx, &buf, &buf)

	data := []map[string]string{{"email": "a@x.com"}, {"email": "b@x.com"}}
	if err := f.Output(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "\"a@x.com\"\n\"b@x.com\"\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatter_Output_Text(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(context.Background(), &buf, &buf)
	if err := f.Output(map[string]string{"a": "b"}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Error("text mode should not write JSON")
	}
}

func TestFormatter_Table(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(context.Background(), &buf, &buf)

	if !f.StartTable([]string{"ID", "EMAIL"}) {
		t.Fatal("StartTable should report text mode")
	}
	f.Row("1", "a@x.com")
	_ = f.EndTable()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[1], "a@x.com") {
		t.Errorf("lines = %q", lines)
	}

	jsonF := NewFormatter(WithMode(context.Background(), JSON), &buf, &buf)
	if jsonF.StartTable([]string{"ID"}) {
		t.Error("StartTable should return false in JSON mode")
	}
}

func TestFormatter_Empty(t *testing.T) {
	var out, errOut bytes.Buffer
	f := NewFormatter(context.Background(), &out, &errOut)
	f.Empty("No subscribers found")
	if !strings.Contains(errOut.String(), "No subscribers found") || out.Len() != 0 {
		t.Error("empty message should be written to stderr only")
	}
}
