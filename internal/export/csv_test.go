package export

import (
	"bytes"
	"encoding/csv"
	"mime"
	"strings"
	"testing"
	"time"

	"annotation-review/internal/models"

	"github.com/google/go-cmp/cmp"
)

func strPtr(s string) *string { return &s }

func readCSV(t *testing.T, body []byte) [][]string {
	t.Helper()
	if !bytes.HasPrefix(body, utf8BOM) {
		t.Fatalf("export is missing the UTF-8 BOM")
	}
	records, err := csv.NewReader(bytes.NewReader(body[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("export is not parseable CSV: %v", err)
	}
	return records
}

func TestWriteCSV_RoundTripsHostileContent(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := []*models.Annotation{
		{
			ID:                 "a1",
			CaseID:             0,
			BrowserFingerprint: "f1",
			AccountName:        "Alice",
			HumanAction:        models.ActionDisagree,
			HumanReasoning:     strPtr("line one\r\nline two\rline three"),
			LLMJudgement:       strPtr(`says "yes", loudly`),
			Dimension:          strPtr("准确性"),
			OriginalData:       `{"question":"你好, world\n第二行","answer":"a \"quoted\" reply","score":3,"tags":["x","y"]}`,
			CreatedAt:          created,
			UpdatedAt:          created,
		},
		{
			ID:                 "a2",
			CaseID:             1,
			BrowserFingerprint: "f1",
			AccountName:        "Alice",
			HumanAction:        models.ActionAgree,
			HumanJudgement:     strPtr("fine\x00"),
			OriginalData:       `{"question":"Привет","context":{"lang":"ru"}}`,
			CreatedAt:          created,
			UpdatedAt:          created,
		},
	}

	var buf bytes.Buffer
	result, err := WriteCSV(&buf, rows)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if len(result.MalformedIDs) != 0 {
		t.Errorf("unexpected malformed rows: %v", result.MalformedIDs)
	}

	records := readCSV(t, buf.Bytes())
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}

	wantHeader := append(append([]string{}, MetadataColumns...), "answer", "context", "question", "score", "tags")
	if diff := cmp.Diff(wantHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	col := func(name string) int {
		for i, h := range records[0] {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %q missing", name)
		return -1
	}

	first := records[1]
	checks := map[string]string{
		"case_id":         "0",
		"human_action":    "disagree",
		"human_reasoning": "line one\nline two\nline three",
		"llm_judgement":   `says "yes", loudly`,
		"dimension":       "准确性",
		"question":        "你好, world\n第二行",
		"answer":          `a "quoted" reply`,
		"score":           "3",
		"tags":            `["x","y"]`,
		"context":         "",
		"created_at":      "2025-01-02T03:04:05.000000Z",
	}
	for name, want := range checks {
		if got := first[col(name)]; got != want {
			t.Errorf("row 1 %s = %q, want %q", name, got, want)
		}
	}

	second := records[2]
	if got := second[col("human_judgement")]; got != "fine" {
		t.Errorf("null byte not stripped: %q", got)
	}
	if got := second[col("context")]; got != `{"lang":"ru"}` {
		t.Errorf("nested object = %q", got)
	}
	if got := second[col("answer")]; got != "" {
		t.Errorf("missing key should be empty, got %q", got)
	}
}

func TestWriteCSV_QuotesEveryField(t *testing.T) {
	rows := []*models.Annotation{{ID: "a1", CaseID: 4, HumanAction: models.ActionSkip, OriginalData: `{}`}}

	var buf bytes.Buffer
	if _, err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(string(buf.Bytes()[len(utf8BOM):]), "\r\n"), "\r\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], `"4","","","skip",`) {
		t.Errorf("data line not fully quoted: %s", lines[1])
	}
}

func TestWriteCSV_MalformedOriginalDataDoesNotAbort(t *testing.T) {
	rows := []*models.Annotation{
		{ID: "good", CaseID: 0, HumanAction: models.ActionAgree, OriginalData: `{"question":"q0"}`},
		{ID: "bad", CaseID: 1, HumanAction: models.ActionAgree, OriginalData: `{not json`},
		{ID: "list", CaseID: 2, HumanAction: models.ActionAgree, OriginalData: `[1,2]`},
	}

	var buf bytes.Buffer
	result, err := WriteCSV(&buf, rows)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if diff := cmp.Diff([]string{"bad", "list"}, result.MalformedIDs); diff != "" {
		t.Errorf("malformed ids mismatch (-want +got):\n%s", diff)
	}

	records := readCSV(t, buf.Bytes())
	if len(records) != 4 {
		t.Fatalf("expected every row exported, got %d records", len(records))
	}
	last := len(records[0]) - 1
	if records[0][last] != "question" {
		t.Fatalf("question column missing from header: %v", records[0])
	}
	if records[1][last] != "q0" || records[2][last] != "" || records[3][last] != "" {
		t.Errorf("unexpected question column: %q %q %q", records[1][last], records[2][last], records[3][last])
	}
}

func TestWriteCSV_PrefixesKeysThatRepeatMetadataColumns(t *testing.T) {
	rows := []*models.Annotation{{
		ID:           "a1",
		CaseID:       4,
		AccountName:  "Alice",
		HumanAction:  models.ActionAgree,
		Dimension:    strPtr("accuracy"),
		OriginalData: `{"case_id":"src-7","dimension":"tone","question":"q"}`,
	}, {
		ID:           "a2",
		CaseID:       5,
		AccountName:  "Alice",
		HumanAction:  models.ActionSkip,
		OriginalData: `{"original.case_id":"taken"}`,
	}}

	var buf bytes.Buffer
	if _, err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	records := readCSV(t, buf.Bytes())

	wantHeader := append(append([]string{}, MetadataColumns...),
		"original.original.case_id", "original.dimension", "original.case_id", "question")
	if diff := cmp.Diff(wantHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	seen := make(map[string]bool)
	for _, h := range records[0] {
		if seen[h] {
			t.Errorf("duplicate header %q", h)
		}
		seen[h] = true
	}

	n := len(MetadataColumns)
	if diff := cmp.Diff([]string{"src-7", "tone", "", "q"}, records[1][n:]); diff != "" {
		t.Errorf("first row original columns (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"", "", "taken", ""}, records[2][n:]); diff != "" {
		t.Errorf("second row original columns (-want +got):\n%s", diff)
	}
	if records[1][0] != "4" || records[1][10] != "accuracy" {
		t.Errorf("metadata columns overwritten: %v", records[1][:n])
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"nil pointer", (*string)(nil), ""},
		{"crlf", "a\r\nb", "a\nb"},
		{"bare cr", "a\rb", "a\nb"},
		{"null byte", "a\x00b", "ab"},
		{"bool", true, "true"},
		{"float", 2.5, "2.5"},
		{"whole float", float64(3), "3"},
		{"html stays raw", map[string]any{"k": "<b>&</b>"}, `{"k":"<b>&</b>"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in); got != tt.want {
				t.Errorf("Text(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name      string
		fileHash  string
		dimension string
		wantASCII string
		wantFull  string
	}{
		{"no dimension", "abcdef0123456789", "", "annotations_abcdef01.csv", "annotations_abcdef01.csv"},
		{"ascii dimension", "abcdef0123456789", "tone", "annotations_abcdef01_tone.csv", "annotations_abcdef01_tone.csv"},
		{"unicode dimension", "abcdef0123456789", "准确性 check", "annotations_abcdef01_____check.csv", "annotations_abcdef01_准确性 check.csv"},
		{"long dimension", "abc", "a-very-long-dimension-name", "annotations_abc_a-very-long-dimensio.csv", "annotations_abc_a-very-long-dimension-name.csv"},
		{"reserved characters", "abc", `50% 'off' "x"/y`, "annotations_abc_50___off___x__y.csv", `annotations_abc_50% 'off' "x"/y.csv`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := ContentDisposition(tt.fileHash, tt.dimension)

			ascii, _ := Filenames(tt.fileHash, tt.dimension)
			if ascii != tt.wantASCII {
				t.Errorf("ascii filename = %q, want %q", ascii, tt.wantASCII)
			}
			for _, r := range ascii {
				if r > 0x7F {
					t.Fatalf("ascii filename contains %q", r)
				}
			}
			if !strings.Contains(header, `filename="`+tt.wantASCII+`"`) {
				t.Errorf("header lacks ascii filename: %s", header)
			}

			disposition, params, err := mime.ParseMediaType(header)
			if err != nil {
				t.Fatalf("ParseMediaType(%q): %v", header, err)
			}
			if disposition != "attachment" {
				t.Errorf("disposition = %q", disposition)
			}
			if params["filename"] != tt.wantFull {
				t.Errorf("decoded filename* = %q, want %q", params["filename"], tt.wantFull)
			}
		})
	}
}
