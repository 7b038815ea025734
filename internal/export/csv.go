// Package export renders stored annotations as a delimited text download.
package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"annotation-review/internal/models"
)

// MetadataColumns lead every export, before the sorted original_data keys.
var MetadataColumns = []string{
	"case_id",
	"browser_fingerprint",
	"account_name",
	"human_action",
	"human_judgement",
	"human_reasoning",
	"llm_judgement",
	"llm_reasoning",
	"annotation_type",
	"evaluation_type",
	"dimension",
	"created_at",
	"updated_at",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var lineEndings = strings.NewReplacer("\x00", "", "\r\n", "\n", "\r", "\n")

// Result reports rows whose original_data could not be decoded.
// Those rows are still exported with empty original_data columns.
type Result struct {
	Rows         int
	MalformedIDs []string
}

// WriteCSV writes rows as UTF-8 CSV with a byte order mark, every field
// quoted. The header is MetadataColumns followed by every original_data
// key seen across rows, sorted. Keys that repeat a metadata column carry
// OriginalPrefix.
func WriteCSV(w io.Writer, rows []*models.Annotation) (*Result, error) {
	result := &Result{Rows: len(rows)}

	decoded := make([]map[string]any, len(rows))
	keySet := make(map[string]struct{})
	for i, row := range rows {
		data, err := decodeOriginal(row.OriginalData)
		if err != nil {
			result.MalformedIDs = append(result.MalformedIDs, row.ID)
			continue
		}
		decoded[i] = data
		for k := range data {
			keySet[k] = struct{}{}
		}
	}

	originalKeys := make([]string, 0, len(keySet))
	for k := range keySet {
		originalKeys = append(originalKeys, k)
	}
	sort.Strings(originalKeys)

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(utf8BOM); err != nil {
		return nil, err
	}

	header := make([]string, 0, len(MetadataColumns)+len(originalKeys))
	header = append(header, MetadataColumns...)
	header = append(header, originalColumns(originalKeys)...)
	if err := writeRecord(bw, header); err != nil {
		return nil, err
	}

	record := make([]string, len(header))
	for i, row := range rows {
		record = record[:0]
		record = append(record,
			strconv.FormatInt(row.CaseID, 10),
			Text(row.BrowserFingerprint),
			Text(row.AccountName),
			Text(string(row.HumanAction)),
			Text(row.HumanJudgement),
			Text(row.HumanReasoning),
			Text(row.LLMJudgement),
			Text(row.LLMReasoning),
			Text(row.AnnotationType),
			Text(row.EvaluationType),
			Text(row.Dimension),
			formatTime(row.CreatedAt),
			formatTime(row.UpdatedAt),
		)
		for _, k := range originalKeys {
			record = append(record, Text(decoded[i][k]))
		}
		if err := writeRecord(bw, record); err != nil {
			return nil, err
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return result, nil
}

// OriginalPrefix marks original_data columns whose key is already a
// metadata column name.
const OriginalPrefix = "original."

func originalColumns(keys []string) []string {
	taken := make(map[string]struct{}, len(MetadataColumns)+len(keys))
	for _, c := range MetadataColumns {
		taken[c] = struct{}{}
	}
	for _, k := range keys {
		taken[k] = struct{}{}
	}

	cols := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = k
		if !isMetadataColumn(k) {
			continue
		}
		// "original.x" may itself be a source key
		name := OriginalPrefix + k
		for {
			if _, dup := taken[name]; !dup {
				break
			}
			name = OriginalPrefix + name
		}
		taken[name] = struct{}{}
		cols[i] = name
	}
	return cols
}

func isMetadataColumn(name string) bool {
	for _, c := range MetadataColumns {
		if c == name {
			return true
		}
	}
	return false
}

// Text renders a stored or decoded value as export-safe text: nil is
// empty, structured values are compact JSON, null bytes are removed and
// line endings become "\n".
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return lineEndings.Replace(val)
	case *string:
		if val == nil {
			return ""
		}
		return lineEndings.Replace(*val)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case map[string]any, []any:
		return compactJSON(val)
	default:
		return lineEndings.Replace(fmt.Sprint(val))
	}
}

func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func decodeOriginal(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(models.TimeLayout)
}

// writeRecord quotes every field. encoding/csv only quotes when needed.
func writeRecord(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := w.WriteString(strings.ReplaceAll(field, `"`, `""`)); err != nil {
			return err
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}
