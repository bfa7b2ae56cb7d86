package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(r *Result, format string) (string, error) {
	switch format {
	case "json", "":
		return formatJSON(r)
	case "csv":
		return formatCSV(r)
	case "text":
		return formatText(r)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatJSON formats results as JSON.
func formatJSON(r *Result) (string, error) {
	out := struct {
		Documents []Item `json:"documents"`
		Summary   Stats  `json:"summary"`
	}{
		Documents: r.Items,
		Summary:   r.Stats(),
	}
	if out.Documents == nil {
		out.Documents = []Item{}
	}
	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

var csvHeader = []string{
	"file", "document_id", "method", "confidence_score", "band", "page_count",
	"character_count", "estimated_cost_usd", "processing_time_ms", "warnings", "error",
}

// rows flattens the items into table rows; shared by CSV and the xlsx report.
func rows(r *Result) [][]string {
	out := make([][]string, 0, len(r.Items))
	for _, it := range r.Items {
		if !it.OK() {
			out = append(out, []string{it.File, it.DocumentID, "", "", "", "", "", "", "", "", it.Error})
			continue
		}
		res := it.Result
		out = append(out, []string{
			it.File,
			it.DocumentID,
			string(res.Method),
			fmt.Sprintf("%.4f", res.Score()),
			res.Band,
			strconv.Itoa(res.PageCount),
			strconv.Itoa(res.CharacterCount),
			fmt.Sprintf("%.6f", res.EstimatedCostUSD),
			strconv.FormatInt(res.ProcessingTimeMs, 10),
			strings.Join(res.Warnings, ";"),
			"",
		})
	}
	return out
}

// formatCSV formats results as CSV.
func formatCSV(r *Result) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write(csvHeader); err != nil {
		return "", err
	}
	for _, row := range rows(r) {
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText formats results as plain text, one section per document.
func formatText(r *Result) (string, error) {
	var output strings.Builder
	for i, it := range r.Items {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s\n", it.File))
		if !it.OK() {
			output.WriteString(fmt.Sprintf("error: %s\n", it.Error))
			continue
		}
		res := it.Result
		output.WriteString(fmt.Sprintf("# method=%s confidence=%.4f band=%s pages=%d\n",
			res.Method, res.Score(), res.Band, res.PageCount))
		output.WriteString(res.Text)
		if !strings.HasSuffix(res.Text, "\n") {
			output.WriteString("\n")
		}
	}
	return output.String(), nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
