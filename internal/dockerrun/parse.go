package dockerrun

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ridgeline-security/execengine/internal/errs"
)

// Structured-output parsing limits: a per-line size cap and a
// total-line cap bound memory use against an unexpectedly chatty tool.
// Line-oriented rather than single-blob, since security scanners emit
// one JSON object per finding rather than one marker-wrapped blob.
const (
	maxLineBytes  = 1 << 20 // 1 MiB
	maxTotalLines = 100_000
)

// ScanNDJSON parses newline-delimited JSON objects out of raw output,
// skipping blank lines. A line exceeding maxLineBytes or the stream
// exceeding maxTotalLines stops parsing and returns what was collected
// so far plus a Validation error describing the limit hit.
func ScanNDJSON(raw []byte) ([]map[string]interface{}, *errs.Error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var records []map[string]interface{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo > maxTotalLines {
			return records, errs.New(errs.Validation, "ndjson output exceeded maximum line count").
				WithDetails(map[string]interface{}{"maxLines": maxTotalLines})
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record map[string]interface{}
		if err := json.Unmarshal(line, &record); err != nil {
			return records, errs.Wrap(errs.Validation, err, fmt.Sprintf("malformed ndjson on line %d", lineNo))
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		if err == bufio.ErrTooLong {
			return records, errs.New(errs.Validation, "ndjson line exceeded maximum size").
				WithDetails(map[string]interface{}{"maxLineBytes": maxLineBytes})
		}
		return records, errs.Wrap(errs.Unknown, err, "failed to scan ndjson output")
	}
	return records, nil
}

// ASFFFinding is one entry from an AWS Security Finding Format document,
// the shape Prowler writes. Only the fields the engine surfaces
// downstream are typed; everything else survives in Raw.
type ASFFFinding struct {
	Title         string
	Severity      string
	ResourceID    string
	ComplianceIDs []string
	Raw           map[string]interface{}
}

// ParseASFF decodes an AWS Security Finding Format document (a single
// JSON object with a top-level "Findings" array) into ASFFFinding
// values.
func ParseASFF(raw []byte) ([]ASFFFinding, *errs.Error) {
	var doc struct {
		Findings []map[string]interface{} `json:"Findings"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errs.Wrap(errs.Validation, err, "malformed ASFF document")
	}

	findings := make([]ASFFFinding, 0, len(doc.Findings))
	for _, f := range doc.Findings {
		finding := ASFFFinding{Raw: f}
		if title, ok := f["Title"].(string); ok {
			finding.Title = title
		}
		if resourceID, ok := f["Resources"].([]interface{}); ok && len(resourceID) > 0 {
			if res, ok := resourceID[0].(map[string]interface{}); ok {
				if id, ok := res["Id"].(string); ok {
					finding.ResourceID = id
				}
			}
		}
		if severity, ok := f["Severity"].(map[string]interface{}); ok {
			if label, ok := severity["Label"].(string); ok {
				finding.Severity = label
			}
		}
		if compliance, ok := f["Compliance"].(map[string]interface{}); ok {
			if ids, ok := compliance["RelatedRequirements"].([]interface{}); ok {
				for _, id := range ids {
					if s, ok := id.(string); ok {
						finding.ComplianceIDs = append(finding.ComplianceIDs, s)
					}
				}
			}
		}
		findings = append(findings, finding)
	}
	return findings, nil
}

// ScanKeyValueLines parses simple "key: value" or "key=value" lines
// emitted by tools without a structured output mode (e.g. SQLMap's
// summary lines). Lines without a recognized separator are recorded
// under the "line" key.
func ScanKeyValueLines(raw []byte) []map[string]string {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var records []map[string]string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if idx := strings.IndexAny(line, ":="); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			value := strings.TrimSpace(line[idx+1:])
			records = append(records, map[string]string{key: value})
			continue
		}
		records = append(records, map[string]string{"line": line})
	}
	return records
}
