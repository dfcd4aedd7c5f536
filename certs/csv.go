package certs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/warp/certdash/generic"
)

// Learner import columns. name and email are required; status defaults to active.
var learnerColumns = []string{"name", "email", "organization", "organizationid", "status"}

// ParseLearnerCSV reads learner drafts from a CSV document with a header row.
// Header names are matched case-insensitively; unknown columns are ignored.
func ParseLearnerCSV(r io.Reader) ([]LearnerDraft, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &generic.ValidationError{Field: "file", Message: "empty CSV document"}
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range learnerColumns[:2] {
		if _, ok := col[required]; !ok {
			return nil, &generic.ValidationError{Field: "file", Message: "missing column " + required}
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var drafts []LearnerDraft
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV line %d: %w", line, err)
		}
		d := LearnerDraft{
			Name:           field(rec, "name"),
			Email:          field(rec, "email"),
			Organization:   field(rec, "organization"),
			OrganizationID: field(rec, "organizationid"),
			Status:         LearnerStatus(field(rec, "status")),
		}
		if d.Status == "" {
			d.Status = LearnerActive
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		drafts = append(drafts, d)
	}
	if len(drafts) == 0 {
		return nil, &generic.ValidationError{Field: "file", Message: "no learner rows"}
	}
	return drafts, nil
}
