package pipeline

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/kailas-cloud/marketlens/internal/domain"
)

// outputFields are tried in order; the first string-valued field wins.
var outputFields = []string{"final_answer", "raw"}

// Extract pulls the answer text out of a stage result document.
// Absent, null and non-string fields are skipped. An empty string counts as present.
func Extract(res domain.StageResult) (string, bool) {
	if !gjson.ValidBytes(res.Output) {
		return "", false
	}
	for _, field := range outputFields {
		v := gjson.GetBytes(res.Output, field)
		if v.Type == gjson.String {
			return v.String(), true
		}
	}
	return "", false
}

// Assemble builds the report from stage results in order. Any stage without an
// extractable answer fails the whole report.
func Assemble(traceID string, results []domain.StageResult) (domain.Report, error) {
	report := domain.Report{TraceID: traceID, Sections: make([]domain.Section, 0, len(results))}
	for _, res := range results {
		text, ok := Extract(res)
		if !ok {
			return domain.Report{}, &domain.StageError{
				Stage: res.Stage,
				Err:   fmt.Errorf("no final_answer or raw field: %w", domain.ErrStageOutputMissing),
			}
		}
		report.Sections = append(report.Sections, domain.Section{Name: res.Stage, Text: text})
	}
	return report, nil
}
