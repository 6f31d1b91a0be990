package processor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// jobPageSchema is the contract the structured-extraction call must satisfy.
// Model output that does not validate is rejected as a ParseError; there is
// no partial-result path.
const jobPageSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["company", "jobTitle", "salary", "requirements", "jobSummary", "location"],
  "properties": {
    "company": {"type": "string", "minLength": 1},
    "jobTitle": {"type": "string", "minLength": 1},
    "salary": {"type": "string"},
    "requirements": {"type": "array", "items": {"type": "string"}},
    "jobSummary": {"type": "string"},
    "location": {"type": "string"}
  }
}`

// extraction is the structured result of the LLM extraction call.
type extraction struct {
	Company      string   `json:"company"`
	JobTitle     string   `json:"jobTitle"`
	Salary       string   `json:"salary"`
	Requirements []string `json:"requirements"`
	JobSummary   string   `json:"jobSummary"`
	Location     string   `json:"location"`
}

// parseExtraction validates the model's JSON against the job-page schema and
// decodes it.
func parseExtraction(jsonText string) (*extraction, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(jobPageSchema),
		gojsonschema.NewStringLoader(jsonText),
	)
	if err != nil {
		return nil, &ParseError{Message: "extraction output is not valid JSON", Cause: err}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, &ParseError{
			Message: fmt.Sprintf("extraction output failed schema validation: %s", strings.Join(details, "; ")),
		}
	}

	var ex extraction
	if err := json.Unmarshal([]byte(jsonText), &ex); err != nil {
		return nil, &ParseError{Message: "failed to decode extraction output", Cause: err}
	}
	if ex.Requirements == nil {
		ex.Requirements = []string{}
	}
	return &ex, nil
}
