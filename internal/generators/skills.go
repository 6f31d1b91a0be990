package generators

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/stashboard/internal/hoard"
	"github.com/jonathan/stashboard/internal/llm"
)

const skillDiffPrompt = `Analyze the candidate's technical skills against the job requirements. Focus ONLY on concrete, ATS-scannable technical skills.

RULES:
- Include: programming languages, frameworks, databases, cloud platforms, development tools, specific methodologies
- Exclude: soft skills, generic business terms, vague processes
- Format: clean keywords without qualifiers (e.g. "React" not "Advanced React (5+ years)")

Return a JSON object with exactly these fields:
- "matchedSkills": comma-separated technical skills found in both the candidate's skillset and the job requirements
- "unmatchedSkills": comma-separated technical skills from the job requirements missing from the candidate's skillset

Data:

`

const skillDiffSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["matchedSkills", "unmatchedSkills"],
  "properties": {
    "matchedSkills": {"type": "string"},
    "unmatchedSkills": {"type": "string"}
  }
}`

// SkillDiff is the model's comparison of candidate skills to job
// requirements, as comma-separated keyword lists.
type SkillDiff struct {
	MatchedSkills   string `json:"matchedSkills"`
	UnmatchedSkills string `json:"unmatchedSkills"`
}

// skillDiff asks the model to compare candidate skills against the
// listing's requirements.
func skillDiff(ctx context.Context, client llm.Client, skills []string, note *hoard.NutNote) (*SkillDiff, error) {
	payload, err := json.Marshal(map[string]any{
		"candidateSkills":  skills,
		"jobListingSkills": note.Requirements,
	})
	if err != nil {
		return nil, err
	}

	raw, err := client.GenerateJSON(ctx, skillDiffPrompt+string(payload), llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("skill diff call failed: %w", err)
	}
	cleaned := llm.CleanJSONBlock(raw)

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(skillDiffSchema),
		gojsonschema.NewStringLoader(cleaned),
	)
	if err != nil || !result.Valid() {
		return nil, fmt.Errorf("skill diff output failed validation: %v", err)
	}

	var diff SkillDiff
	if err := json.Unmarshal([]byte(cleaned), &diff); err != nil {
		return nil, fmt.Errorf("failed to decode skill diff: %w", err)
	}
	return &diff, nil
}

// unmatchedSkills returns job-required skills the candidate genuinely does
// not have. The model sometimes echoes skills already on the resume, so the
// list is re-filtered case-insensitively here.
func unmatchedSkills(ctx context.Context, client llm.Client, data *ResumeData, note *hoard.NutNote) ([]string, error) {
	diff, err := skillDiff(ctx, client, data.Skills, note)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(data.Skills))
	for _, skill := range data.Skills {
		have[strings.ToLower(skill)] = true
	}

	var missing []string
	for _, skill := range strings.Split(diff.UnmatchedSkills, ",") {
		skill = strings.TrimSpace(skill)
		if skill != "" && !have[strings.ToLower(skill)] {
			missing = append(missing, skill)
		}
	}
	return missing, nil
}

// mergeSkills combines resume skills with extras, dropping case-insensitive
// duplicates while keeping first-seen casing and order.
func mergeSkills(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, skill := range append(append([]string{}, base...), extra...) {
		key := strings.ToLower(skill)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, skill)
	}
	return merged
}
