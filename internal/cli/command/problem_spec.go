package command

import (
	"encoding/json"
	"fmt"
)

// problemSpec mirrors the problem-add request body as stored in a local
// JSON file.
type problemSpec struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	SampleInput  string `json:"sample_input"`
	SampleOutput string `json:"sample_output"`
	Difficulty   string `json:"difficulty"`
	Tests        []struct {
		Input  string `json:"input"`
		Output string `json:"output"`
	} `json:"tests"`
}

func mergeProblemSpec(raw string, params Params) (interface{}, error) {
	var spec problemSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, fmt.Errorf("parse problem file failed: %w", err)
	}
	if title := params.Get("title"); title != "" {
		spec.Title = title
	}
	if difficulty := params.Get("difficulty"); difficulty != "" {
		spec.Difficulty = difficulty
	}
	return spec, nil
}
