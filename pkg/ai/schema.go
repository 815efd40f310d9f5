package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const rubricSchemaURL = "ecolearn://ai/rubric-evaluation.json"

const rubricSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["criteria", "feedback"],
  "properties": {
    "criteria": {
      "type": "object",
      "required": ["content_accuracy", "uniqueness", "relevance", "quality"],
      "properties": {
        "content_accuracy": {"type": "number", "minimum": 0, "maximum": 100},
        "uniqueness": {"type": "number", "minimum": 0, "maximum": 100},
        "relevance": {"type": "number", "minimum": 0, "maximum": 100},
        "quality": {"type": "number", "minimum": 0, "maximum": 100}
      }
    },
    "feedback": {"type": "string", "minLength": 1}
  }
}`

var rubricCriteria = []string{"content_accuracy", "uniqueness", "relevance", "quality"}

func compileRubricSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(rubricSchemaURL, strings.NewReader(rubricSchema)); err != nil {
		return nil, fmt.Errorf("load rubric schema: %w", err)
	}
	return compiler.Compile(rubricSchemaURL)
}

// parseRubricReply validates the model output against the rubric schema and
// extracts the criterion scores.
func parseRubricReply(schema *jsonschema.Schema, content string) (RubricEvaluation, error) {
	content = stripCodeFence(content)
	if !gjson.Valid(content) {
		return RubricEvaluation{}, fmt.Errorf("parse evaluation json: invalid json")
	}

	var document interface{}
	if err := json.Unmarshal([]byte(content), &document); err != nil {
		return RubricEvaluation{}, fmt.Errorf("parse evaluation json: %w", err)
	}
	if err := schema.Validate(document); err != nil {
		return RubricEvaluation{}, fmt.Errorf("evaluation does not match schema: %w", err)
	}

	criteria := gjson.Get(content, "criteria")
	scores := make(map[string]float64, len(rubricCriteria))
	for _, key := range rubricCriteria {
		scores[key] = criteria.Get(key).Float()
	}

	return RubricEvaluation{
		CriteriaScores: scores,
		Feedback:       strings.TrimSpace(gjson.Get(content, "feedback").String()),
	}, nil
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
