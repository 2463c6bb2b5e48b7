package ai

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ResponseSchema is the JSON Schema every grading answer must satisfy. It is embedded
// verbatim in the instruction document and used to validate the parsed answer.
const ResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["studentName", "studentId", "integrityAnalysis", "strengths", "weaknesses", "detailedFeedback"],
  "properties": {
    "studentName": {"type": "string"},
    "studentId": {"type": "string"},
    "score": {"type": "number"},
    "totalMarks": {"type": "number"},
    "integrityAnalysis": {
      "type": "object",
      "required": ["detected", "aiGenerated", "reasoning"],
      "properties": {
        "detected": {"type": "boolean"},
        "aiGenerated": {"type": "boolean"},
        "reasoning": {"type": "string"},
        "plagiarismSources": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["sourceUrl", "originalText", "studentText"],
            "properties": {
              "sourceUrl": {"type": "string"},
              "originalText": {"type": "string"},
              "studentText": {"type": "string"}
            }
          }
        }
      }
    },
    "strengths": {"type": "array", "items": {"type": "string"}},
    "weaknesses": {"type": "array", "items": {"type": "string"}},
    "detailedFeedback": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "studentAnswer", "idealAnswer", "evaluation", "marksAwarded", "maxMarks"],
        "properties": {
          "question": {"type": "string"},
          "studentAnswer": {"type": "string"},
          "idealAnswer": {"type": "string"},
          "evaluation": {"type": "string"},
          "marksAwarded": {"type": "number", "minimum": 0},
          "maxMarks": {"type": "number", "minimum": 0}
        }
      }
    }
  }
}`

const responseSchemaURL = "grading_response.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func responseSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(responseSchemaURL, strings.NewReader(ResponseSchema)); err != nil {
			schemaErr = fmt.Errorf("load response schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(responseSchemaURL)
	})
	return compiledSchema, schemaErr
}
