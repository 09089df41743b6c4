package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"ebookgen/models"
)

var (
	batchSchema = jsonschema.MustCompileString("batch.json", `{
		"type": "object",
		"required": ["sections"],
		"properties": {
			"title": {"type": "string"},
			"description": {"type": "string"},
			"sections": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["title"],
					"properties": {
						"title": {"type": "string"},
						"content": {"type": "string"}
					}
				}
			}
		}
	}`)

	metaSchema = jsonschema.MustCompileString("meta.json", `{
		"type": "object",
		"required": ["title"],
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"description": {"type": "string"}
		}
	}`)

	promptsSchema = jsonschema.MustCompileString("prompts.json", `{
		"type": "object",
		"required": ["prompts"],
		"properties": {
			"prompts": {"type": "array"}
		}
	}`)
)

var errNoObject = errors.New("no JSON object in text")

// ParseStrict decodes raw as one complete JSON document with a sections array.
// Surrounding prose or truncation is an error; callers fall back to Recover.
func ParseStrict(raw string) (models.Document, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return models.Document{}, fmt.Errorf("decode batch: %w", err)
	}
	if err := batchSchema.Validate(v); err != nil {
		return models.Document{}, fmt.Errorf("validate batch: %w", err)
	}
	return models.DocumentFromRaw(v.(map[string]any)), nil
}

// ParseMeta extracts a title and description, accepting an object wrapped in prose.
func ParseMeta(raw string) (title, description string, err error) {
	v, err := decodeLoose(raw)
	if err != nil {
		return "", "", err
	}
	if err := metaSchema.Validate(v); err != nil {
		return "", "", fmt.Errorf("validate meta: %w", err)
	}
	obj := v.(map[string]any)
	title, _ = obj["title"].(string)
	description, _ = obj["description"].(string)
	return strings.TrimSpace(title), strings.TrimSpace(description), nil
}

// ParsePrompts extracts the prompt list. Entries may be strings or objects with a prompt field.
func ParsePrompts(raw string) ([]string, error) {
	v, err := decodeLoose(raw)
	if err != nil {
		return nil, err
	}
	if err := promptsSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("validate prompts: %w", err)
	}
	items := v.(map[string]any)["prompts"].([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		switch p := item.(type) {
		case string:
			s = p
		case map[string]any:
			s, _ = p["prompt"].(string)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// decodeLoose parses raw as JSON, retrying on the slice between the first '{' and the last '}'.
func decodeLoose(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v, nil
	}
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, errNoObject
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return v, nil
}
