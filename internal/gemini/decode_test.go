package gemini

import (
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n  ", `{"a":1}`},
		{"no closing fence", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

const sceneListSchema = `{
	"type": "object",
	"properties": {
		"scenes": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "integer"},
					"prompt": {"type": "string"}
				},
				"required": ["id", "prompt"]
			}
		}
	},
	"required": ["scenes"]
}`

func TestDecode(t *testing.T) {
	schema := MustCompileSchema("scene-list.json", sceneListSchema)

	type scene struct {
		ID     int    `json:"id"`
		Prompt string `json:"prompt"`
	}
	type sceneList struct {
		Scenes []scene `json:"scenes"`
	}

	t.Run("fenced valid document", func(t *testing.T) {
		raw := "```json\n{\"scenes\":[{\"id\":1,\"prompt\":\"a quiet harbor\"}]}\n```"
		var out sceneList
		if err := Decode(raw, schema, &out); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if len(out.Scenes) != 1 || out.Scenes[0].Prompt != "a quiet harbor" {
			t.Errorf("unexpected decode result: %+v", out)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		var out sceneList
		err := Decode("not json at all", schema, &out)
		var malformed *MalformedResponseError
		if !errors.As(err, &malformed) {
			t.Fatalf("expected MalformedResponseError, got %v", err)
		}
		if malformed.Raw != "not json at all" {
			t.Errorf("Raw = %q, want original text", malformed.Raw)
		}
	})

	t.Run("schema violation", func(t *testing.T) {
		var out sceneList
		err := Decode(`{"scenes":[{"id":"one"}]}`, schema, &out)
		var malformed *MalformedResponseError
		if !errors.As(err, &malformed) {
			t.Fatalf("expected MalformedResponseError, got %v", err)
		}
	})

	t.Run("nil schema skips validation", func(t *testing.T) {
		var out sceneList
		if err := Decode(`{"scenes":[]}`, nil, &out); err != nil {
			t.Fatalf("Decode: %v", err)
		}
	})
}
