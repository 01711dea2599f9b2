package formatting_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/archivist/pkg/formatting"
)

type suggestion struct {
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"direct", `{"tags":["invoice"],"confidence":0.5}`, 1, false},
		{"padded", "  \n" + `{"tags":["a","b"]}` + "\n ", 2, false},
		{"json fence", "```json\n{\"tags\":[\"tax\"]}\n```", 1, false},
		{"bare fence", "```\n{\"tags\":[]}\n```", 0, false},
		{"prose around object", `Here is the result: {"tags":["receipt","2024"]} hope it helps`, 2, false},
		{"no json", "I cannot classify this document.", 0, true},
		{"broken json", `{"tags": [`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[suggestion](tt.content)
			if tt.wantErr {
				if !errors.Is(err, formatting.ErrParseFailed) {
					t.Fatalf("error = %v, want ErrParseFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if len(got.Tags) != tt.want {
				t.Errorf("tags: got %v, want %d entries", got.Tags, tt.want)
			}
		})
	}
}
