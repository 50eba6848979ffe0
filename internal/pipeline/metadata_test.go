package pipeline

import (
	"context"
	"testing"

	"angebot/internal/ai"
)

func TestExtractMetadata(t *testing.T) {
	completer := stubCompleter{fn: func(ai.Request) (string, error) {
		return `{"recipient": "Musterbau GmbH\nMusterstraße 1", "project_name": "Neubau Wohnanlage West"}`, nil
	}}

	recipient, project := ExtractMetadata(context.Background(), completer, "Erste Seite")
	if recipient != "Musterbau GmbH\nMusterstraße 1" {
		t.Fatalf("recipient=%q", recipient)
	}
	if project != "Neubau Wohnanlage West" {
		t.Fatalf("project=%q", project)
	}
}

func TestExtractMetadataBestEffort(t *testing.T) {
	failing := stubCompleter{fn: func(ai.Request) (string, error) {
		return "", &ai.Error{StatusCode: 500, Message: "down"}
	}}
	if r, p := ExtractMetadata(context.Background(), failing, "Seite"); r != "" || p != "" {
		t.Fatalf("r=%q p=%q", r, p)
	}

	garbled := stubCompleter{fn: func(ai.Request) (string, error) { return "not json", nil }}
	if r, p := ExtractMetadata(context.Background(), garbled, "Seite"); r != "" || p != "" {
		t.Fatalf("r=%q p=%q", r, p)
	}

	if r, p := ExtractMetadata(context.Background(), nil, "Seite"); r != "" || p != "" {
		t.Fatalf("r=%q p=%q", r, p)
	}
}
