package pipeline

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"angebot/internal/ai"
)

const metadataSystemPrompt = `Extrahiere aus dem folgenden Text eines Leistungsverzeichnisses (erste Seite) den Namen/Anschrift des Auftraggebers (Empfänger) und den Projektnamen/Bauvorhaben.
Gib das Ergebnis als JSON zurück.
Beispiel: {"recipient": "Musterbau GmbH\nMusterstraße 1\n12345 Musterstadt", "project_name": "Neubau Wohnanlage West"}
Wenn Informationen fehlen, lasse das Feld leer.`

// ExtractMetadata pulls recipient and project name from the first page.
// Best-effort enrichment only: every failure mode returns empty strings
// and never reaches the caller as an error.
func ExtractMetadata(ctx context.Context, completer ai.Completer, firstPage string) (recipient, projectName string) {
	if completer == nil || firstPage == "" {
		return "", ""
	}

	raw, err := completer.Complete(ctx, ai.Request{System: metadataSystemPrompt, User: firstPage, ForceJSON: true})
	if err != nil {
		zap.L().Warn("metadata extraction failed", zap.Error(err))
		return "", ""
	}

	var decoded struct {
		Recipient   string `json:"recipient"`
		ProjectName string `json:"project_name"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		zap.L().Warn("metadata extraction returned invalid JSON", zap.Error(err))
		return "", ""
	}

	return decoded.Recipient, decoded.ProjectName
}
