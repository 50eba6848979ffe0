package internal

// LineItem is one tender position extracted from a Leistungsverzeichnis page.
// Immutable once produced by the extractor.
type LineItem struct {
	PositionCode string  // hierarchical OZ, e.g. "01.01.0010"
	Description  string  // free text, may be concatenated over several lines
	Quantity     float64 // 0 marks an unresolved quantity, not a real amount
	Unit         string  // "m2", "Stk", "psch", ... not validated
}

// CatalogEntry is one internal price-list row.
type CatalogEntry struct {
	ID          int // -1 when not yet persisted
	Description string
	Unit        string
	PriceMin    float64
	PriceMax    float64
	Category    string // import provenance, e.g. "AI Excel Import"
}

// ConfidenceTier buckets match quality for review triage.
type ConfidenceTier string

const (
	TierNone ConfidenceTier = "NONE"
	TierLow  ConfidenceTier = "LOW"
	TierHigh ConfidenceTier = "HIGH"
)

// NoMatchDescription marks rows the matcher could not resolve.
const NoMatchDescription = "--- KEIN TREFFER ---"

// MatchedItem is the resolution of a LineItem against the catalog.
// Price > 0 implies CatalogID != -1; the no-match sentinel carries
// Price 0 and CatalogID -1.
type MatchedItem struct {
	MatchedDescription string
	Price              float64
	MatchScore         int // 0..100
	CatalogID          int
	Tier               ConfidenceTier
}

// PricedItem joins a tender position with its catalog resolution.
type PricedItem struct {
	Item  LineItem
	Match MatchedItem
}

// Total is always derived so that edits to quantity or price stay consistent.
func (p PricedItem) Total() float64 {
	return p.Item.Quantity * p.Match.Price
}

// Severity of a processing log entry.
type Severity string

const (
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// LogEntry is one line of the per-run audit trail. Entries never drive
// control flow.
type LogEntry struct {
	Severity Severity
	Message  string
}

// Stage of a pipeline run.
type Stage string

const (
	StageUploaded  Stage = "UPLOADED"
	StageExtracted Stage = "EXTRACTED"
	StageReviewed  Stage = "REVIEWED"
	StageExported  Stage = "EXPORTED"
)

// PipelineState carries everything a run accumulates. It is constructed
// fresh per run and threaded explicitly through the orchestrator.
type PipelineState struct {
	Stage       Stage
	SourceFile  string
	Recipient   string
	ProjectName string
	Items       []LineItem
	Results     []PricedItem
	Log         []LogEntry
}

// OfferRecord is one saved quotation in the history store.
type OfferRecord struct {
	ID          int
	FileName    string
	ProjectName string
	TotalPrice  float64
	ItemCount   int
	CreatedAt   string
}

// MappingRecord is a confirmed manual assignment of an LV text to a
// catalog entry. Confirmed mappings bypass fuzzy matching.
type MappingRecord struct {
	TextHash       string
	TextRaw        string
	PriceID        int
	ConfirmedCount int
}
