package protocol

// ParserEventKind discriminates the Stream Parser's output union (§4.A).
type ParserEventKind string

const (
	ParserOutputTextDelta        ParserEventKind = "output_text_delta"
	ParserReasoningContentDelta  ParserEventKind = "reasoning_content_delta"
	ParserReasoningSummaryDelta  ParserEventKind = "reasoning_summary_delta"
	ParserOutputItemAdded        ParserEventKind = "output_item_added"
	ParserOutputItemDone         ParserEventKind = "output_item_done"
	ParserRateLimits             ParserEventKind = "rate_limits"
	ParserModelsEtag             ParserEventKind = "models_etag"
	ParserCreated                ParserEventKind = "created"
	ParserCompleted              ParserEventKind = "completed"
)

// ParserEvent is one event yielded by the Stream Parser / aggregation
// adapter while consuming a model turn.
type ParserEvent struct {
	Kind ParserEventKind

	Text       string
	Item       ResponseItem
	RateLimits RateLimitSnapshot
	ModelsEtag string
	ResponseID string
	TokenUsage *TokenUsageInfo
}
