package panel

// Kind identifies the renderer a widget is drawn with. The merge engine never
// inspects payloads, so unknown kinds flow through untouched.
type Kind string

const (
	KindChart          Kind = "chart"
	KindPortfolio      Kind = "portfolio"
	KindPrices         Kind = "prices"
	KindTrending       Kind = "trending"
	KindCard           Kind = "card"
	KindHistorySummary Kind = "history_summary"
	KindPolicyStatus   Kind = "policy_status"
	KindPolicyAlert    Kind = "policy_alert"
)

// Density is a layout hint for the host UI.
type Density string

const (
	DensityRail Density = "rail"
	DensityFull Density = "full"
)

// WidgetIDTokenPrice is the singleton price panel pinned to the top of the
// display order regardless of merge order.
const WidgetIDTokenPrice = "token-price"

// Source is one attribution link; slice order is display order.
type Source struct {
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

// Widget is one addressable workspace panel. IDs are stable and semantically
// meaningful: singleton kinds (portfolio, trending) reuse a fixed id so a new
// agent turn replaces the panel instead of stacking a duplicate.
type Widget struct {
	ID      string         `json:"id"`
	Kind    Kind           `json:"kind"`
	Title   string         `json:"title"`
	Payload map[string]any `json:"payload,omitempty"`
	Sources []Source       `json:"sources,omitempty"`
	Density Density        `json:"density,omitempty"`

	// Order is assigned by the merge engine, never by callers.
	Order int `json:"order"`
}
