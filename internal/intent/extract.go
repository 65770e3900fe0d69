// Package intent normalizes heterogeneous quote payloads into a canonical,
// provider-agnostic transaction intent. Upstream quote providers nest and
// name fields differently, so every field is resolved through a small
// first-present-wins lookup chain instead of a rigid schema.
package intent

import (
	"strconv"
	"strings"
)

type Type string

const (
	TypeSwap     Type = "swap"
	TypeBridge   Type = "bridge"
	TypeTransfer Type = "transfer"
)

// Pragmatic fallbacks carried over from accepted legacy payloads. Tightening
// either would start rejecting quotes that execute fine today.
const (
	DefaultChainID         int64   = 1
	DefaultSlippagePercent float64 = 0.5
)

// TokenRef identifies one side of a prospective transaction.
type TokenRef struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	ChainID int64  `json:"chain_id"`
}

// Intent is the read-only view of a quote used for validation and display.
// It is computed on demand and never cached; the underlying quote expires.
type Intent struct {
	Type            Type     `json:"type"`
	FromToken       TokenRef `json:"from_token"`
	ToToken         TokenRef `json:"to_token"`
	AmountUSD       float64  `json:"amount_usd"`
	SlippagePercent float64  `json:"slippage_percent"`
	GasEstimateUSD  float64  `json:"gas_estimate_usd"`
	ContractAddress string   `json:"contract_address,omitempty"`
}

// Extract derives an Intent from a quote widget payload. It is total:
// malformed or partially populated payloads degrade to defaulted fields.
// It returns nil only when the payload carries no actionable transaction
// data at all: no usable USD amount and no token address on either side.
func Extract(payload map[string]any, panelID string) *Intent {
	if payload == nil {
		return nil
	}

	out := &Intent{
		Type:            extractType(payload, panelID),
		SlippagePercent: DefaultSlippagePercent,
	}

	input := childMap(payload, "input", "from")
	output := childMap(payload, "output", "to")
	out.FromToken = extractToken(input)
	out.ToToken = extractToken(output)
	if out.FromToken.ChainID == 0 {
		out.FromToken.ChainID = DefaultChainID
	}
	if out.ToToken.ChainID == 0 && out.Type != TypeBridge {
		// Same-chain quote types settle on the input side's chain.
		out.ToToken.ChainID = out.FromToken.ChainID
	}

	amount, amountOK := extractAmountUSD(payload, input, output)
	out.AmountUSD = amount

	if v, ok := chainFloat(payload,
		[]string{"breakdown", "fees", "slippage_percent"},
		[]string{"fees", "slippage_percent"},
		[]string{"slippage_percent"},
		[]string{"slippage"},
	); ok {
		out.SlippagePercent = v
	}

	if v, ok := chainFloat(payload,
		[]string{"usd_estimates", "gas"},
		[]string{"breakdown", "fees", "gas_usd"},
		[]string{"gas_usd"},
		[]string{"gas_estimate_usd"},
	); ok {
		out.GasEstimateUSD = v
	}

	if tx := childMap(payload, "tx", "transaction", "prepared_tx"); tx != nil {
		out.ContractAddress = stringField(tx, "to")
	}

	if !amountOK && out.FromToken.Address == "" && out.ToToken.Address == "" {
		return nil
	}
	return out
}

func extractType(payload map[string]any, panelID string) Type {
	raw := strings.ToLower(strings.TrimSpace(firstString(payload, "quote_type", "type")))
	switch raw {
	case "swap":
		return TypeSwap
	case "bridge":
		return TypeBridge
	case "transfer":
		return TypeTransfer
	}
	// Legacy payloads lack the field; the panel id encodes the quote kind.
	if strings.Contains(strings.ToLower(panelID), "_swap_") {
		return TypeSwap
	}
	return TypeBridge
}

func extractToken(side map[string]any) TokenRef {
	if side == nil {
		return TokenRef{}
	}
	ref := TokenRef{
		Address: firstString(side, "address", "token_address", "contract_address"),
		Symbol:  firstString(side, "symbol", "ticker"),
	}
	if v, ok := chainFloat(side, []string{"chain_id"}, []string{"chainId"}, []string{"chain"}); ok {
		ref.ChainID = int64(v)
	}
	return ref
}

// extractAmountUSD prefers the input-side USD estimate, then the output
// side: the input amount is what the user actually commits.
func extractAmountUSD(payload, input, output map[string]any) (float64, bool) {
	if v, ok := chainFloat(payload,
		[]string{"usd_estimates", "input"},
		[]string{"usd_estimates", "output"},
	); ok {
		return v, true
	}
	for _, side := range []map[string]any{input, output} {
		if side == nil {
			continue
		}
		if v, ok := chainFloat(side, []string{"usd_value"}, []string{"amount_usd"}); ok {
			return v, true
		}
	}
	if v, ok := chainFloat(payload, []string{"amount_usd"}, []string{"usd_value"}); ok {
		return v, true
	}
	return 0, false
}

func childMap(parent map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if m, ok := parent[key].(map[string]any); ok {
			return m
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringField(m, key); s != "" {
			return s
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// chainFloat walks each key path in turn and returns the first value that
// parses as a number. Currency-formatted strings ("$1,234.56", "0.5%") are
// accepted alongside raw numerics.
func chainFloat(root map[string]any, paths ...[]string) (float64, bool) {
	for _, path := range paths {
		var node any = root
		found := true
		for _, key := range path {
			m, isMap := node.(map[string]any)
			if !isMap {
				found = false
				break
			}
			node, found = m[key]
			if !found {
				break
			}
		}
		if !found {
			continue
		}
		if v, parsed := asFloat(node); parsed {
			return v, true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		clean := strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(t)
		if clean == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
