package pipeline

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// preparedCall is the provider-built primary transaction embedded in a quote
// payload. Gas/fee/nonce overrides are optional and passed through verbatim
// when present.
type preparedCall struct {
	To                   string
	Data                 string
	Value                *big.Int
	ChainID              int64
	Gas                  uint64
	Nonce                *uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// approvalRequirement is an allowance the quote demands before the primary
// call. Amount stays nil when the payload carried one that does not parse;
// the pipeline treats that as a hard failure rather than approving an
// arbitrary amount.
type approvalRequirement struct {
	Token   string
	Spender string
	Amount  *big.Int
}

// quoteData is everything the pipeline reads out of a quote widget payload.
// Field resolution mirrors the intent extractor: ordered first-present-wins
// lookups, because provider payload shapes vary.
type quoteData struct {
	Call          preparedCall
	WalletAddress string
	ExpiresAt     time.Time
	Approval      *approvalRequirement
	InputAmount   *big.Int
}

func readQuote(payload map[string]any) quoteData {
	var q quoteData
	if payload == nil {
		return q
	}

	tx := childMap(payload, "tx", "transaction", "prepared_tx")
	if tx != nil {
		q.Call.To = readString(tx, "to")
		q.Call.Data = readString(tx, "data", "calldata", "input")
		if v, ok := readBigInt(tx, "value"); ok {
			q.Call.Value = v
		}
		if v, ok := readInt64(tx, "chain_id", "chainId"); ok {
			q.Call.ChainID = v
		}
		if v, ok := readInt64(tx, "gas", "gas_limit", "gasLimit"); ok && v > 0 {
			q.Call.Gas = uint64(v)
		}
		if v, ok := readInt64(tx, "nonce"); ok && v >= 0 {
			nonce := uint64(v)
			q.Call.Nonce = &nonce
		}
		if v, ok := readBigInt(tx, "max_fee_per_gas", "maxFeePerGas"); ok {
			q.Call.MaxFeePerGas = v
		}
		if v, ok := readBigInt(tx, "max_priority_fee_per_gas", "maxPriorityFeePerGas"); ok {
			q.Call.MaxPriorityFeePerGas = v
		}
	}

	q.WalletAddress = firstNonEmpty(
		readString(payload, "wallet_address", "from_address"),
		readString(tx, "from"),
	)

	for _, key := range []string{"expires_at", "expiry", "deadline"} {
		if raw, ok := payload[key]; ok {
			if ts, parsed := parseTimestamp(raw); parsed {
				q.ExpiresAt = ts
				break
			}
		}
	}

	if approval := childMap(payload, "approval", "allowance"); approval != nil {
		req := &approvalRequirement{
			Token:   readString(approval, "token", "token_address"),
			Spender: readString(approval, "spender", "address"),
		}
		if v, ok := readBigInt(approval, "amount", "value"); ok {
			req.Amount = v
		}
		q.Approval = req
	}

	if input := childMap(payload, "input", "from"); input != nil {
		if v, ok := readBigInt(input, "amount", "amount_base_units"); ok {
			q.InputAmount = v
		}
	}
	if q.InputAmount == nil {
		if v, ok := readBigInt(payload, "amount_in", "input_amount"); ok {
			q.InputAmount = v
		}
	}

	return q
}

// hasPreparedCall reports whether the payload carried an executable primary
// transaction: a target plus non-empty calldata.
func (q quoteData) hasPreparedCall() bool {
	if !common.IsHexAddress(strings.TrimSpace(q.Call.To)) {
		return false
	}
	data := strings.TrimPrefix(strings.TrimSpace(q.Call.Data), "0x")
	return data != ""
}

// parseTimestamp accepts ISO-8601 strings and unix epochs in either seconds
// or milliseconds; providers disagree on the unit.
func parseTimestamp(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case string:
		clean := strings.TrimSpace(v)
		if clean == "" {
			return time.Time{}, false
		}
		if ts, err := time.Parse(time.RFC3339, clean); err == nil {
			return ts, true
		}
		if n, err := strconv.ParseInt(clean, 10, 64); err == nil {
			return epochToTime(n), true
		}
		return time.Time{}, false
	case float64:
		return epochToTime(int64(v)), true
	case int64:
		return epochToTime(v), true
	case int:
		return epochToTime(int64(v)), true
	}
	return time.Time{}, false
}

func epochToTime(n int64) time.Time {
	// Anything past the year ~33658 in seconds is a millisecond epoch.
	if n > 1_000_000_000_000 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}

func childMap(parent map[string]any, keys ...string) map[string]any {
	if parent == nil {
		return nil
	}
	for _, key := range keys {
		if m, ok := parent[key].(map[string]any); ok {
			return m
		}
	}
	return nil
}

func readString(m map[string]any, keys ...string) string {
	if m == nil {
		return ""
	}
	for _, key := range keys {
		if s, ok := m[key].(string); ok {
			if clean := strings.TrimSpace(s); clean != "" {
				return clean
			}
		}
	}
	return ""
}

func readInt64(m map[string]any, keys ...string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return int64(v), true
		case int64:
			return v, true
		case int:
			return int64(v), true
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// readBigInt parses on-chain amounts. Decimal and 0x-hex strings are both
// accepted; floating point inputs are only trusted when integral, since
// amounts are arbitrary-precision integers, never floats.
func readBigInt(m map[string]any, keys ...string) (*big.Int, bool) {
	if m == nil {
		return nil, false
	}
	for _, key := range keys {
		raw, ok := m[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			clean := strings.TrimSpace(v)
			if clean == "" {
				continue
			}
			if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X") {
				if n, ok := new(big.Int).SetString(clean[2:], 16); ok {
					return n, true
				}
				continue
			}
			if n, ok := new(big.Int).SetString(clean, 10); ok {
				return n, true
			}
		case float64:
			if v == float64(int64(v)) {
				return big.NewInt(int64(v)), true
			}
		case int64:
			return big.NewInt(v), true
		case int:
			return big.NewInt(int64(v)), true
		}
	}
	return nil, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
