package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/bryfeng/sherpa-front-sub002/internal/errors"
	"github.com/bryfeng/sherpa-front-sub002/internal/panel"
	"github.com/bryfeng/sherpa-front-sub002/internal/wallet"
)

const (
	testAccount = "0x1111111111111111111111111111111111111111"
	mainnetWETH = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	routerAddr  = "0x2222222222222222222222222222222222222222"
	spenderAddr = "0x3333333333333333333333333333333333333333"
)

type writeCall struct {
	method string
	to     common.Address
	value  *big.Int
	args   []any
}

type fakeWallet struct {
	account common.Address
	chainID int64

	balance    *big.Int
	balanceErr error

	switchErr error
	writeErr  map[string]error
	sendErr   error

	switched []int64
	writes   []writeCall
	sends    []wallet.TxRequest
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{
		account:  common.HexToAddress(testAccount),
		chainID:  1,
		balance:  big.NewInt(0),
		writeErr: map[string]error{},
	}
}

func (f *fakeWallet) Account() common.Address { return f.account }
func (f *fakeWallet) ChainID() int64          { return f.chainID }

func (f *fakeWallet) SwitchChain(ctx context.Context, chainID int64) error {
	f.switched = append(f.switched, chainID)
	if f.switchErr != nil {
		return f.switchErr
	}
	f.chainID = chainID
	return nil
}

func (f *fakeWallet) ReadContract(ctx context.Context, params wallet.CallParams) ([]any, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return []any{new(big.Int).Set(f.balance)}, nil
}

func (f *fakeWallet) WriteContract(ctx context.Context, params wallet.CallParams) (common.Hash, error) {
	f.writes = append(f.writes, writeCall{method: params.Method, to: params.To, value: params.Value, args: params.Args})
	if err := f.writeErr[params.Method]; err != nil {
		return common.Hash{}, err
	}
	return common.HexToHash(fmt.Sprintf("0x%064x", len(f.writes))), nil
}

func (f *fakeWallet) SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
	f.sends = append(f.sends, req)
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	return common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), nil
}

type refreshCounter struct{ calls int }

func (r *refreshCounter) fn() RefreshFunc {
	return func() { r.calls++ }
}

func newTestPipeline(w wallet.Client, refresh *refreshCounter, now time.Time) *Pipeline {
	p := New(w, refresh.fn())
	p.now = func() time.Time { return now }
	return p
}

func quoteWidget(payload map[string]any) panel.Widget {
	return panel.Widget{ID: "conv_swap_1", Kind: panel.KindCard, Title: "Swap quote", Payload: payload}
}

func basePayload() map[string]any {
	return map[string]any{
		"quote_type":     "swap",
		"wallet_address": testAccount,
		"input": map[string]any{
			"address":  "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
			"symbol":   "USDC",
			"chain_id": float64(1),
			"amount":   "1000000000",
		},
		"output": map[string]any{
			"address": "0xdac17f958d2ee523a2206206994597c13d831ec7",
			"symbol":  "USDT",
		},
		"usd_estimates": map[string]any{"input": float64(1000)},
		"tx": map[string]any{
			"to":       routerAddr,
			"data":     "0xdeadbeef",
			"value":    "0",
			"chain_id": float64(1),
		},
	}
}

func TestExecuteSubmitsPrimaryCall(t *testing.T) {
	fw := newFakeWallet()
	refresh := &refreshCounter{}
	p := newTestPipeline(fw, refresh, time.Now())

	hash, err := p.Execute(context.Background(), quoteWidget(basePayload()))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if hash == (common.Hash{}) {
		t.Fatal("expected tx hash")
	}
	if len(fw.sends) != 1 {
		t.Fatalf("expected one submission, got %d", len(fw.sends))
	}
	if len(fw.writes) != 0 {
		t.Fatalf("expected no wrap/approve for plain ERC-20 swap, got %+v", fw.writes)
	}
	if refresh.calls != 0 {
		t.Fatalf("success must not trigger refresh, got %d", refresh.calls)
	}
	req := fw.sends[0]
	if req.To != common.HexToAddress(routerAddr) {
		t.Fatalf("unexpected target: %s", req.To)
	}
	if string(req.Data) != string(common.FromHex("0xdeadbeef")) {
		t.Fatalf("unexpected calldata: %x", req.Data)
	}
}

func TestExecutePassesOverridesVerbatim(t *testing.T) {
	fw := newFakeWallet()
	p := newTestPipeline(fw, &refreshCounter{}, time.Now())

	payload := basePayload()
	tx := payload["tx"].(map[string]any)
	tx["gas"] = float64(210000)
	tx["nonce"] = float64(9)
	tx["max_fee_per_gas"] = "30000000000"
	tx["max_priority_fee_per_gas"] = "1500000000"

	if _, err := p.Execute(context.Background(), quoteWidget(payload)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	req := fw.sends[0]
	if req.Gas != 210000 {
		t.Fatalf("expected gas override, got %d", req.Gas)
	}
	if req.Nonce == nil || *req.Nonce != 9 {
		t.Fatalf("expected nonce override 9, got %v", req.Nonce)
	}
	if req.MaxFeePerGas.Cmp(big.NewInt(30_000_000_000)) != 0 {
		t.Fatalf("expected fee cap override, got %s", req.MaxFeePerGas)
	}
	if req.MaxPriorityFeePerGas.Cmp(big.NewInt(1_500_000_000)) != 0 {
		t.Fatalf("expected tip cap override, got %s", req.MaxPriorityFeePerGas)
	}
}

func TestExecuteExpiredQuoteShortCircuits(t *testing.T) {
	fw := newFakeWallet()
	refresh := &refreshCounter{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newTestPipeline(fw, refresh, now)

	payload := basePayload()
	payload["expires_at"] = now.Add(-time.Minute).Format(time.RFC3339)

	_, err := p.Execute(context.Background(), quoteWidget(payload))
	if err == nil {
		t.Fatal("expected expiry error")
	}
	typed, ok := clierr.As(err)
	if !ok || typed.Code != clierr.CodeExpired {
		t.Fatalf("expected expired code, got %v", err)
	}
	if refresh.calls != 1 {
		t.Fatalf("expected refresh exactly once, got %d", refresh.calls)
	}
	if len(fw.sends) != 0 || len(fw.writes) != 0 || len(fw.switched) != 0 {
		t.Fatal("expired quote must short-circuit before any wallet call")
	}
}

func TestExecuteAcceptsEpochExpiryForms(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	for name, raw := range map[string]any{
		"unix-seconds": float64(future.Unix()),
		"unix-millis":  float64(future.UnixMilli()),
		"iso8601":      future.Format(time.RFC3339),
	} {
		fw := newFakeWallet()
		p := newTestPipeline(fw, &refreshCounter{}, now)
		payload := basePayload()
		payload["expires_at"] = raw
		if _, err := p.Execute(context.Background(), quoteWidget(payload)); err != nil {
			t.Fatalf("%s: unexpired quote rejected: %v", name, err)
		}
	}
}

func TestExecuteMissingCallData(t *testing.T) {
	fw := newFakeWallet()
	refresh := &refreshCounter{}
	p := newTestPipeline(fw, refresh, time.Now())

	payload := basePayload()
	payload["tx"] = map[string]any{"to": routerAddr}

	_, err := p.Execute(context.Background(), quoteWidget(payload))
	if err == nil {
		t.Fatal("expected precondition failure")
	}
	if refresh.calls != 0 {
		t.Fatal("missing call data must not trigger refresh")
	}
}

func TestExecuteAddressMismatchIsHardFailure(t *testing.T) {
	fw := newFakeWallet()
	refresh := &refreshCounter{}
	p := newTestPipeline(fw, refresh, time.Now())

	payload := basePayload()
	payload["wallet_address"] = "0x9999999999999999999999999999999999999999"

	_, err := p.Execute(context.Background(), quoteWidget(payload))
	typed, ok := clierr.As(err)
	if !ok || typed.Code != clierr.CodeWallet {
		t.Fatalf("expected wallet mismatch error, got %v", err)
	}
	if refresh.calls != 0 {
		t.Fatal("address mismatch is not retriable, must not refresh")
	}
	if len(fw.sends) != 0 {
		t.Fatal("mismatched quote must never submit")
	}
}

func TestExecuteAddressMatchIsCaseInsensitive(t *testing.T) {
	fw := newFakeWallet()
	p := newTestPipeline(fw, &refreshCounter{}, time.Now())

	payload := basePayload()
	payload["wallet_address"] = strings.ToUpper(testAccount[:2]) + strings.ToLower(testAccount[2:])

	if _, err := p.Execute(context.Background(), quoteWidget(payload)); err != nil {
		t.Fatalf("case-differing address must match: %v", err)
	}
}

func TestExecuteSwitchesChain(t *testing.T) {
	fw := newFakeWallet()
	fw.chainID = 1
	p := newTestPipeline(fw, &refreshCounter{}, time.Now())

	payload := basePayload()
	payload["tx"].(map[string]any)["chain_id"] = float64(8453)

	if _, err := p.Execute(context.Background(), quoteWidget(payload)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(fw.switched) != 1 || fw.switched[0] != 8453 {
		t.Fatalf("expected switch to 8453, got %v", fw.switched)
	}
	if fw.sends[0].ChainID != 8453 {
		t.Fatalf("expected submission on 8453, got %d", fw.sends[0].ChainID)
	}
}

func TestExecuteChainSwitchFailure(t *testing.T) {
	fw := newFakeWallet()
	fw.switchErr = errors.New("user rejected")
	refresh := &refreshCounter{}
	p := newTestPipeline(fw, refresh, time.Now())

	payload := basePayload()
	payload["tx"].(map[string]any)["chain_id"] = float64(8453)

	_, err := p.Execute(context.Background(), quoteWidget(payload))
	if err == nil {
		t.Fatal("expected chain switch error")
	}
	typed, _ := clierr.As(err)
	if typed.Code != clierr.CodeChainSwitch {
		t.Fatalf("expected chain-switch code, got %v", err)
	}
	if !strings.Contains(err.Error(), "Base") {
		t.Fatalf("error must name the required chain: %v", err)
	}
	if refresh.calls != 1 {
		t.Fatalf("expected refresh once, got %d", refresh.calls)
	}
	if len(fw.sends) != 0 {
		t.Fatal("failed switch must abort before submission")
	}
}

func wrapPayload(required string) map[string]any {
	payload := basePayload()
	payload["input"] = map[string]any{
		"address":  mainnetWETH,
		"symbol":   "WETH",
		"chain_id": float64(1),
		"amount":   required,
	}
	return payload
}

func TestExecuteWrapsDeficitOnly(t *testing.T) {
	fw := newFakeWallet()
	fw.balance = big.NewInt(30)
	p := newTestPipeline(fw, &refreshCounter{}, time.Now())

	if _, err := p.Execute(context.Background(), quoteWidget(wrapPayload("100"))); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(fw.writes) != 1 || fw.writes[0].method != "deposit" {
		t.Fatalf("expected one deposit, got %+v", fw.writes)
	}
	if fw.writes[0].value.Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("expected deficit 70 wrapped, got %s", fw.writes[0].value)
	}
	if fw.writes[0].to != common.HexToAddress(mainnetWETH) {
		t.Fatalf("deposit must target the wrapped token, got %s", fw.writes[0].to)
	}
	if len(fw.sends) != 1 {
		t.Fatal("primary call must follow the wrap")
	}
}

func TestExecuteSkipsWrapWhenBalanceSufficient(t *testing.T) {
	fw := newFakeWallet()
	fw.balance = big.NewInt(500)
	p := newTestPipeline(fw, &refreshCounter{}, time.Now())

	if _, err := p.Execute(context.Background(), quoteWidget(wrapPayload("100"))); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(fw.writes) != 0 {
		t.Fatalf("expected no deposit, got %+v", fw.writes)
	}
}

func TestExecuteBalanceReadFailureWrapsFullAmount(t *testing.T) {
	fw := newFakeWallet()
	fw.balanceErr = errors.New("rpc timeout")
	p := newTestPipeline(fw, &refreshCounter{}, time.Now())

	if _, err := p.Execute(context.Background(), quoteWidget(wrapPayload("100"))); err != nil {
		t.Fatalf("balance read failure must not abort: %v", err)
	}
	if len(fw.writes) != 1 || fw.writes[0].value.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected full amount 100 wrapped, got %+v", fw.writes)
	}
	if len(fw.sends) != 1 {
		t.Fatal("pipeline must continue to submission after conservative wrap")
	}
}

func TestExecuteWrapFailureRefreshes(t *testing.T) {
	fw := newFakeWallet()
	fw.writeErr["deposit"] = errors.New("user rejected signing")
	refresh := &refreshCounter{}
	p := newTestPipeline(fw, refresh, time.Now())

	_, err := p.Execute(context.Background(), quoteWidget(wrapPayload("100")))
	if err == nil {
		t.Fatal("expected wrap failure")
	}
	if refresh.calls != 1 {
		t.Fatalf("expected refresh once, got %d", refresh.calls)
	}
	if len(fw.sends) != 0 {
		t.Fatal("wrap failure must abort before submission")
	}
}

func approvalPayload(amount any) map[string]any {
	payload := basePayload()
	payload["approval"] = map[string]any{
		"spender": spenderAddr,
		"amount":  amount,
	}
	return payload
}

func TestExecuteApprovesExactAmount(t *testing.T) {
	fw := newFakeWallet()
	p := newTestPipeline(fw, &refreshCounter{}, time.Now())

	if _, err := p.Execute(context.Background(), quoteWidget(approvalPayload("1000000000"))); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(fw.writes) != 1 || fw.writes[0].method != "approve" {
		t.Fatalf("expected one approve, got %+v", fw.writes)
	}
	args := fw.writes[0].args
	if args[0].(common.Address) != common.HexToAddress(spenderAddr) {
		t.Fatalf("unexpected spender: %v", args[0])
	}
	if args[1].(*big.Int).Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("expected exact approval amount, got %v", args[1])
	}
}

func TestExecuteInvalidApprovalAmountIsHardFailure(t *testing.T) {
	fw := newFakeWallet()
	refresh := &refreshCounter{}
	p := newTestPipeline(fw, refresh, time.Now())

	_, err := p.Execute(context.Background(), quoteWidget(approvalPayload("not-a-number")))
	if err == nil {
		t.Fatal("expected invalid approval amount failure")
	}
	if len(fw.writes) != 0 {
		t.Fatal("must not approve an arbitrary amount")
	}
	if len(fw.sends) != 0 {
		t.Fatal("must not submit after approval failure")
	}
}

func TestExecuteSubmitFailureRefreshesOnce(t *testing.T) {
	fw := newFakeWallet()
	fw.sendErr = errors.New("execution reverted")
	refresh := &refreshCounter{}
	p := newTestPipeline(fw, refresh, time.Now())

	_, err := p.Execute(context.Background(), quoteWidget(basePayload()))
	if err == nil {
		t.Fatal("expected submit failure")
	}
	if refresh.calls != 1 {
		t.Fatalf("expected refresh exactly once, got %d", refresh.calls)
	}
	if !strings.Contains(err.Error(), "execution reverted") {
		t.Fatalf("expected wallet short message in error, got %v", err)
	}
}

func TestExecuteNoWallet(t *testing.T) {
	p := New(nil, nil)
	_, err := p.Execute(context.Background(), quoteWidget(basePayload()))
	typed, ok := clierr.As(err)
	if !ok || typed.Code != clierr.CodeWallet {
		t.Fatalf("expected wallet precondition error, got %v", err)
	}
}
