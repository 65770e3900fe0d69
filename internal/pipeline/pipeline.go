// Package pipeline executes the multi-step on-chain submission derived from
// a quote widget: validation, chain alignment, conditional wrapping,
// conditional approval, and the primary call. Steps are strictly sequential;
// wrap and approve must land before the primary call can rely on their
// effects.
package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	clierr "github.com/bryfeng/sherpa-front-sub002/internal/errors"
	"github.com/bryfeng/sherpa-front-sub002/internal/intent"
	"github.com/bryfeng/sherpa-front-sub002/internal/panel"
	"github.com/bryfeng/sherpa-front-sub002/internal/registry"
	"github.com/bryfeng/sherpa-front-sub002/internal/wallet"
)

var log = logrus.WithField("component", "pipeline")

// RefreshFunc asks the host to fetch a fresh quote. It is a one-way
// notification: implementations must not block, and the pipeline never
// waits on or inspects the result. Stale quotes are the most common root
// cause of step failures, so every on-chain failure path fires it.
type RefreshFunc func()

type Pipeline struct {
	wallet  wallet.Client
	refresh RefreshFunc
	now     func() time.Time

	erc20   abi.ABI
	wrapped abi.ABI
}

func New(client wallet.Client, refresh RefreshFunc) *Pipeline {
	return &Pipeline{
		wallet:  client,
		refresh: refresh,
		now:     time.Now,
		erc20:   mustABI(registry.ERC20MinimalABI),
		wrapped: mustABI(registry.WrappedNativeABI),
	}
}

// attempt tracks per-execution state so the refresh callback fires at most
// once no matter how the attempt fails.
type attempt struct {
	p         *Pipeline
	refreshed bool
}

func (a *attempt) requestRefresh() {
	if a.refreshed || a.p.refresh == nil {
		return
	}
	a.refreshed = true
	a.p.refresh()
}

// fail surfaces a step failure: best-effort quote refresh, then an error
// combining the generic per-operation message with the wallet client's
// short message when it has one.
func (a *attempt) fail(code clierr.Code, generic string, cause error) error {
	a.requestRefresh()
	if short := wallet.ShortMessage(cause); short != "" {
		return clierr.Wrap(code, fmt.Sprintf("%s: %s", generic, short), cause)
	}
	return clierr.New(code, generic)
}

// Execute validates the quote carried by the widget, performs prerequisite
// on-chain steps, and submits the primary call. It returns the submitted
// transaction hash without waiting for confirmation; confirmation tracking
// belongs to the caller.
func (p *Pipeline) Execute(ctx context.Context, w panel.Widget) (common.Hash, error) {
	a := &attempt{p: p}

	if p.wallet == nil || p.wallet.Account() == (common.Address{}) {
		return common.Hash{}, clierr.New(clierr.CodeWallet, "connect a wallet before executing")
	}

	quote := readQuote(w.Payload)
	if !quote.hasPreparedCall() {
		return common.Hash{}, clierr.New(clierr.CodeUsage, "quote does not include an executable transaction")
	}

	account := p.wallet.Account()
	if quote.WalletAddress != "" && !strings.EqualFold(quote.WalletAddress, account.Hex()) {
		// Wrong account connected; retrying cannot help, and a refreshed
		// quote would still be bound to the other address.
		return common.Hash{}, clierr.New(clierr.CodeWallet,
			fmt.Sprintf("quote was prepared for %s but the connected wallet is %s", quote.WalletAddress, account.Hex()))
	}

	if !quote.ExpiresAt.IsZero() && p.now().After(quote.ExpiresAt) {
		a.requestRefresh()
		return common.Hash{}, clierr.New(clierr.CodeExpired, "quote has expired, requesting a fresh one")
	}

	it := intent.Extract(w.Payload, w.ID)
	targetChain := quote.Call.ChainID
	if targetChain == 0 {
		if it != nil {
			targetChain = it.FromToken.ChainID
		} else {
			targetChain = intent.DefaultChainID
		}
	}

	if p.wallet.ChainID() != targetChain {
		if err := p.wallet.SwitchChain(ctx, targetChain); err != nil {
			return common.Hash{}, a.fail(clierr.CodeChainSwitch,
				fmt.Sprintf("switch your wallet to %s to continue", registry.ChainName(targetChain)), err)
		}
	}

	if err := p.wrapIfNeeded(ctx, a, it, quote, targetChain, account); err != nil {
		return common.Hash{}, err
	}

	if err := p.approveIfNeeded(ctx, a, it, quote, targetChain); err != nil {
		return common.Hash{}, err
	}

	hash, err := p.wallet.SendTransaction(ctx, wallet.TxRequest{
		ChainID:              targetChain,
		To:                   common.HexToAddress(quote.Call.To),
		Data:                 common.FromHex(quote.Call.Data),
		Value:                quote.Call.Value,
		Gas:                  quote.Call.Gas,
		Nonce:                quote.Call.Nonce,
		MaxFeePerGas:         quote.Call.MaxFeePerGas,
		MaxPriorityFeePerGas: quote.Call.MaxPriorityFeePerGas,
	})
	if err != nil {
		return common.Hash{}, a.fail(clierr.CodeUnavailable, "transaction failed", err)
	}
	log.WithFields(logrus.Fields{"panel": w.ID, "tx": hash.Hex()}).Debug("submitted primary call")
	return hash, nil
}

// wrapIfNeeded deposits native currency into the wrapped token when the
// quote spends more of it than the account holds. Only the deficit is
// wrapped; if the balance read fails the full required amount is wrapped
// instead, a safe over-approximation that cannot lose funds.
func (p *Pipeline) wrapIfNeeded(ctx context.Context, a *attempt, it *intent.Intent, quote quoteData, chainID int64, account common.Address) error {
	if it == nil || quote.InputAmount == nil || quote.InputAmount.Sign() <= 0 {
		return nil
	}
	if !registry.IsWrappedNative(chainID, it.FromToken.Address) {
		return nil
	}
	token := common.HexToAddress(it.FromToken.Address)

	required := quote.InputAmount
	deficit := new(big.Int).Set(required)
	out, err := p.wallet.ReadContract(ctx, wallet.CallParams{
		ChainID: chainID,
		To:      token,
		ABI:     &p.wrapped,
		Method:  "balanceOf",
		Args:    []any{account},
	})
	if err == nil && len(out) == 1 {
		if balance, ok := out[0].(*big.Int); ok {
			deficit.Sub(required, balance)
		}
	} else {
		log.WithError(err).Debug("balance read failed, wrapping full amount")
	}
	if deficit.Sign() <= 0 {
		return nil
	}

	_, err = p.wallet.WriteContract(ctx, wallet.CallParams{
		ChainID: chainID,
		To:      token,
		ABI:     &p.wrapped,
		Method:  "deposit",
		Value:   deficit,
	})
	if err != nil {
		return a.fail(clierr.CodeUnavailable,
			fmt.Sprintf("wrap %s before the %s", it.FromToken.Symbol, string(it.Type)), err)
	}
	return nil
}

// approveIfNeeded issues the exact allowance the quote demands. A spender
// with a missing or unparseable amount is a hard failure; approving an
// arbitrary amount on the user's behalf is never acceptable.
func (p *Pipeline) approveIfNeeded(ctx context.Context, a *attempt, it *intent.Intent, quote quoteData, chainID int64) error {
	if quote.Approval == nil || quote.Approval.Spender == "" {
		return nil
	}
	if !common.IsHexAddress(quote.Approval.Spender) {
		a.requestRefresh()
		return clierr.New(clierr.CodeUsage, "quote carries an invalid approval spender")
	}
	if quote.Approval.Amount == nil || quote.Approval.Amount.Sign() < 0 {
		a.requestRefresh()
		return clierr.New(clierr.CodeUsage, "quote carries an invalid approval amount")
	}

	token := quote.Approval.Token
	if token == "" && it != nil {
		token = it.FromToken.Address
	}
	if !common.IsHexAddress(token) {
		a.requestRefresh()
		return clierr.New(clierr.CodeUsage, "approval requirement does not name a token")
	}

	_, err := p.wallet.WriteContract(ctx, wallet.CallParams{
		ChainID: chainID,
		To:      common.HexToAddress(token),
		ABI:     &p.erc20,
		Method:  "approve",
		Args:    []any{common.HexToAddress(quote.Approval.Spender), quote.Approval.Amount},
	})
	if err != nil {
		return a.fail(clierr.CodeUnavailable, "approve the token allowance", err)
	}
	return nil
}

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
