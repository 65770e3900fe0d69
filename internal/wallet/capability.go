// Package wallet defines the capability surface the execution pipeline
// drives. The pipeline's core logic depends only on this interface, so the
// host can source it from a local signer, a remote wallet, or a test fake.
package wallet

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/bryfeng/sherpa-front-sub002/internal/errors"
)

// TxRequest is one fully-specified transaction submission. Built fresh per
// attempt and discarded afterward. Optional fields left zero/nil are filled
// from chain state at send time.
type TxRequest struct {
	ChainID              int64
	To                   common.Address
	Data                 []byte
	Value                *big.Int
	Gas                  uint64
	Nonce                *uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// CallParams describes one ABI-encoded contract interaction.
type CallParams struct {
	ChainID int64
	To      common.Address
	ABI     *abi.ABI
	Method  string
	Args    []any
	// Value is attached to payable writes; ignored for reads.
	Value *big.Int
}

// Client is the wallet/chain capability consumed by the pipeline. The five
// operations plus ambient account/chain state are its entire dependency on
// the host wallet.
type Client interface {
	Account() common.Address
	ChainID() int64
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	WriteContract(ctx context.Context, params CallParams) (common.Hash, error)
	ReadContract(ctx context.Context, params CallParams) ([]any, error)
	SwitchChain(ctx context.Context, chainID int64) error
}

// ShortMessage reduces a wallet/RPC failure to the message worth showing a
// user: the typed message when the error carries one, otherwise the first
// line of the raw error.
func ShortMessage(err error) string {
	if err == nil {
		return ""
	}
	if typed, ok := clierr.As(err); ok && typed.Message != "" {
		return typed.Message
	}
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	return strings.TrimSpace(msg)
}
