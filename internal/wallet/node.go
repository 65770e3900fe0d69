package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	clierr "github.com/bryfeng/sherpa-front-sub002/internal/errors"
	"github.com/bryfeng/sherpa-front-sub002/internal/registry"
	"github.com/bryfeng/sherpa-front-sub002/internal/wallet/signer"
)

const (
	defaultGasMultiplier = 1.2
	fallbackTipCapWei    = 2_000_000_000 // 2 gwei when the node declines to suggest
)

// backend is the slice of ethclient the node depends on, split out so tests
// can run the node against a fake chain.
type backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	Close()
}

var _ Client = (*Node)(nil)

// Node is the RPC-backed wallet capability: a local signer plus one live
// chain connection. SwitchChain re-dials the target chain's endpoint.
type Node struct {
	signer       signer.Signer
	rpcOverrides map[int64]string
	gasMult      float64

	chainID int64
	client  backend

	dial func(ctx context.Context, rpcURL string) (backend, error)
}

func NewNode(txSigner signer.Signer, rpcOverrides map[int64]string) *Node {
	return &Node{
		signer:       txSigner,
		rpcOverrides: rpcOverrides,
		gasMult:      defaultGasMultiplier,
		dial: func(ctx context.Context, rpcURL string) (backend, error) {
			return ethclient.DialContext(ctx, rpcURL)
		},
	}
}

// Connect establishes the initial chain connection. Equivalent to
// SwitchChain but named for the session-start call site.
func (n *Node) Connect(ctx context.Context, chainID int64) error {
	return n.SwitchChain(ctx, chainID)
}

func (n *Node) Close() {
	if n.client != nil {
		n.client.Close()
		n.client = nil
	}
}

func (n *Node) Account() common.Address {
	if n.signer == nil {
		return common.Address{}
	}
	return n.signer.Address()
}

func (n *Node) ChainID() int64 {
	return n.chainID
}

func (n *Node) SwitchChain(ctx context.Context, chainID int64) error {
	if n.client != nil && n.chainID == chainID {
		return nil
	}
	rpcURL, err := registry.ResolveRPCURL(n.rpcOverrides[chainID], chainID)
	if err != nil {
		return clierr.Wrap(clierr.CodeChainSwitch, fmt.Sprintf("no rpc endpoint for %s", registry.ChainName(chainID)), err)
	}
	client, err := n.dial(ctx, rpcURL)
	if err != nil {
		return clierr.Wrap(clierr.CodeChainSwitch, fmt.Sprintf("connect %s rpc", registry.ChainName(chainID)), err)
	}
	remote, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return clierr.Wrap(clierr.CodeChainSwitch, "read chain id", err)
	}
	if remote.Int64() != chainID {
		client.Close()
		return clierr.New(clierr.CodeChainSwitch, fmt.Sprintf("rpc endpoint serves chain %d, expected %d", remote.Int64(), chainID))
	}
	if n.client != nil {
		n.client.Close()
	}
	n.client = client
	n.chainID = chainID
	return nil
}

func (n *Node) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	if n.client == nil {
		return common.Hash{}, clierr.New(clierr.CodeWallet, "wallet is not connected to any chain")
	}
	if req.ChainID != 0 && req.ChainID != n.chainID {
		return common.Hash{}, clierr.New(clierr.CodeChainSwitch, fmt.Sprintf("request targets %s but wallet is on %s", registry.ChainName(req.ChainID), registry.ChainName(n.chainID)))
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	msg := ethereum.CallMsg{From: n.Account(), To: &req.To, Value: value, Data: req.Data}

	gasLimit := req.Gas
	if gasLimit == 0 {
		estimated, err := n.client.EstimateGas(ctx, msg)
		if err != nil {
			return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "estimate gas", err)
		}
		gasLimit = uint64(float64(estimated) * n.gasMult)
	}

	tipCap := req.MaxPriorityFeePerGas
	if tipCap == nil {
		suggested, err := n.client.SuggestGasTipCap(ctx)
		if err != nil {
			suggested = big.NewInt(fallbackTipCapWei)
		}
		tipCap = suggested
	}
	feeCap := req.MaxFeePerGas
	if feeCap == nil {
		header, err := n.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "fetch latest header", err)
		}
		baseFee := header.BaseFee
		if baseFee == nil {
			baseFee = big.NewInt(1_000_000_000)
		}
		feeCap = new(big.Int).Mul(baseFee, big.NewInt(2))
		feeCap.Add(feeCap, tipCap)
	}

	var nonce uint64
	if req.Nonce != nil {
		nonce = *req.Nonce
	} else {
		pending, err := n.client.PendingNonceAt(ctx, n.Account())
		if err != nil {
			return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "fetch nonce", err)
		}
		nonce = pending
	}

	chainID := big.NewInt(n.chainID)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &req.To,
		Value:     value,
		Data:      req.Data,
	})
	signed, err := n.signer.SignTx(chainID, tx)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeWallet, "sign transaction", err)
	}
	if err := n.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "broadcast transaction", err)
	}
	return signed.Hash(), nil
}

func (n *Node) WriteContract(ctx context.Context, params CallParams) (common.Hash, error) {
	data, err := packCall(params)
	if err != nil {
		return common.Hash{}, err
	}
	return n.SendTransaction(ctx, TxRequest{
		ChainID: params.ChainID,
		To:      params.To,
		Data:    data,
		Value:   params.Value,
	})
}

func (n *Node) ReadContract(ctx context.Context, params CallParams) ([]any, error) {
	if n.client == nil {
		return nil, clierr.New(clierr.CodeWallet, "wallet is not connected to any chain")
	}
	data, err := packCall(params)
	if err != nil {
		return nil, err
	}
	raw, err := n.client.CallContract(ctx, ethereum.CallMsg{From: n.Account(), To: &params.To, Data: data}, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("call %s", params.Method), err)
	}
	out, err := params.ABI.Unpack(params.Method, raw)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("decode %s result", params.Method), err)
	}
	return out, nil
}

func packCall(params CallParams) ([]byte, error) {
	if params.ABI == nil {
		return nil, clierr.New(clierr.CodeInternal, "contract call is missing an abi")
	}
	data, err := params.ABI.Pack(params.Method, params.Args...)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, fmt.Sprintf("pack %s calldata", params.Method), err)
	}
	return data, nil
}
