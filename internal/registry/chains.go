package registry

import (
	"fmt"
	"strings"
)

// Canonical default EVM RPC endpoints by chain id, used whenever the config
// does not carry an override for the chain.
var defaultRPCByChainID = map[int64]string{
	1:      "https://eth.llamarpc.com",
	10:     "https://mainnet.optimism.io",
	56:     "https://bsc-dataseed.binance.org",
	137:    "https://polygon-rpc.com",
	8453:   "https://mainnet.base.org",
	42161:  "https://arb1.arbitrum.io/rpc",
	43114:  "https://api.avax.network/ext/bc/C/rpc",
	59144:  "https://rpc.linea.build",
	81457:  "https://rpc.blast.io",
	534352: "https://rpc.scroll.io",
}

var chainNameByID = map[int64]string{
	1:      "Ethereum",
	10:     "Optimism",
	56:     "BSC",
	137:    "Polygon",
	8453:   "Base",
	42161:  "Arbitrum",
	43114:  "Avalanche",
	59144:  "Linea",
	81457:  "Blast",
	534352: "Scroll",
}

// Wrapped-native (WETH-family) token addresses per chain. The pipeline
// compares quote input tokens against these to decide whether a deposit
// call must precede the primary transaction.
var wrappedNativeByChainID = map[int64]string{
	1:     "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	10:    "0x4200000000000000000000000000000000000006",
	56:    "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c",
	137:   "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
	8453:  "0x4200000000000000000000000000000000000006",
	42161: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
	43114: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7",
}

func DefaultRPCURL(chainID int64) (string, bool) {
	value, ok := defaultRPCByChainID[chainID]
	return value, ok
}

func ResolveRPCURL(override string, chainID int64) (string, error) {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override), nil
	}
	if value, ok := DefaultRPCURL(chainID); ok {
		return value, nil
	}
	return "", fmt.Errorf("no default rpc configured for chain id %d", chainID)
}

func ChainName(chainID int64) string {
	if name, ok := chainNameByID[chainID]; ok {
		return name
	}
	return fmt.Sprintf("chain %d", chainID)
}

func WrappedNativeAddress(chainID int64) (string, bool) {
	addr, ok := wrappedNativeByChainID[chainID]
	return addr, ok
}

// IsWrappedNative reports whether addr is the chain's wrapped-native token.
func IsWrappedNative(chainID int64, addr string) bool {
	wrapped, ok := wrappedNativeByChainID[chainID]
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(addr), wrapped)
}
