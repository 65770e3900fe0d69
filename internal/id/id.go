// Package id parses user-facing chain references. A chain can be named by
// slug ("base"), CAIP-2 ("eip155:8453"), or bare numeric id ("8453"); all
// resolve to the same Chain.
package id

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	clierr "github.com/bryfeng/sherpa-front-sub002/internal/errors"
)

var eip155ChainPattern = regexp.MustCompile(`^eip155:[0-9]+$`)

type Chain struct {
	Name    string
	Slug    string
	ChainID int64
}

func (c Chain) CAIP2() string {
	return fmt.Sprintf("eip155:%d", c.ChainID)
}

var chainBySlug = map[string]Chain{
	"ethereum":  {Name: "Ethereum", Slug: "ethereum", ChainID: 1},
	"mainnet":   {Name: "Ethereum", Slug: "ethereum", ChainID: 1},
	"optimism":  {Name: "Optimism", Slug: "optimism", ChainID: 10},
	"bsc":       {Name: "BSC", Slug: "bsc", ChainID: 56},
	"polygon":   {Name: "Polygon", Slug: "polygon", ChainID: 137},
	"base":      {Name: "Base", Slug: "base", ChainID: 8453},
	"arbitrum":  {Name: "Arbitrum", Slug: "arbitrum", ChainID: 42161},
	"avalanche": {Name: "Avalanche", Slug: "avalanche", ChainID: 43114},
	"linea":     {Name: "Linea", Slug: "linea", ChainID: 59144},
	"blast":     {Name: "Blast", Slug: "blast", ChainID: 81457},
	"scroll":    {Name: "Scroll", Slug: "scroll", ChainID: 534352},
}

var chainByID = func() map[int64]Chain {
	out := make(map[int64]Chain, len(chainBySlug))
	for _, chain := range chainBySlug {
		out[chain.ChainID] = chain
	}
	return out
}()

// ParseChain resolves a slug, CAIP-2 reference, or numeric chain id.
func ParseChain(input string) (Chain, error) {
	clean := strings.ToLower(strings.TrimSpace(input))
	if clean == "" {
		return Chain{}, clierr.New(clierr.CodeUsage, "chain is required")
	}

	if chain, ok := chainBySlug[clean]; ok {
		return chain, nil
	}

	if eip155ChainPattern.MatchString(clean) {
		clean = strings.TrimPrefix(clean, "eip155:")
	}
	if id, err := strconv.ParseInt(clean, 10, 64); err == nil && id > 0 {
		if chain, ok := chainByID[id]; ok {
			return chain, nil
		}
		// Unknown but syntactically valid; let the RPC layer decide.
		return Chain{Name: fmt.Sprintf("chain %d", id), Slug: clean, ChainID: id}, nil
	}

	return Chain{}, clierr.New(clierr.CodeUsage,
		fmt.Sprintf("unknown chain %q (supported: %s)", input, strings.Join(SupportedSlugs(), ", ")))
}

// ChainByID resolves a numeric id to a known chain.
func ChainByID(id int64) (Chain, bool) {
	chain, ok := chainByID[id]
	return chain, ok
}

// SupportedSlugs lists the canonical chain slugs, sorted.
func SupportedSlugs() []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(chainBySlug))
	for _, chain := range chainBySlug {
		if !seen[chain.Slug] {
			seen[chain.Slug] = true
			out = append(out, chain.Slug)
		}
	}
	sort.Strings(out)
	return out
}
