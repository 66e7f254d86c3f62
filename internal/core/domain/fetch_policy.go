package domain

import "go.trai.ch/zerr"

// FetchPolicy decides whether a request consults the network, the store, or both.
type FetchPolicy string

const (
	// FetchPolicyStoreOnly never executes a request; it reads whatever the store holds.
	FetchPolicyStoreOnly FetchPolicy = "store-only"
	// FetchPolicyNetworkOnly always executes the request, even when the store satisfies it.
	FetchPolicyNetworkOnly FetchPolicy = "network-only"
	// FetchPolicyStoreOrNetwork executes the request only when the store cannot satisfy it.
	FetchPolicyStoreOrNetwork FetchPolicy = "store-or-network"
)

// DefaultFetchPolicy is used when a caller does not choose one.
const DefaultFetchPolicy = FetchPolicyNetworkOnly

// ParseFetchPolicy converts s into a FetchPolicy. The empty string yields DefaultFetchPolicy.
func ParseFetchPolicy(s string) (FetchPolicy, error) {
	switch FetchPolicy(s) {
	case "":
		return DefaultFetchPolicy, nil
	case FetchPolicyStoreOnly, FetchPolicyNetworkOnly, FetchPolicyStoreOrNetwork:
		return FetchPolicy(s), nil
	default:
		return "", zerr.With(zerr.Wrap(ErrInvalidFetchPolicy, "unsupported fetch policy"), "fetch_policy", s)
	}
}

// String implements fmt.Stringer.
func (p FetchPolicy) String() string {
	return string(p)
}
