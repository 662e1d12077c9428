package types

import "math/big"

// Account holds the native-currency balance for an address, plus lifetime
// counters maintained when the address opens missions. Per-token balances
// live under their own storage keys so that the account record stays a small
// fixed shape for RLP encoding.
type Account struct {
	BalanceNative  *big.Int
	TotalEscrowed  *big.Int
	MissionsOpened uint64
}

// EnsureDefaults replaces nil big integer fields with zero values. Accounts
// freshly decoded from storage or constructed literally in tests may omit
// them.
func (a *Account) EnsureDefaults() *Account {
	if a == nil {
		return &Account{BalanceNative: big.NewInt(0), TotalEscrowed: big.NewInt(0)}
	}
	if a.BalanceNative == nil {
		a.BalanceNative = big.NewInt(0)
	}
	if a.TotalEscrowed == nil {
		a.TotalEscrowed = big.NewInt(0)
	}
	return a
}
