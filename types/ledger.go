package types

// TransferHook is invoked after an address receives funds, mimicking a
// recipient with execution of its own. Used to exercise reentrancy guards.
type TransferHook func(from string, amount int64)

// Ledger is the base balance and supply bookkeeping the engines call into.
// Implementations must keep sum(balances) == TotalSupply at all times.
type Ledger interface {
	BalanceOf(addr string) int64
	TotalSupply() int64
	Move(from, to string, amount int64) error
	Mint(to string, amount int64) error
	Burn(from string, amount int64) error
	Approve(owner, spender string, amount int64)
	Allowance(owner, spender string) int64
	SpendAllowance(owner, spender string, amount int64) error
	Balances() map[string]int64
	SetTransferHook(addr string, hook TransferHook)
}
