package ledger

import (
	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

// AccountBalance derives the current balance of an account from its opening
// balance and every transaction that references it. Unknown accounts yield 0.
func (s *Store) AccountBalance(accountID string) (bal decimal.Decimal) {
	s.View(func(tx *Tx) { bal = tx.AccountBalance(accountID) })
	return bal
}

// NetWorth sums the derived balance of every account. It is recomputed on
// each call.
func (s *Store) NetWorth() (total decimal.Decimal) {
	s.View(func(tx *Tx) { total = tx.NetWorth() })
	return total
}

// Balances lists every account with its derived balance.
func (s *Store) Balances() (out []core.AccountBalance) {
	s.View(func(tx *Tx) { out = tx.Balances() })
	return out
}

func (tx *Tx) AccountBalance(accountID string) decimal.Decimal {
	acc, ok := tx.Account(accountID)
	if !ok {
		return decimal.Zero
	}
	bal := acc.Balance
	tx.EachTransaction(func(t *core.Transaction) {
		bal = bal.Add(effect(t, accountID))
	})
	return bal
}

func (tx *Tx) NetWorth() decimal.Decimal {
	total := decimal.Zero
	for _, acc := range tx.st.accounts {
		total = total.Add(tx.AccountBalance(acc.ID))
	}
	return total
}

func (tx *Tx) Balances() []core.AccountBalance {
	out := make([]core.AccountBalance, 0, len(tx.st.accounts))
	for _, acc := range tx.st.accounts {
		out = append(out, core.AccountBalance{Account: acc, Current: tx.AccountBalance(acc.ID)})
	}
	return out
}

// effect is the signed change t makes to accountID. Transfer legs apply
// independently, so a transfer from an account to itself nets to zero. An
// absent reference never matches.
func effect(t *core.Transaction, accountID string) decimal.Decimal {
	d := decimal.Zero
	if accountID == "" {
		return d
	}
	switch t.Type {
	case core.Income:
		if t.ToAccountID == accountID {
			d = d.Add(t.Amount)
		}
	case core.Expense:
		if t.FromAccountID == accountID {
			d = d.Sub(t.Amount)
		}
	case core.Transfer:
		if t.FromAccountID == accountID {
			d = d.Sub(t.Amount)
		}
		if t.ToAccountID == accountID {
			d = d.Add(t.Amount)
		}
	}
	return d
}
