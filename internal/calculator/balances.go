package calculator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// EntryForBalance is the minimal view of a split entry needed for balances.
type EntryForBalance struct {
	Participant string          // Who owes the share
	Creditor    string          // Who fronted the expense
	Share       decimal.Decimal
	Paid        bool
}

// MemberBalance represents the outstanding position of one group member.
type MemberBalance struct {
	MemberName string
	NetBalance decimal.Decimal // Positive = is owed money, Negative = owes money
	IsOwed     decimal.Decimal // Unpaid shares others owe this member
	Owes       decimal.Decimal // Unpaid shares this member owes others
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// CalculateGroupBalances computes outstanding balances from split entries.
//
// Algorithm:
//   - Paid entries and entries owed to oneself are settled and ignored
//   - Each unpaid entry: participant owes share, creditor is owed share
//   - net_balance = is_owed - owes
//   - Debt list: simplified with greedy matching of largest debtor against
//     largest creditor
//
// Results are sorted by member name (balances) and by debtor then creditor
// (debts) so output is deterministic.
func CalculateGroupBalances(entries []EntryForBalance) ([]MemberBalance, []DebtEdge) {
	balances := make(map[string]*MemberBalance)
	get := func(name string) *MemberBalance {
		b, ok := balances[name]
		if !ok {
			b = &MemberBalance{MemberName: name, NetBalance: decimal.Zero, IsOwed: decimal.Zero, Owes: decimal.Zero}
			balances[name] = b
		}
		return b
	}

	for _, e := range entries {
		if e.Paid || e.Creditor == "" || e.Participant == e.Creditor {
			continue
		}
		get(e.Participant).Owes = get(e.Participant).Owes.Add(e.Share)
		get(e.Creditor).IsOwed = get(e.Creditor).IsOwed.Add(e.Share)
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.NetBalance = b.IsOwed.Sub(b.Owes)
		memberBalances = append(memberBalances, *b)
	}
	sort.Slice(memberBalances, func(i, j int) bool {
		return memberBalances[i].MemberName < memberBalances[j].MemberName
	})

	return memberBalances, simplifyDebts(memberBalances)
}

func simplifyDebts(memberBalances []MemberBalance) []DebtEdge {
	type position struct {
		name   string
		amount decimal.Decimal
	}

	var creditors, debtors []position
	for _, b := range memberBalances {
		switch {
		case b.NetBalance.IsPositive():
			creditors = append(creditors, position{b.MemberName, b.NetBalance})
		case b.NetBalance.IsNegative():
			debtors = append(debtors, position{b.MemberName, b.NetBalance.Neg()})
		}
	}

	// Largest first; name breaks ties.
	byAmount := func(list []position) {
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].amount.Equal(list[j].amount) {
				return list[i].amount.GreaterThan(list[j].amount)
			}
			return list[i].name < list[j].name
		})
	}
	byAmount(creditors)
	byAmount(debtors)

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.IsPositive() {
			edges = append(edges, DebtEdge{From: debtors[i].name, To: creditors[j].name, Amount: amount})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if debtors[i].amount.IsZero() {
			i++
		}
		if creditors[j].amount.IsZero() {
			j++
		}
	}

	sort.SliceStable(edges, func(a, b int) bool {
		if edges[a].From != edges[b].From {
			return edges[a].From < edges[b].From
		}
		return edges[a].To < edges[b].To
	})
	return edges
}
