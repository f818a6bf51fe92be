package projection

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/handler"
	"github.com/shopspring/decimal"
)

type Balance struct {
	Token     common.Address  `json:"token"`
	Account   common.Address  `json:"account"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt uint64          `json:"updated_at"`
}

type Allowance struct {
	Token   common.Address  `json:"token"`
	Owner   common.Address  `json:"owner"`
	Spender common.Address  `json:"spender"`
	Amount  decimal.Decimal `json:"amount"`
}

// Token holds per-contract totals. Supply counts mints minus burns to the zero address.
type Token struct {
	Address      common.Address  `json:"address"`
	Supply       decimal.Decimal `json:"supply"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	TaxCollected decimal.Decimal `json:"tax_collected"`
	TaxBurned    decimal.Decimal `json:"tax_burned"`
}

type TaxExemption struct {
	Token   common.Address `json:"token"`
	Account common.Address `json:"account"`
	Exempt  bool           `json:"exempt"`
}

func balanceKey(token, account common.Address) string {
	return token.Hex() + ":" + account.Hex()
}

func (p *projector) token(ctx context.Context, scope handler.Scope, ev events.TypedEvent) error {
	contract := ev.Meta.Contract
	block := ev.Meta.BlockNumber

	switch e := ev.Payload.(type) {
	case events.Transfer:
		value := amount(e.Value)
		zero := common.Address{}

		if e.From != zero {
			if err := p.credit(ctx, scope, contract, e.From, value.Neg(), block); err != nil {
				return err
			}
		}
		if e.To != zero {
			if err := p.credit(ctx, scope, contract, e.To, value, block); err != nil {
				return err
			}
		}

		var minted decimal.Decimal
		switch {
		case e.From == zero && e.To != zero:
			minted = value
		case e.To == zero && e.From != zero:
			minted = value.Neg()
		default:
			return nil
		}
		return update(ctx, scope, KindToken, contract.Hex(), func(t *Token) {
			t.Address = contract
			t.Supply = t.Supply.Add(minted)
		})

	case events.Approval:
		return update(ctx, scope, KindAllowance, contract.Hex()+":"+e.Owner.Hex()+":"+e.Spender.Hex(),
			func(a *Allowance) {
				*a = Allowance{Token: contract, Owner: e.Owner, Spender: e.Spender, Amount: amount(e.Value)}
			})

	case events.TaxCollected:
		return update(ctx, scope, KindToken, contract.Hex(), func(t *Token) {
			t.Address = contract
			t.TaxCollected = t.TaxCollected.Add(amount(e.Amount))
			t.TaxBurned = t.TaxBurned.Add(amount(e.Burned))
		})

	case events.TaxRateUpdated:
		return update(ctx, scope, KindToken, contract.Hex(), func(t *Token) {
			t.Address = contract
			t.TaxRate = amount(e.NewRate)
		})

	case events.TaxExemptionSet:
		return update(ctx, scope, KindTaxExemption, balanceKey(contract, e.Account), func(x *TaxExemption) {
			*x = TaxExemption{Token: contract, Account: e.Account, Exempt: e.Exempt}
		})

	default:
		return unexpected(ev)
	}
}

func (p *projector) credit(
	ctx context.Context, scope handler.Scope, token, account common.Address, delta decimal.Decimal, block uint64,
) error {
	return update(ctx, scope, KindBalance, balanceKey(token, account), func(b *Balance) {
		b.Token = token
		b.Account = account
		b.Amount = b.Amount.Add(delta)
		b.UpdatedAt = block

		if b.Amount.IsNegative() {
			p.log.Warnw("negative balance", "token", token.Hex(), "account", account.Hex(), "block", block)
		}
	})
}
