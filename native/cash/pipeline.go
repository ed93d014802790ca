package cash

import (
	"math/big"

	"cashchain/core/numerics"
	"cashchain/core/types"
)

// EffectKind names a staged balance change.
type EffectKind uint8

const (
	EffectAugmentAsset EffectKind = iota + 1
	EffectReduceAsset
	EffectAugmentCash
	EffectReduceCash
)

func (k EffectKind) String() string {
	switch k {
	case EffectAugmentAsset:
		return "AugmentAsset"
	case EffectReduceAsset:
		return "ReduceAsset"
	case EffectAugmentCash:
		return "AugmentCash"
	case EffectReduceCash:
		return "ReduceCash"
	}
	return "Unknown"
}

// Effect is one staged change. Chain is set for CASH crossing a starport.
type Effect struct {
	Kind     EffectKind
	Asset    types.ChainAsset
	Account  types.ChainAccount
	Amount   *big.Int
	Chain    types.ChainID
	External bool
}

// pipeline stages effects on the call's buffered state. Each step reads the
// state left by the previous one, so checks observe every staged effect.
type pipeline struct {
	l       *ledger
	effects []Effect
	// opening total supply per asset, captured on first touch
	opening map[types.ChainAsset]*big.Int
}

func (l *ledger) pipeline() *pipeline { return &pipeline{l: l} }

// accruedInterest is the CASH principal balance has earned (positive) or
// owes (negative) in asset since its last settlement.
func (l *ledger) accruedInterest(info types.AssetInfo, account types.ChainAccount, balance *big.Int) (*big.Int, error) {
	if balance.Sign() == 0 {
		return new(big.Int), nil
	}
	last, err := l.st.LastIndex(info.Asset, account)
	if err != nil {
		return nil, err
	}
	var now types.AssetIndex
	if balance.Sign() > 0 {
		now, err = l.st.SupplyIndex(info.Asset)
	} else {
		now, err = l.st.BorrowIndex(info.Asset)
	}
	if err != nil {
		return nil, err
	}
	growth, err := now.GrowthSince(last)
	if err != nil || growth.IsZero() {
		return new(big.Int), err
	}
	interest := growth.MulInt(new(big.Int).Abs(balance))
	price, err := l.priceOrZero(info.Ticker)
	if err != nil {
		return nil, err
	}
	usd := numerics.Mul(interest, info.Decimals, price.Int(), types.PriceDecimals, types.CashDecimals)
	index, err := l.st.CashIndex()
	if err != nil {
		return nil, err
	}
	principal, err := numerics.MulDiv(usd, numerics.Pow10(types.FactorDecimals), index.Int())
	if err != nil {
		return nil, err
	}
	if balance.Sign() < 0 {
		principal.Neg(principal)
	}
	return principal, nil
}

// settleInterest folds accrued interest into the account's CASH principal
// and moves its last index to the side its new balance sits on.
func (p *pipeline) settleInterest(info types.AssetInfo, account types.ChainAccount, before, after *big.Int) error {
	st := p.l.st
	accrued, err := p.l.accruedInterest(info, account, before)
	if err != nil {
		return err
	}
	if accrued.Sign() != 0 {
		principal, err := st.CashPrincipal(account)
		if err != nil {
			return err
		}
		updated, err := types.NewCashPrincipal(new(big.Int).Add(principal.Int(), accrued))
		if err != nil {
			return err
		}
		if err := st.SetCashPrincipal(account, updated); err != nil {
			return err
		}
	}
	var idx types.AssetIndex
	if after.Sign() >= 0 {
		idx, err = st.SupplyIndex(info.Asset)
	} else {
		idx, err = st.BorrowIndex(info.Asset)
	}
	if err != nil {
		return err
	}
	return st.SetLastIndex(info.Asset, account, idx)
}

func (p *pipeline) augmentAsset(info types.AssetInfo, account types.ChainAccount, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	st := p.l.st
	balance, err := st.AssetBalance(info.Asset, account)
	if err != nil {
		return err
	}
	repay, supply := repayAndSupply(balance, amount)

	totalSupply, err := st.TotalSupply(info.Asset)
	if err != nil {
		return err
	}
	p.noteOpeningSupply(info.Asset, totalSupply)
	totalSupply.Add(totalSupply, supply)
	if supply.Sign() > 0 {
		if err := p.checkSupplyCap(info, totalSupply); err != nil {
			return err
		}
	}
	if _, err := numerics.CheckUint128(totalSupply); err != nil {
		return err
	}
	totalBorrow, err := st.TotalBorrow(info.Asset)
	if err != nil {
		return err
	}
	totalBorrow, err = subNonNegative(totalBorrow, repay, types.ErrTotalBorrowUnderflow)
	if err != nil {
		return err
	}
	after, err := types.NewBalance(info.Units(), new(big.Int).Add(balance, amount))
	if err != nil {
		return err
	}

	if err := p.settleInterest(info, account, balance, after.Value); err != nil {
		return err
	}
	if err := st.SetTotalSupply(info.Asset, totalSupply); err != nil {
		return err
	}
	if err := st.SetTotalBorrow(info.Asset, totalBorrow); err != nil {
		return err
	}
	if err := st.SetAssetBalance(info.Asset, account, after.Value); err != nil {
		return err
	}
	p.effects = append(p.effects, Effect{Kind: EffectAugmentAsset, Asset: info.Asset, Account: account, Amount: numerics.Clone(amount)})
	return nil
}

func (p *pipeline) reduceAsset(info types.AssetInfo, account types.ChainAccount, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	st := p.l.st
	balance, err := st.AssetBalance(info.Asset, account)
	if err != nil {
		return err
	}
	withdraw, borrow := withdrawAndBorrow(balance, amount)

	totalSupply, err := st.TotalSupply(info.Asset)
	if err != nil {
		return err
	}
	p.noteOpeningSupply(info.Asset, totalSupply)
	totalSupply, err = subNonNegative(totalSupply, withdraw, types.ErrInsufficientTotalFunds)
	if err != nil {
		return err
	}
	totalBorrow, err := st.TotalBorrow(info.Asset)
	if err != nil {
		return err
	}
	totalBorrow.Add(totalBorrow, borrow)
	if _, err := numerics.CheckUint128(totalBorrow); err != nil {
		return err
	}
	after, err := types.NewBalance(info.Units(), new(big.Int).Sub(balance, amount))
	if err != nil {
		return err
	}

	if err := p.settleInterest(info, account, balance, after.Value); err != nil {
		return err
	}
	if err := st.SetTotalSupply(info.Asset, totalSupply); err != nil {
		return err
	}
	if err := st.SetTotalBorrow(info.Asset, totalBorrow); err != nil {
		return err
	}
	if err := st.SetAssetBalance(info.Asset, account, after.Value); err != nil {
		return err
	}
	p.effects = append(p.effects, Effect{Kind: EffectReduceAsset, Asset: info.Asset, Account: account, Amount: numerics.Clone(amount)})
	return nil
}

// augmentCash credits principal to account. When it arrives from a starport
// the chain's held CASH is drawn down.
func (p *pipeline) augmentCash(account types.ChainAccount, principal types.CashPrincipalAmount, from *types.ChainID) error {
	if principal.IsZero() {
		return errInvalidAmount
	}
	st := p.l.st
	current, err := st.CashPrincipal(account)
	if err != nil {
		return err
	}
	repay, _ := repayAndSupply(current.Int(), principal.Int())
	total, err := st.TotalCashPrincipal()
	if err != nil {
		return err
	}
	totalNew, err := subNonNegative(total.Int(), repay, types.ErrInsufficientChainCash)
	if err != nil {
		return err
	}
	updated, err := current.AddAmount(principal)
	if err != nil {
		return err
	}
	effect := Effect{Kind: EffectAugmentCash, Account: account, Amount: principal.Int()}
	if from != nil {
		held, err := st.ChainCashPrincipal(*from)
		if err != nil {
			return err
		}
		heldNew, err := subNonNegative(held.Int(), principal.Int(), types.ErrNegativeChainCash)
		if err != nil {
			return err
		}
		if err := st.SetChainCashPrincipal(*from, types.CashPrincipalAmount{Value: heldNew}); err != nil {
			return err
		}
		effect.Chain, effect.External = *from, true
	}
	if err := st.SetTotalCashPrincipal(types.CashPrincipalAmount{Value: totalNew}); err != nil {
		return err
	}
	if err := st.SetCashPrincipal(account, updated); err != nil {
		return err
	}
	p.effects = append(p.effects, effect)
	return nil
}

// reduceCash debits principal from account. When it leaves through a
// starport the chain's held CASH grows.
func (p *pipeline) reduceCash(account types.ChainAccount, principal types.CashPrincipalAmount, to *types.ChainID) error {
	if principal.IsZero() {
		return errInvalidAmount
	}
	st := p.l.st
	current, err := st.CashPrincipal(account)
	if err != nil {
		return err
	}
	_, borrow := withdrawAndBorrow(current.Int(), principal.Int())
	total, err := st.TotalCashPrincipal()
	if err != nil {
		return err
	}
	totalNew, err := types.NewCashPrincipalAmount(new(big.Int).Add(total.Int(), borrow))
	if err != nil {
		return err
	}
	updated, err := current.SubAmount(principal)
	if err != nil {
		return err
	}
	effect := Effect{Kind: EffectReduceCash, Account: account, Amount: principal.Int()}
	if to != nil {
		held, err := st.ChainCashPrincipal(*to)
		if err != nil {
			return err
		}
		heldNew, err := held.Add(principal)
		if err != nil {
			return err
		}
		if err := st.SetChainCashPrincipal(*to, heldNew); err != nil {
			return err
		}
		effect.Chain, effect.External = *to, true
	}
	if err := st.SetTotalCashPrincipal(totalNew); err != nil {
		return err
	}
	if err := st.SetCashPrincipal(account, updated); err != nil {
		return err
	}
	p.effects = append(p.effects, effect)
	return nil
}

func (p *pipeline) transferAsset(info types.AssetInfo, from, to types.ChainAccount, amount *big.Int) error {
	if from == to {
		return types.ErrSelfTransfer
	}
	// Debit first: crediting first would count the moved amount twice
	// against the supply cap.
	if err := p.reduceAsset(info, from, amount); err != nil {
		return err
	}
	return p.augmentAsset(info, to, amount)
}

func (p *pipeline) transferCash(from, to types.ChainAccount, principal types.CashPrincipalAmount) error {
	if from == to {
		return types.ErrSelfTransfer
	}
	if err := p.reduceCash(from, principal, nil); err != nil {
		return err
	}
	return p.augmentCash(to, principal, nil)
}

func (p *pipeline) noteOpeningSupply(asset types.ChainAsset, total *big.Int) {
	if p.opening == nil {
		p.opening = make(map[types.ChainAsset]*big.Int)
	}
	if _, ok := p.opening[asset]; !ok {
		p.opening[asset] = numerics.Clone(total)
	}
}

// checkSupplyCap rejects a staged total supply above the asset's cap unless
// it is no larger than the supply the call started with. A nil cap is
// unlimited; a zero cap admits no new supply.
func (p *pipeline) checkSupplyCap(info types.AssetInfo, total *big.Int) error {
	if info.SupplyCap == nil || total.Cmp(info.SupplyCap) <= 0 {
		return nil
	}
	if opening, ok := p.opening[info.Asset]; ok && total.Cmp(opening) <= 0 {
		return nil
	}
	return types.ErrSupplyCapExceeded
}

// checkCollateralized fails when account's liquidity is negative.
func (p *pipeline) checkCollateralized(account types.ChainAccount) error {
	liquidity, err := p.l.liquidity(account)
	if err != nil {
		return err
	}
	if liquidity.Sign() < 0 {
		return types.ErrInsufficientLiquidity
	}
	return nil
}

// checkSufficientTotalFunds fails when more of asset is borrowed than
// supplied.
func (p *pipeline) checkSufficientTotalFunds(asset types.ChainAsset) error {
	supply, err := p.l.st.TotalSupply(asset)
	if err != nil {
		return err
	}
	borrow, err := p.l.st.TotalBorrow(asset)
	if err != nil {
		return err
	}
	if borrow.Cmp(supply) > 0 {
		return types.ErrInsufficientTotalFunds
	}
	return nil
}
