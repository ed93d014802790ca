package core

import (
	"math/big"

	"cashchain/core/state"
	"cashchain/core/types"
	"cashchain/native/cash"
	"cashchain/native/notices"
	"cashchain/native/oracle"
)

// NoticeView is a notice with its signature progress.
type NoticeView struct {
	Notice  types.Notice
	State   types.NoticeState
	Encoded []byte
	Hash    [32]byte
}

// CashView summarises the CASH market.
type CashView struct {
	Index          types.CashIndex
	Yield          types.APR
	Next           *state.YieldNext
	TotalPrincipal types.CashPrincipalAmount
	LastBlock      types.Timestamp
}

// Liquidity returns an account's USD liquidity.
func (n *Node) Liquidity(account types.ChainAccount) (types.Balance, error) {
	var out types.Balance
	err := n.read(func() error {
		var err error
		out, err = n.cash.GetLiquidity(account)
		return err
	})
	return out, err
}

// Portfolio returns an account's positions.
func (n *Node) Portfolio(account types.ChainAccount) (cash.Portfolio, error) {
	var out cash.Portfolio
	err := n.read(func() error {
		var err error
		out, err = n.cash.GetPortfolio(account)
		return err
	})
	return out, err
}

// Rates returns an asset's current borrow and supply rates.
func (n *Node) Rates(asset types.ChainAsset) (cash.Rates, error) {
	var out cash.Rates
	err := n.read(func() error {
		var err error
		out, err = n.cash.GetRates(asset)
		return err
	})
	return out, err
}

// Assets lists the supported assets.
func (n *Node) Assets() ([]types.AssetInfo, error) {
	var out []types.AssetInfo
	err := n.read(func() error {
		var err error
		out, err = n.cash.GetAssets()
		return err
	})
	return out, err
}

// Accounts lists every account with a position.
func (n *Node) Accounts() ([]types.ChainAccount, error) {
	var out []types.ChainAccount
	err := n.read(func() error {
		var err error
		out, err = n.cash.GetAccounts()
		return err
	})
	return out, err
}

// Nonce returns the next request nonce of account.
func (n *Node) Nonce(account types.ChainAccount) (uint32, error) {
	var out uint32
	err := n.read(func() error {
		var err error
		out, err = n.cash.GetNonce(account)
		return err
	})
	return out, err
}

// HasLiquidityToReduceAsset reports whether account stays collateralized
// after losing amount of asset.
func (n *Node) HasLiquidityToReduceAsset(account types.ChainAccount, asset types.ChainAsset, amount *big.Int) (bool, error) {
	var ok bool
	err := n.read(func() error {
		var err error
		ok, err = n.cash.HasLiquidityToReduceAsset(account, asset, amount)
		return err
	})
	return ok, err
}

// Price returns the oracle price of ticker.
func (n *Node) Price(t types.Ticker) (types.Price, error) {
	var out types.Price
	err := n.read(func() error {
		engine := oracle.NewEngine()
		engine.SetState(n.state)
		var err error
		out, err = engine.GetPrice(t)
		return err
	})
	return out, err
}

// Prices returns every recorded price.
func (n *Node) Prices() (map[types.Ticker]*big.Int, error) {
	var out map[types.Ticker]*big.Int
	err := n.read(func() error {
		var err error
		out, err = n.state.Prices()
		return err
	})
	return out, err
}

// Cash summarises the CASH market.
func (n *Node) Cash() (CashView, error) {
	var out CashView
	err := n.read(func() error {
		var err error
		if out.Index, err = n.state.CashIndex(); err != nil {
			return err
		}
		if out.Yield, err = n.state.CashYield(); err != nil {
			return err
		}
		next, ok, err := n.state.CashYieldNext()
		if err != nil {
			return err
		}
		if ok {
			out.Next = &next
		}
		if out.TotalPrincipal, err = n.state.TotalCashPrincipal(); err != nil {
			return err
		}
		out.LastBlock, err = n.state.LastBlockTimestamp()
		return err
	})
	return out, err
}

// EventStatus reports the progress of a starport event.
func (n *Node) EventStatus(id types.ChainLogID) (types.ChainEventState, bool, error) {
	var (
		out types.ChainEventState
		ok  bool
	)
	err := n.read(func() error {
		var err error
		out, ok, err = n.cash.EventStatus(id)
		return err
	})
	return out, ok, err
}

// Notice returns a notice and its signatures.
func (n *Node) Notice(chain types.ChainID, id types.NoticeID) (NoticeView, bool, error) {
	var (
		out NoticeView
		ok  bool
	)
	err := n.read(func() error {
		var err error
		out, ok, err = n.noticeView(chain, id)
		return err
	})
	return out, ok, err
}

func (n *Node) noticeView(chain types.ChainID, id types.NoticeID) (NoticeView, bool, error) {
	body, ok, err := n.state.Notice(chain, id)
	if err != nil || !ok {
		return NoticeView{}, ok, err
	}
	ns, err := n.state.NoticeState(chain, id)
	if err != nil {
		return NoticeView{}, false, err
	}
	hash, encoded, err := notices.Hash(body)
	if err != nil {
		return NoticeView{}, false, err
	}
	return NoticeView{Notice: body, State: ns, Encoded: encoded, Hash: hash.Hash}, true, nil
}

// PendingNotices lists notices still awaiting execution.
func (n *Node) PendingNotices() ([]NoticeView, error) {
	var out []NoticeView
	err := n.read(func() error {
		refs, err := n.state.PendingNotices()
		if err != nil {
			return err
		}
		for _, ref := range refs {
			view, ok, err := n.noticeView(ref.Chain, ref.ID)
			if err != nil {
				return err
			}
			if ok {
				out = append(out, view)
			}
		}
		return nil
	})
	return out, err
}

// AccountNotices lists the ids of notices addressed to account.
func (n *Node) AccountNotices(account types.ChainAccount) ([]types.NoticeID, error) {
	var out []types.NoticeID
	err := n.read(func() error {
		var err error
		out, err = n.state.AccountNotices(account)
		return err
	})
	return out, err
}

// Validators returns the active authority set.
func (n *Node) Validators() ([]types.ValidatorKeys, error) {
	var out []types.ValidatorKeys
	err := n.read(func() error {
		var err error
		out, err = n.state.Validators()
		return err
	})
	return out, err
}

// Params returns the ledger parameters.
func (n *Node) Params() (state.Params, error) {
	var out state.Params
	err := n.read(func() error {
		var err error
		out, err = n.state.Params()
		return err
	})
	return out, err
}
