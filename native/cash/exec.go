package cash

import (
	"fmt"
	"math/big"

	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/trxrequest"
)

// TrxRequestMessage is the text an account signs to submit request.
func TrxRequestMessage(nonce uint32, request string) []byte {
	return []byte(fmt.Sprintf("%d:%s", nonce, request))
}

// SignTrxRequest signs request for an Eth account.
func SignTrxRequest(request string, nonce uint32, key *crypto.PrivateKey) (types.ChainSignature, error) {
	sig, err := crypto.EthSign(TrxRequestMessage(nonce, request), key, true)
	if err != nil {
		return types.ChainSignature{}, err
	}
	return types.ChainSignature{Chain: types.ChainEth, Sig: sig}, nil
}

// RecoverTrxRequestSigner returns the account that signed request at nonce.
func RecoverTrxRequestSigner(request string, nonce uint32, sig types.ChainSignature) (types.ChainAccount, error) {
	switch sig.Chain {
	case types.ChainEth:
		addr, err := crypto.EthRecover(TrxRequestMessage(nonce, request), sig.Sig[:], true)
		if err != nil {
			return types.ChainAccount{}, err
		}
		return types.EthAccount(addr), nil
	case types.ChainGate:
		return types.ChainAccount{}, types.ErrNotImplemented
	}
	return types.ChainAccount{}, types.ErrBadSignature
}

// ExecTrxRequest runs a signed request. The nonce must equal the signer's
// stored nonce, which advances only when the request succeeds.
func (e *Engine) ExecTrxRequest(request string, nonce uint32, sig types.ChainSignature) error {
	return e.mutate(func(l *ledger) error {
		sender, err := RecoverTrxRequestSigner(request, nonce, sig)
		if err != nil {
			return err
		}
		expected, err := l.st.Nonce(sender)
		if err != nil {
			return err
		}
		if nonce != expected {
			return types.IncorrectNonceError{Given: nonce, Expected: expected}
		}
		if err := l.execTrxRequest(request, sender); err != nil {
			return err
		}
		return l.st.SetNonce(sender, expected+1)
	})
}

// ExecAuthenticated runs request for an account a starport has already
// authenticated. No nonce is consumed.
func (e *Engine) ExecAuthenticated(request string, sender types.ChainAccount) error {
	return e.mutate(func(l *ledger) error { return l.execTrxRequest(request, sender) })
}

func (l *ledger) execTrxRequest(request string, sender types.ChainAccount) error {
	req, err := trxrequest.Parse(request)
	if err != nil {
		return err
	}
	switch req.Verb {
	case trxrequest.VerbExtract:
		if req.Asset.Cash {
			principal, err := l.requestPrincipal(sender, req.Amount, false)
			if err != nil {
				return err
			}
			return l.extractCash(sender, req.Account, principal)
		}
		if req.Amount.Max {
			return types.ErrMaxForNonCashAsset
		}
		return l.extract(req.Asset.Asset, sender, req.Account, req.Amount.Amount)
	case trxrequest.VerbTransfer:
		if req.Asset.Cash {
			principal, err := l.requestPrincipal(sender, req.Amount, true)
			if err != nil {
				return err
			}
			return l.transferCash(sender, req.Account, principal)
		}
		if req.Amount.Max {
			return types.ErrMaxForNonCashAsset
		}
		return l.transfer(req.Asset.Asset, sender, req.Account, req.Amount.Amount)
	case trxrequest.VerbLiquidate:
		return l.execLiquidate(req, sender)
	}
	return types.TrxRequestParseError{Kind: trxrequest.KindUnknownFunction, Detail: req.Verb.String()}
}

func (l *ledger) execLiquidate(req trxrequest.Request, liquidator types.ChainAccount) error {
	if req.Amount.Max {
		return types.ErrNotImplemented
	}
	switch {
	case req.Asset.Cash && req.Collateral.Cash:
		return types.ErrInKindLiquidation
	case req.Asset.Cash:
		principal, err := l.requestPrincipal(liquidator, req.Amount, false)
		if err != nil {
			return err
		}
		return l.liquidateCashPrincipal(req.Collateral.Asset, liquidator, req.Account, principal)
	case req.Collateral.Cash:
		return l.liquidateCashCollateral(req.Asset.Asset, liquidator, req.Account, req.Amount.Amount)
	}
	return l.liquidate(req.Asset.Asset, req.Collateral.Asset, liquidator, req.Account, req.Amount.Amount)
}

// requestPrincipal resolves a CASH amount to principal. Max takes all the
// sender's positive principal, less the transfer fee when withFee is set.
func (l *ledger) requestPrincipal(sender types.ChainAccount, amount trxrequest.MaxAmount, withFee bool) (types.CashPrincipalAmount, error) {
	index, err := l.st.CashIndex()
	if err != nil {
		return types.CashPrincipalAmount{}, err
	}
	if !amount.Max {
		q, err := types.NewQuantity(types.CASH, amount.Amount)
		if err != nil {
			return types.CashPrincipalAmount{}, err
		}
		return index.CashPrincipalAmount(q)
	}
	current, err := l.st.CashPrincipal(sender)
	if err != nil {
		return types.CashPrincipalAmount{}, err
	}
	withdrawable := current.AmountWithdrawable()
	if !withFee {
		return withdrawable, nil
	}
	fee, err := l.feePrincipal(index)
	if err != nil {
		return types.CashPrincipalAmount{}, err
	}
	rest := new(big.Int).Sub(withdrawable.Int(), fee.Int())
	if rest.Sign() < 0 {
		rest.SetInt64(0)
	}
	return types.CashPrincipalAmount{Value: rest}, nil
}
