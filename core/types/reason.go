package types

import (
	"errors"
	"fmt"

	"cashchain/core/numerics"
)

// Ledger failure reasons. Every extrinsic failure maps onto one of these, see
// ReasonOf.
var (
	ErrAssetNotSupported          = errors.New("cash: asset not supported")
	ErrBadTicker                  = errors.New("cash: bad ticker")
	ErrBadSymbol                  = errors.New("cash: bad symbol")
	ErrBadAsset                   = errors.New("cash: bad asset")
	ErrBadAccount                 = errors.New("cash: bad account")
	ErrBadAddress                 = errors.New("cash: bad address")
	ErrBadChainID                 = errors.New("cash: bad chain id")
	ErrBadSignature               = errors.New("cash: bad signature")
	ErrBadUnits                   = errors.New("cash: bad units")
	ErrBadFactor                  = errors.New("cash: bad factor")
	ErrInvalidAPR                 = errors.New("cash: invalid APR")
	ErrChainMismatch              = errors.New("cash: chain mismatch")
	ErrSignatureAccountMismatch   = errors.New("cash: signature account mismatch")
	ErrInsufficientLiquidity      = errors.New("cash: insufficient liquidity")
	ErrSufficientLiquidity        = errors.New("cash: sufficient liquidity")
	ErrInsufficientChainCash      = errors.New("cash: insufficient chain cash")
	ErrNegativeChainCash          = errors.New("cash: negative chain cash")
	ErrInsufficientTotalFunds     = errors.New("cash: insufficient total funds")
	ErrTotalBorrowUnderflow       = errors.New("cash: total borrow underflow")
	ErrRepayTooMuch               = errors.New("cash: repay too much")
	ErrMinTxValueNotMet           = errors.New("cash: min tx value not met")
	ErrMaxForNonCashAsset         = errors.New("cash: max only supported for CASH")
	ErrInKindLiquidation          = errors.New("cash: in-kind liquidation")
	ErrInvalidLiquidation         = errors.New("cash: invalid liquidation")
	ErrSelfTransfer               = errors.New("cash: self transfer")
	ErrSupplyCapExceeded          = errors.New("cash: supply cap exceeded")
	ErrNoPrice                    = errors.New("cash: no price")
	ErrNoticeHashMismatch         = errors.New("cash: notice hash mismatch")
	ErrNoticeAlreadySigned        = errors.New("cash: notice already signed")
	ErrSignatureMismatch          = errors.New("cash: signature mismatch")
	ErrUnknownValidator           = errors.New("cash: signer is not a validator")
	ErrNoticeHolds                = errors.New("cash: authority change notice in flight")
	ErrChangeValidatorsError      = errors.New("cash: change validators error")
	ErrInvalidUTF8                = errors.New("cash: invalid UTF-8")
	ErrNotImplemented             = errors.New("cash: not implemented")
	ErrTimeTravelNotAllowed       = errors.New("cash: time travel not allowed")
	ErrNotEnoughTimeToSyncBefore  = errors.New("cash: not enough time to sync before next")
	ErrNotEnoughTimeToSyncNext    = errors.New("cash: pending next yield too close to now")
	ErrInvalidCodeHash            = errors.New("cash: invalid code hash")
	ErrAssetExtractionUnsupported = errors.New("cash: asset extraction not supported")
	ErrEventAlreadyHandled        = errors.New("cash: chain event already handled")
	ErrUnknownEvent               = errors.New("cash: unknown chain event")
	ErrKeyNotFound                = errors.New("cash: key not found")
	ErrModelRateOutOfBounds       = errors.New("cash: model rate out of bounds")
	ErrZeroAboveKink              = errors.New("cash: zero rate above kink rate")
	ErrKinkAboveFull              = errors.New("cash: kink rate above full rate")
	ErrKinkUtilizationTooHigh     = errors.New("cash: kink utilization too high")
	ErrNoMiner                    = errors.New("cash: no miner set")
	ErrModulePaused               = errors.New("module paused")
)

// IncorrectNonceError rejects a request whose nonce differs from the stored one.
type IncorrectNonceError struct {
	Given    uint32
	Expected uint32
}

func (e IncorrectNonceError) Error() string {
	return fmt.Sprintf("cash: incorrect nonce (given %d, expected %d)", e.Given, e.Expected)
}

// NoticeMissingError reports a notice id without a stored notice.
type NoticeMissingError struct {
	Chain ChainID
	ID    NoticeID
}

func (e NoticeMissingError) Error() string {
	return fmt.Sprintf("cash: notice missing (%s, %s)", e.Chain, e.ID)
}

// Kinded errors for the crypto, oracle and request parser layers. The Kind
// string is stable and surfaces in failure events.
type (
	CryptoError struct{ Kind string }
	OracleError struct{ Kind string }
)

func (e CryptoError) Error() string { return "crypto: " + e.Kind }
func (e OracleError) Error() string { return "oracle: " + e.Kind }

// TrxRequestParseError reports a malformed transaction request.
type TrxRequestParseError struct {
	Kind   string
	Detail string
}

func (e TrxRequestParseError) Error() string {
	if e.Detail == "" {
		return "trx request: " + e.Kind
	}
	return fmt.Sprintf("trx request: %s (%s)", e.Kind, e.Detail)
}

var reasonNames = []struct {
	err  error
	name string
}{
	{ErrAssetNotSupported, "AssetNotSupported"},
	{ErrBadTicker, "BadTicker"},
	{ErrBadSymbol, "BadSymbol"},
	{ErrBadAsset, "BadAsset"},
	{ErrBadAccount, "BadAccount"},
	{ErrBadAddress, "BadAddress"},
	{ErrBadChainID, "BadChainId"},
	{ErrBadSignature, "BadSignature"},
	{ErrBadUnits, "BadUnits"},
	{ErrBadFactor, "BadFactor"},
	{ErrInvalidAPR, "InvalidAPR"},
	{ErrChainMismatch, "ChainMismatch"},
	{ErrSignatureAccountMismatch, "SignatureAccountMismatch"},
	{ErrInsufficientLiquidity, "InsufficientLiquidity"},
	{ErrSufficientLiquidity, "SufficientLiquidity"},
	{ErrInsufficientChainCash, "InsufficientChainCash"},
	{ErrNegativeChainCash, "NegativeChainCash"},
	{ErrInsufficientTotalFunds, "InsufficientTotalFunds"},
	{ErrTotalBorrowUnderflow, "TotalBorrowUnderflow"},
	{ErrRepayTooMuch, "RepayTooMuch"},
	{ErrMinTxValueNotMet, "MinTxValueNotMet"},
	{ErrMaxForNonCashAsset, "MaxForNonCashAsset"},
	{ErrInKindLiquidation, "InKindLiquidation"},
	{ErrInvalidLiquidation, "InvalidLiquidation"},
	{ErrSelfTransfer, "SelfTransfer"},
	{ErrSupplyCapExceeded, "SupplyCapExceeded"},
	{ErrNoPrice, "NoPrice"},
	{ErrNoticeHashMismatch, "NoticeHashMismatch"},
	{ErrNoticeAlreadySigned, "NoticeAlreadySigned"},
	{ErrSignatureMismatch, "SignatureMismatch"},
	{ErrUnknownValidator, "UnknownValidator"},
	{ErrNoticeHolds, "NoticeHolds"},
	{ErrChangeValidatorsError, "ChangeValidatorsError"},
	{ErrInvalidUTF8, "InvalidUTF8"},
	{ErrNotImplemented, "NotImplemented"},
	{ErrTimeTravelNotAllowed, "TimeTravelNotAllowed"},
	{ErrNotEnoughTimeToSyncBefore, "NotEnoughTimeToSyncBeforeNext"},
	{ErrNotEnoughTimeToSyncNext, "NotEnoughTimeToSyncBeforeNext"},
	{ErrInvalidCodeHash, "InvalidCodeHash"},
	{ErrAssetExtractionUnsupported, "AssetExtractionNotSupported"},
	{ErrEventAlreadyHandled, "EventAlreadyHandled"},
	{ErrUnknownEvent, "UnknownEvent"},
	{ErrKeyNotFound, "KeyNotFound"},
	{ErrModelRateOutOfBounds, "ModelRateOutOfBounds"},
	{ErrZeroAboveKink, "ZeroAboveKink"},
	{ErrKinkAboveFull, "KinkAboveFull"},
	{ErrKinkUtilizationTooHigh, "KinkUtilizationTooHigh"},
	{ErrNoMiner, "NoMiner"},
	{ErrModulePaused, "ModulePaused"},
}

var mathKinds = []struct {
	err  error
	kind string
}{
	{numerics.ErrOverflow, "Overflow"},
	{numerics.ErrUnderflow, "Underflow"},
	{numerics.ErrDivisionByZero, "DivisionByZero"},
	{numerics.ErrUnitMismatch, "UnitMismatch"},
	{numerics.ErrPriceNotUSD, "PriceNotUSD"},
	{numerics.ErrSignMismatch, "SignMismatch"},
	{numerics.ErrBadNominal, "BadNominal"},
}

// ReasonOf renders err as its stable reason name, e.g. "NoPrice",
// "IncorrectNonce(0, 1)" or "MathError(Overflow)". Unknown errors map to
// "Unknown".
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var nonce IncorrectNonceError
	if errors.As(err, &nonce) {
		return fmt.Sprintf("IncorrectNonce(%d, %d)", nonce.Given, nonce.Expected)
	}
	var missing NoticeMissingError
	if errors.As(err, &missing) {
		return fmt.Sprintf("NoticeMissing(%s, %s)", missing.Chain, missing.ID)
	}
	var cryptoErr CryptoError
	if errors.As(err, &cryptoErr) {
		return "CryptoError(" + cryptoErr.Kind + ")"
	}
	var oracleErr OracleError
	if errors.As(err, &oracleErr) {
		return "OracleError(" + oracleErr.Kind + ")"
	}
	var parseErr TrxRequestParseError
	if errors.As(err, &parseErr) {
		return "TrxRequestParseError(" + parseErr.Kind + ")"
	}
	for _, entry := range reasonNames {
		if errors.Is(err, entry.err) {
			return entry.name
		}
	}
	for _, entry := range mathKinds {
		if errors.Is(err, entry.err) {
			return "MathError(" + entry.kind + ")"
		}
	}
	return "Unknown"
}
