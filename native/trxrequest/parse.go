// Package trxrequest parses the textual transaction requests users sign,
// e.g. "(Extract 3 Eth:0xee.. Eth:0x01..)".
package trxrequest

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"cashchain/core/types"
	"cashchain/crypto"
)

// Parse error kinds surfaced through types.TrxRequestParseError.
const (
	KindNotImplemented      = "NotImplemented"
	KindLexError            = "LexError"
	KindInvalidAmount       = "InvalidAmount"
	KindInvalidAccount      = "InvalidAccount"
	KindInvalidAsset        = "InvalidAsset"
	KindInvalidArgs         = "InvalidArgs"
	KindUnknownFunction     = "UnknownFunction"
	KindInvalidExpression   = "InvalidExpression"
	KindInvalidChain        = "InvalidChain"
	KindInvalidChainAccount = "InvalidChainAccount"
)

// Verb names the requested action.
type Verb uint8

const (
	VerbExtract Verb = iota + 1
	VerbTransfer
	VerbLiquidate
)

func (v Verb) String() string {
	switch v {
	case VerbExtract:
		return "Extract"
	case VerbTransfer:
		return "Transfer"
	case VerbLiquidate:
		return "Liquidate"
	}
	return "Unknown"
}

// MaxAmount is either an explicit minor-unit amount or the "max" keyword.
type MaxAmount struct {
	Max    bool
	Amount *big.Int
}

// AssetRef is CASH or a chain asset.
type AssetRef struct {
	Cash  bool
	Asset types.ChainAsset
}

func (a AssetRef) String() string {
	if a.Cash {
		return "CASH"
	}
	return a.Asset.String()
}

// Request is a parsed transaction request. Collateral is only set for
// liquidations, where Asset is the borrowed asset and Account the borrower.
type Request struct {
	Verb       Verb
	Amount     MaxAmount
	Asset      AssetRef
	Collateral AssetRef
	Account    types.ChainAccount
}

func parseErr(kind, detail string) error {
	return types.TrxRequestParseError{Kind: kind, Detail: detail}
}

var u128Max = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

func parseAmount(t Token) (*big.Int, error) {
	switch t.Kind {
	case TokenInteger:
		b, ok := new(big.Int).SetString(t.Text, 10)
		if !ok {
			return nil, parseErr(KindInvalidAmount, "")
		}
		v, overflow := uint256.FromBig(b)
		if overflow || v.Gt(u128Max) {
			return nil, parseErr(KindInvalidAmount, "")
		}
		return v.ToBig(), nil
	case TokenHex:
		if t.Bytes == nil || len(t.Bytes) > 16 {
			return nil, parseErr(KindInvalidAmount, "")
		}
		return new(uint256.Int).SetBytes(t.Bytes).ToBig(), nil
	}
	return nil, parseErr(KindInvalidAmount, "")
}

func isKeyword(t Token, word string) bool {
	return t.Kind == TokenIdentifier && strings.EqualFold(t.Text, word)
}

func parseMaxAmount(t Token) (MaxAmount, error) {
	if isKeyword(t, "max") {
		return MaxAmount{Max: true}, nil
	}
	v, err := parseAmount(t)
	if err != nil {
		return MaxAmount{}, err
	}
	return MaxAmount{Amount: v}, nil
}

func splitPair(t Token) (types.ChainID, string, error) {
	label, addr, _ := strings.Cut(t.Text, ":")
	chain, err := types.ParseChainID(label)
	if err != nil {
		return 0, "", parseErr(KindInvalidChain, label)
	}
	return chain, addr, nil
}

func decodeAddress(chain types.ChainID, addr string) ([]byte, error) {
	raw, err := crypto.EthDecodeHex(addr)
	if err != nil || len(raw) != chain.AddressLength() {
		return nil, parseErr(KindInvalidChainAccount, chain.String())
	}
	return raw, nil
}

func parseAccount(t Token) (types.ChainAccount, error) {
	if t.Kind != TokenPair {
		return types.ChainAccount{}, parseErr(KindInvalidAccount, "")
	}
	chain, addr, err := splitPair(t)
	if err != nil {
		return types.ChainAccount{}, err
	}
	raw, err := decodeAddress(chain, addr)
	if err != nil {
		return types.ChainAccount{}, err
	}
	return types.NewChainAccount(chain, raw)
}

func parseAsset(t Token) (AssetRef, error) {
	if isKeyword(t, "cash") {
		return AssetRef{Cash: true}, nil
	}
	if t.Kind != TokenPair {
		return AssetRef{}, parseErr(KindInvalidAsset, "")
	}
	chain, addr, err := splitPair(t)
	if err != nil {
		return AssetRef{}, err
	}
	if chain == types.ChainGate {
		return AssetRef{}, parseErr(KindInvalidAsset, "")
	}
	raw, err := decodeAddress(chain, addr)
	if err != nil {
		return AssetRef{}, err
	}
	asset, err := types.NewChainAsset(chain, raw)
	if err != nil {
		return AssetRef{}, parseErr(KindInvalidAsset, "")
	}
	return AssetRef{Asset: asset}, nil
}

func checkArity(verb Verb, want int, args []Token) error {
	if len(args) != want {
		return parseErr(KindInvalidArgs, fmt.Sprintf("%s %d %d", verb, want, len(args)))
	}
	return nil
}

func parseMove(verb Verb, args []Token) (Request, error) {
	if err := checkArity(verb, 3, args); err != nil {
		return Request{}, err
	}
	amount, err := parseMaxAmount(args[0])
	if err != nil {
		return Request{}, err
	}
	asset, err := parseAsset(args[1])
	if err != nil {
		return Request{}, err
	}
	account, err := parseAccount(args[2])
	if err != nil {
		return Request{}, err
	}
	return Request{Verb: verb, Amount: amount, Asset: asset, Account: account}, nil
}

func parseLiquidate(args []Token) (Request, error) {
	if err := checkArity(VerbLiquidate, 4, args); err != nil {
		return Request{}, err
	}
	amount, err := parseMaxAmount(args[0])
	if err != nil {
		return Request{}, err
	}
	borrowed, err := parseAsset(args[1])
	if err != nil {
		return Request{}, err
	}
	collateral, err := parseAsset(args[2])
	if err != nil {
		return Request{}, err
	}
	borrower, err := parseAccount(args[3])
	if err != nil {
		return Request{}, err
	}
	return Request{Verb: VerbLiquidate, Amount: amount, Asset: borrowed, Collateral: collateral, Account: borrower}, nil
}

// Parse lexes and parses a request. Verbs and the max and cash keywords
// are case-insensitive.
func Parse(request string) (Request, error) {
	tokens := Lex(request)
	for _, t := range tokens {
		if t.Kind == TokenError {
			return Request{}, parseErr(KindLexError, t.Text)
		}
	}
	n := len(tokens)
	if n < 2 || tokens[0].Kind != TokenLeftDelim || tokens[n-1].Kind != TokenRightDelim || tokens[1].Kind != TokenIdentifier {
		return Request{}, parseErr(KindInvalidExpression, "")
	}
	args := tokens[2 : n-1]
	switch fn := tokens[1].Text; strings.ToLower(fn) {
	case "extract":
		return parseMove(VerbExtract, args)
	case "transfer":
		return parseMove(VerbTransfer, args)
	case "liquidate":
		return parseLiquidate(args)
	default:
		return Request{}, parseErr(KindUnknownFunction, fn)
	}
}
