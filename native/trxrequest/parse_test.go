package trxrequest

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"cashchain/core/types"
)

const (
	alanHex = "0x0101010101010101010101010101010101010101"
	bertHex = "0x0202020202020202020202020202020202020202020202020202020202020202"
	ethHex  = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
)

var (
	alan     = types.EthAccount([20]byte(bytes.Repeat([]byte{1}, 20)))
	ethAsset = AssetRef{Asset: types.EthAsset([20]byte(bytes.Repeat([]byte{0xee}, 20)))}
	cashRef  = AssetRef{Cash: true}
)

func amount(v int64) MaxAmount { return MaxAmount{Amount: big.NewInt(v)} }

func TestLex(t *testing.T) {
	kinds := func(ts []Token) []TokenKind {
		out := make([]TokenKind, len(ts))
		for i, tok := range ts {
			out[i] = tok.Kind
		}
		return out
	}

	require.Equal(t, []TokenKind{TokenLeftDelim, TokenIdentifier, TokenError}, kinds(Lex("(hi!")))

	toks := Lex("(touché 50)")
	require.Equal(t, []TokenKind{TokenLeftDelim, TokenIdentifier, TokenError, TokenInteger, TokenRightDelim}, kinds(toks))
	require.Equal(t, "touch", toks[1].Text)
	require.Equal(t, "é", toks[2].Text)

	toks = Lex("(my-fun 55 0x0100 eth:0x20)")
	require.Equal(t, []TokenKind{TokenLeftDelim, TokenIdentifier, TokenInteger, TokenHex, TokenPair, TokenRightDelim}, kinds(toks))
	require.Equal(t, "my-fun", toks[1].Text)
	require.Equal(t, []byte{1, 0}, toks[3].Bytes)
	require.Equal(t, "eth:0x20", toks[4].Text)

	require.Nil(t, Lex("0x123")[0].Bytes)
}

func TestParse(t *testing.T) {
	ok := []struct {
		name  string
		input string
		want  Request
	}{
		{"extract", "(Extract 3 Eth:" + ethHex + " Eth:" + alanHex + ")",
			Request{Verb: VerbExtract, Amount: amount(3), Asset: ethAsset, Account: alan}},
		{"extract lower case", "(extract 3 eth:" + ethHex + " eth:" + alanHex + ")",
			Request{Verb: VerbExtract, Amount: amount(3), Asset: ethAsset, Account: alan}},
		{"extract cash caps", "(Extract 3 CASH Eth:" + alanHex + ")",
			Request{Verb: VerbExtract, Amount: amount(3), Asset: cashRef, Account: alan}},
		{"extract cash camel", "(Extract 3 Cash Eth:" + alanHex + ")",
			Request{Verb: VerbExtract, Amount: amount(3), Asset: cashRef, Account: alan}},
		{"extract hex", "(Extract 0x0100 Eth:" + ethHex + " Eth:" + alanHex + ")",
			Request{Verb: VerbExtract, Amount: amount(256), Asset: ethAsset, Account: alan}},
		{"extract max", "(Extract Max Cash Eth:" + alanHex + ")",
			Request{Verb: VerbExtract, Amount: MaxAmount{Max: true}, Asset: cashRef, Account: alan}},
		{"extract max caps", "(Extract MAX Cash Eth:" + alanHex + ")",
			Request{Verb: VerbExtract, Amount: MaxAmount{Max: true}, Asset: cashRef, Account: alan}},
		{"transfer", "(Transfer 3 Eth:" + ethHex + " Eth:" + alanHex + ")",
			Request{Verb: VerbTransfer, Amount: amount(3), Asset: ethAsset, Account: alan}},
		{"transfer max", "(Transfer Max Eth:" + ethHex + " Eth:" + alanHex + ")",
			Request{Verb: VerbTransfer, Amount: MaxAmount{Max: true}, Asset: ethAsset, Account: alan}},
		{"liquidate", "(Liquidate 55 Eth:" + ethHex + " Cash Eth:" + alanHex + ")",
			Request{Verb: VerbLiquidate, Amount: amount(55), Asset: ethAsset, Collateral: cashRef, Account: alan}},
		{"liquidate max", "(Liquidate Max Cash Eth:" + ethHex + " Eth:" + alanHex + ")",
			Request{Verb: VerbLiquidate, Amount: MaxAmount{Max: true}, Asset: cashRef, Collateral: ethAsset, Account: alan}},
	}
	for _, tc := range ok {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.want.Verb, got.Verb)
			require.Equal(t, tc.want.Amount.Max, got.Amount.Max)
			if !tc.want.Amount.Max {
				require.Equal(t, tc.want.Amount.Amount.String(), got.Amount.Amount.String())
			}
			require.Equal(t, tc.want.Asset, got.Asset)
			require.Equal(t, tc.want.Collateral, got.Collateral)
			require.Equal(t, tc.want.Account, got.Account)
		})
	}
}

func TestParseGateAccount(t *testing.T) {
	got, err := Parse("(Transfer 3 Eth:" + ethHex + " Gate:" + bertHex + ")")
	require.NoError(t, err)
	require.Equal(t, types.ChainGate, got.Account.Chain)
	require.Equal(t, bytes.Repeat([]byte{2}, 32), got.Account.Bytes())
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  types.TrxRequestParseError
	}{
		{"lex error", "(fricassée)", types.TrxRequestParseError{Kind: KindLexError, Detail: "é"}},
		{"invalid expression", "hello", types.TrxRequestParseError{Kind: KindInvalidExpression}},
		{"unknown function", "(MyFun 3 Eth:0x55)", types.TrxRequestParseError{Kind: KindUnknownFunction, Detail: "MyFun"}},
		{"arity", "(Extract 3 Cash)", types.TrxRequestParseError{Kind: KindInvalidArgs, Detail: "Extract 3 2"}},
		{"gate asset", "(Transfer 3 Gate:" + ethHex + " Eth:" + alanHex + ")", types.TrxRequestParseError{Kind: KindInvalidAsset}},
		{"gate account tiny", "(Transfer 3 Eth:" + ethHex + " Gate:0)", types.TrxRequestParseError{Kind: KindInvalidChainAccount, Detail: "GATE"}},
		{"gate account short", "(Transfer 3 Eth:" + ethHex + " Gate:" + alanHex + ")", types.TrxRequestParseError{Kind: KindInvalidChainAccount, Detail: "GATE"}},
		{"no 0x", "(Extract 3 Eth:xx" + ethHex[2:] + " Eth:" + alanHex + ")", types.TrxRequestParseError{Kind: KindInvalidChainAccount, Detail: "ETH"}},
		{"amount word", "(Extract hi Eth:" + ethHex + " Eth:" + alanHex + ")", types.TrxRequestParseError{Kind: KindInvalidAmount}},
		{"amount too large", "(Extract 340282366920938463463374607431768211456 Eth:" + ethHex + " Eth:" + alanHex + ")", types.TrxRequestParseError{Kind: KindInvalidAmount}},
		{"hex too large", "(Extract 0xffffffffffffffffffffffffffffffff00 Eth:" + ethHex + " Eth:" + alanHex + ")", types.TrxRequestParseError{Kind: KindInvalidAmount}},
		{"long asset", "(Extract 5 Eth:" + ethHex + "ff Eth:" + alanHex + ")", types.TrxRequestParseError{Kind: KindInvalidChainAccount, Detail: "ETH"}},
		{"long recipient", "(Extract 5 Eth:" + ethHex + " Eth:" + alanHex + "ff)", types.TrxRequestParseError{Kind: KindInvalidChainAccount, Detail: "ETH"}},
		{"unknown chain", "(Extract 5 Sol:" + ethHex + " Eth:" + alanHex + ")", types.TrxRequestParseError{Kind: KindInvalidChain, Detail: "Sol"}},
		{"account not pair", "(Extract 5 Cash 12)", types.TrxRequestParseError{Kind: KindInvalidAccount}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			require.Equal(t, tc.want, err)
		})
	}
}

func TestParseAmountBounds(t *testing.T) {
	got, err := Parse("(Extract 340282366920938463463374607431768211455 Cash Eth:" + alanHex + ")")
	require.NoError(t, err)
	require.Equal(t, "340282366920938463463374607431768211455", got.Amount.Amount.String())

	got, err = Parse("(Extract 0xffffffffffffffffffffffffffffffff Cash Eth:" + alanHex + ")")
	require.NoError(t, err)
	require.Equal(t, "340282366920938463463374607431768211455", got.Amount.Amount.String())
}
