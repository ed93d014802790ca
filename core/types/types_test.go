package types

import (
	"errors"
	"math/big"
	"testing"

	"cashchain/core/numerics"
)

func TestQuantityPriceConversions(t *testing.T) {
	eth := mustUnits("ETH", 18)
	q := MustQuantity(eth, "2")
	price, err := PriceFromNominal(eth.Ticker, "1500.5")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	usd, err := q.MulPrice(price)
	if err != nil {
		t.Fatalf("mul price: %v", err)
	}
	if usd.Units != USD || usd.Value.Cmp(numerics.MustParseNominal("3001", USDDecimals)) != 0 {
		t.Fatalf("unexpected usd value %s", usd)
	}
	back, err := usd.DivPrice(price, eth)
	if err != nil {
		t.Fatalf("div price: %v", err)
	}
	if back.Cmp(q) != 0 {
		t.Fatalf("round trip mismatch: %s vs %s", back, q)
	}
	if _, err := q.DivPrice(price, eth); !errors.Is(err, numerics.ErrPriceNotUSD) {
		t.Fatalf("expected price not usd, got %v", err)
	}
	uni := mustUnits("UNI", 18)
	if _, err := MustQuantity(uni, "1").MulPrice(price); !errors.Is(err, numerics.ErrUnitMismatch) {
		t.Fatalf("expected unit mismatch, got %v", err)
	}
}

func TestQuantitySubUnderflows(t *testing.T) {
	a := MustQuantity(CASH, "1")
	b := MustQuantity(CASH, "2")
	if _, err := a.Sub(b); !errors.Is(err, numerics.ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestCashIndexRoundTrip(t *testing.T) {
	index, err := CashIndexFromNominal("0.987654321")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	for _, nominal := range []string{"0.000001", "1", "12345.678901", "999999999"} {
		q := MustQuantity(CASH, nominal)
		principal, err := index.CashPrincipalAmount(q)
		if err != nil {
			t.Fatalf("principal: %v", err)
		}
		back, err := index.CashAmount(principal)
		if err != nil {
			t.Fatalf("amount: %v", err)
		}
		diff := new(big.Int).Sub(q.Int(), back.Int())
		if diff.Sign() < 0 || diff.Cmp(big.NewInt(1)) > 0 {
			t.Fatalf("%s: round trip differs by %s", nominal, diff)
		}
	}
}

func TestCashIndexIncrement(t *testing.T) {
	index := CashIndexOne().Increment(MustFactor("0.5"))
	if index.String() != "1.5" {
		t.Fatalf("unexpected index %s", index)
	}
	index = index.Increment(MustFactor("0.1"))
	if index.String() != "1.65" {
		t.Fatalf("unexpected index %s", index)
	}
}

func TestAPRCompound(t *testing.T) {
	apr, err := APRFromNominal("0.1")
	if err != nil {
		t.Fatalf("apr: %v", err)
	}
	if apr != 1000 {
		t.Fatalf("unexpected apr %d", apr)
	}
	got := apr.Compound(MillisecondsPerYear)
	if got.String() != "0.1" {
		t.Fatalf("one year at 10%% should compound to 0.1, got %s", got)
	}
	if !APR(0).Compound(1000).IsZero() {
		t.Fatalf("zero rate should not compound")
	}
}

func TestFactorFromFraction(t *testing.T) {
	f, err := FactorFromFraction(big.NewInt(1), big.NewInt(3))
	if err != nil {
		t.Fatalf("fraction: %v", err)
	}
	if f.String() != "0.333333333333333333" {
		t.Fatalf("unexpected factor %s", f)
	}
	if _, err := FactorFromFraction(big.NewInt(1), big.NewInt(0)); !errors.Is(err, numerics.ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
}

func TestAssetIndexGrowth(t *testing.T) {
	start := AssetIndexOne()
	later := start.Increment(MustFactor("0.02"))
	growth, err := later.GrowthSince(start)
	if err != nil {
		t.Fatalf("growth: %v", err)
	}
	if growth.String() != "0.02" {
		t.Fatalf("unexpected growth %s", growth)
	}
	none, err := start.GrowthSince(later)
	if err != nil || !none.IsZero() {
		t.Fatalf("decreasing index should yield zero growth, got %s %v", none, err)
	}
}

func TestChainAccountParsing(t *testing.T) {
	acc, err := ParseChainAccount("eth:0x0101010101010101010101010101010101010101")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if acc.Chain != ChainEth || acc.String() != "ETH:0x0101010101010101010101010101010101010101" {
		t.Fatalf("unexpected account %s", acc)
	}
	if _, err := ParseChainAccount("ETH:0x01"); !errors.Is(err, ErrBadAccount) {
		t.Fatalf("expected bad account, got %v", err)
	}
	if _, err := ParseChainAccount("SOL:0x0101010101010101010101010101010101010101"); !errors.Is(err, ErrBadChainID) {
		t.Fatalf("expected bad chain, got %v", err)
	}

	var raw [32]byte
	for i := range raw {
		raw[i] = byte(i)
	}
	gate, err := NewChainAccount(ChainGate, raw[:])
	if err != nil {
		t.Fatalf("gate account: %v", err)
	}
	text, err := gate.GateBech32()
	if err != nil {
		t.Fatalf("bech32: %v", err)
	}
	parsed, err := ParseChainAccount(text)
	if err != nil {
		t.Fatalf("parse bech32 %q: %v", text, err)
	}
	if parsed != gate {
		t.Fatalf("bech32 round trip mismatch")
	}
}

func TestChainAssetRejectsGate(t *testing.T) {
	if _, err := ParseChainAsset("GATE:0x0101010101010101010101010101010101010101"); !errors.Is(err, ErrBadAsset) {
		t.Fatalf("expected bad asset, got %v", err)
	}
}

func TestNoticeIDOrdering(t *testing.T) {
	id := NoticeID{}
	next := id.Seq()
	if next != (NoticeID{Era: 0, Index: 1}) || !id.Less(next) {
		t.Fatalf("unexpected seq %s", next)
	}
	era := next.SeqEra()
	if era != (NoticeID{Era: 1, Index: 0}) || !next.Less(era) {
		t.Fatalf("unexpected era %s", era)
	}
	parsed, err := ParseNoticeID("3.7")
	if err != nil || parsed != (NoticeID{Era: 3, Index: 7}) {
		t.Fatalf("parse: %v %v", parsed, err)
	}
}

func TestInterestRateModelParameters(t *testing.T) {
	if err := DefaultInterestRateModel().CheckParameters(); err != nil {
		t.Fatalf("default model: %v", err)
	}
	cases := []struct {
		model InterestRateModel
		want  error
	}{
		{InterestRateModel{ZeroRate: 4000, KinkRate: 4000, KinkUtil: MustFactor("0.5"), FullRate: 4000}, ErrModelRateOutOfBounds},
		{InterestRateModel{ZeroRate: 600, KinkRate: 500, KinkUtil: MustFactor("0.5"), FullRate: 2000}, ErrZeroAboveKink},
		{InterestRateModel{ZeroRate: 0, KinkRate: 2500, KinkUtil: MustFactor("0.5"), FullRate: 2000}, ErrKinkAboveFull},
		{InterestRateModel{ZeroRate: 0, KinkRate: 500, KinkUtil: MustFactor("1"), FullRate: 2000}, ErrKinkUtilizationTooHigh},
	}
	for i, tc := range cases {
		if err := tc.model.CheckParameters(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: want %v got %v", i, tc.want, err)
		}
	}
}

func TestReasonOf(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{IncorrectNonceError{Given: 0, Expected: 1}, "IncorrectNonce(0, 1)"},
		{ErrNoPrice, "NoPrice"},
		{numerics.ErrOverflow, "MathError(Overflow)"},
		{CryptoError{Kind: "RecoverError"}, "CryptoError(RecoverError)"},
		{OracleError{Kind: "StalePrice"}, "OracleError(StalePrice)"},
		{errors.New("boom"), "Unknown"},
	}
	for _, tc := range cases {
		if got := ReasonOf(tc.err); got != tc.want {
			t.Fatalf("ReasonOf(%v) = %q want %q", tc.err, got, tc.want)
		}
	}
}

func TestEventCloneIsolatesAttributes(t *testing.T) {
	ev := Event{Type: "cash.locked", Attributes: map[string]string{"amount": "1"}}
	cp := ev.Clone()
	cp.Attributes["amount"] = "2"
	if ev.Attributes["amount"] != "1" || cp.Type != ev.Type {
		t.Fatalf("clone shares state: %+v %+v", ev, cp)
	}
}
