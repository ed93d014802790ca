package rpc

import (
	"math/big"

	"cashchain/core"
	"cashchain/core/numerics"
	"cashchain/core/state"
	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/cash"
)

// BalanceResult is a signed amount with its units.
type BalanceResult struct {
	Ticker   string `json:"ticker"`
	Decimals uint8  `json:"decimals"`
	Value    string `json:"value"`
	Nominal  string `json:"nominal"`
}

type RateModelResult struct {
	ZeroRate        string `json:"zeroRate"`
	KinkRate        string `json:"kinkRate"`
	KinkUtilization string `json:"kinkUtilization"`
	FullRate        string `json:"fullRate"`
}

type AssetResult struct {
	Asset           string          `json:"asset"`
	Decimals        uint8           `json:"decimals"`
	Ticker          string          `json:"ticker"`
	Symbol          string          `json:"symbol"`
	LiquidityFactor string          `json:"liquidityFactor"`
	MinerShares     string          `json:"minerShares"`
	SupplyCap       string          `json:"supplyCap,omitempty"`
	RateModel       RateModelResult `json:"rateModel"`
}

type PositionResult struct {
	Asset   string        `json:"asset"`
	Balance BalanceResult `json:"balance"`
}

type PortfolioResult struct {
	Account   string           `json:"account"`
	Principal string           `json:"principal"`
	Cash      BalanceResult    `json:"cash"`
	Positions []PositionResult `json:"positions"`
}

type RatesResult struct {
	Borrow string `json:"borrow"`
	Supply string `json:"supply"`
}

type CashResult struct {
	Index          string `json:"index"`
	Yield          string `json:"yield"`
	NextYield      string `json:"nextYield,omitempty"`
	NextYieldStart uint64 `json:"nextYieldStart,omitempty"`
	TotalPrincipal string `json:"totalPrincipal"`
	LastBlock      uint64 `json:"lastBlock"`
}

type NoticeResult struct {
	Chain      string   `json:"chain"`
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Status     string   `json:"status"`
	Hash       string   `json:"hash"`
	Encoded    string   `json:"encoded"`
	Signers    []string `json:"signers"`
	Signatures []string `json:"signatures"`
}

type EventStatusResult struct {
	Log     string   `json:"log"`
	Kind    string   `json:"kind"`
	Status  string   `json:"status"`
	Reason  string   `json:"reason,omitempty"`
	Signers []string `json:"signers"`
}

type ValidatorResult struct {
	SubstrateID string `json:"substrateId"`
	EthAddress  string `json:"ethAddress"`
}

type ParamsResult struct {
	TransferFee          string `json:"transferFee"`
	MinTxValue           string `json:"minTxValue"`
	LiquidationIncentive string `json:"liquidationIncentive"`
	NoticeThreshold      uint32 `json:"noticeThreshold"`
	EventThreshold       uint32 `json:"eventThreshold"`
	MinNextSyncTime      uint64 `json:"minNextSyncTime"`
}

func intString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func balanceResult(b types.Balance) BalanceResult {
	return BalanceResult{
		Ticker:   b.Units.Ticker.String(),
		Decimals: b.Units.Decimals,
		Value:    intString(b.Value),
		Nominal:  numerics.FormatNominal(b.Int(), b.Units.Decimals),
	}
}

func rateModelResult(m types.InterestRateModel) RateModelResult {
	return RateModelResult{
		ZeroRate:        m.ZeroRate.String(),
		KinkRate:        m.KinkRate.String(),
		KinkUtilization: m.KinkUtil.String(),
		FullRate:        m.FullRate.String(),
	}
}

func assetResult(info types.AssetInfo) AssetResult {
	out := AssetResult{
		Asset:           info.Asset.String(),
		Decimals:        info.Decimals,
		Ticker:          info.Ticker.String(),
		Symbol:          info.Symbol,
		LiquidityFactor: info.LiquidityFactor.String(),
		MinerShares:     info.MinerShares.String(),
		RateModel:       rateModelResult(info.RateModel),
	}
	if info.SupplyCap != nil {
		out.SupplyCap = info.SupplyCap.String()
	}
	return out
}

func portfolioResult(p cash.Portfolio) PortfolioResult {
	out := PortfolioResult{
		Account:   p.Account.String(),
		Principal: p.Principal.String(),
		Cash:      balanceResult(p.Cash),
		Positions: make([]PositionResult, 0, len(p.Positions)),
	}
	for _, pos := range p.Positions {
		out.Positions = append(out.Positions, PositionResult{Asset: pos.Asset.Asset.String(), Balance: balanceResult(pos.Balance)})
	}
	return out
}

func cashResult(v core.CashView) CashResult {
	out := CashResult{
		Index:          v.Index.String(),
		Yield:          v.Yield.String(),
		TotalPrincipal: v.TotalPrincipal.String(),
		LastBlock:      v.LastBlock,
	}
	if v.Next != nil {
		out.NextYield = v.Next.Yield.String()
		out.NextYieldStart = v.Next.Start
	}
	return out
}

func noticeResult(v core.NoticeView) NoticeResult {
	out := NoticeResult{
		Chain:      v.Notice.Chain.String(),
		ID:         v.Notice.ID.String(),
		Kind:       v.Notice.Kind.String(),
		Status:     v.State.Status.String(),
		Hash:       crypto.EthEncodeHex(v.Hash[:]),
		Encoded:    crypto.EthEncodeHex(v.Encoded),
		Signers:    make([]string, 0, len(v.State.Signatures.Signers)),
		Signatures: make([]string, 0, len(v.State.Signatures.Sigs)),
	}
	for _, s := range v.State.Signatures.Signers {
		out.Signers = append(out.Signers, crypto.EthEncodeHex(s[:]))
	}
	for _, s := range v.State.Signatures.Sigs {
		out.Signatures = append(out.Signatures, crypto.EthEncodeHex(s[:]))
	}
	return out
}

func eventStatusResult(id types.ChainLogID, st types.ChainEventState) EventStatusResult {
	out := EventStatusResult{
		Log:     id.String(),
		Kind:    st.Event.Kind.String(),
		Status:  st.Status.String(),
		Reason:  st.Reason,
		Signers: make([]string, 0, len(st.Signers)),
	}
	for _, s := range st.Signers {
		out.Signers = append(out.Signers, crypto.EthEncodeHex(s[:]))
	}
	return out
}

func validatorResult(v types.ValidatorKeys) ValidatorResult {
	return ValidatorResult{SubstrateID: crypto.EthEncodeHex(v.SubstrateID[:]), EthAddress: crypto.EthEncodeHex(v.EthAddress[:])}
}

func paramsResult(p state.Params) ParamsResult {
	return ParamsResult{
		TransferFee:          numerics.FormatNominal(p.TransferFee, types.CashDecimals),
		MinTxValue:           numerics.FormatNominal(p.MinTxValue, types.USDDecimals),
		LiquidationIncentive: p.LiquidationIncentive.String(),
		NoticeThreshold:      p.NoticeThreshold,
		EventThreshold:       p.EventThreshold,
		MinNextSyncTime:      p.MinNextSyncTime,
	}
}
