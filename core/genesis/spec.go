// core/genesis/spec.go
package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"cashchain/core/numerics"
	"cashchain/core/state"
	"cashchain/core/types"
	"cashchain/crypto"
)

type GenesisSpec struct {
	GenesisTime      string            `json:"genesisTime"`
	Validators       []ValidatorSpec   `json:"validators"`
	MinValidators    int               `json:"minValidators,omitempty"`
	Reporters        []string          `json:"reporters"`
	Assets           []AssetSpec       `json:"assets"`
	InitialYield     string            `json:"initialYield"`
	InitialCashIndex string            `json:"initialCashIndex,omitempty"`
	ChainCash        map[string]string `json:"chainCash,omitempty"` // chain -> CASH
	Starports        map[string]string `json:"starports,omitempty"` // chain -> address
	Params           *ParamsSpec       `json:"params,omitempty"`

	genesisTimestamp time.Time
	validators       []types.ValidatorKeys
	reporters        [][20]byte
	assets           []types.AssetInfo
	yield            types.APR
	cashIndex        types.CashIndex
	chainCash        map[types.ChainID]types.CashPrincipalAmount
	starports        map[types.ChainID][20]byte
	params           state.Params
}

type ValidatorSpec struct {
	SubstrateID string `json:"substrateId"`
	EthAddress  string `json:"ethAddress"`
}

type AssetSpec struct {
	Asset           string         `json:"asset"` // ETH:0x..
	Decimals        uint8          `json:"decimals"`
	Ticker          string         `json:"ticker"`
	Symbol          string         `json:"symbol"`
	LiquidityFactor string         `json:"liquidityFactor"`
	MinerShares     string         `json:"minerShares,omitempty"`
	SupplyCap       string         `json:"supplyCap,omitempty"` // nominal units
	RateModel       *RateModelSpec `json:"rateModel,omitempty"`
}

type RateModelSpec struct {
	ZeroRate        string `json:"zeroRate"`
	KinkRate        string `json:"kinkRate"`
	KinkUtilization string `json:"kinkUtilization"`
	FullRate        string `json:"fullRate"`
}

type ParamsSpec struct {
	TransferFee          string `json:"transferFee,omitempty"`          // CASH
	MinTxValue           string `json:"minTxValue,omitempty"`           // USD
	LiquidationIncentive string `json:"liquidationIncentive,omitempty"` // factor
	NoticeThreshold      uint32 `json:"noticeThreshold,omitempty"`
	EventThreshold       uint32 `json:"eventThreshold,omitempty"`
	MinNextSyncTime      string `json:"minNextSyncTime,omitempty"` // Go duration
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a JSON genesis document.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// Starport returns the starport contract address configured for chain.
func (s *GenesisSpec) Starport(chain types.ChainID) ([20]byte, bool) {
	addr, ok := s.starports[chain]
	return addr, ok
}

// LedgerParams returns the validated ledger parameters.
func (s *GenesisSpec) LedgerParams() state.Params { return s.params }

func (s *GenesisSpec) validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime

	minValidators := s.MinValidators
	if minValidators <= 0 {
		minValidators = 1
	}
	if len(s.Validators) < minValidators {
		return fmt.Errorf("at least %d validators required, got %d", minValidators, len(s.Validators))
	}
	s.validators = make([]types.ValidatorKeys, 0, len(s.Validators))
	seenValidators := make(map[[32]byte]struct{}, len(s.Validators))
	for i := range s.Validators {
		keys, err := s.Validators[i].Keys()
		if err != nil {
			return fmt.Errorf("validator[%d]: %w", i, err)
		}
		if _, dup := seenValidators[keys.SubstrateID]; dup {
			return fmt.Errorf("validator[%d]: duplicate substrateId", i)
		}
		seenValidators[keys.SubstrateID] = struct{}{}
		s.validators = append(s.validators, keys)
	}

	s.reporters = make([][20]byte, 0, len(s.Reporters))
	for i, r := range s.Reporters {
		addr, err := parseEthAddress(r)
		if err != nil {
			return fmt.Errorf("reporter[%d]: %w", i, err)
		}
		s.reporters = append(s.reporters, addr)
	}

	s.assets = make([]types.AssetInfo, 0, len(s.Assets))
	seenAssets := make(map[types.ChainAsset]struct{}, len(s.Assets))
	seenTickers := make(map[types.Ticker]struct{}, len(s.Assets))
	for i := range s.Assets {
		info, err := s.Assets[i].Info()
		if err != nil {
			return fmt.Errorf("asset[%d]: %w", i, err)
		}
		if _, dup := seenAssets[info.Asset]; dup {
			return fmt.Errorf("asset[%d]: duplicate asset %s", i, s.Assets[i].Asset)
		}
		if _, dup := seenTickers[info.Ticker]; dup {
			return fmt.Errorf("asset[%d]: duplicate ticker %s", i, info.Ticker)
		}
		seenAssets[info.Asset] = struct{}{}
		seenTickers[info.Ticker] = struct{}{}
		s.assets = append(s.assets, info)
	}

	s.yield, err = parseAPR(s.InitialYield)
	if err != nil {
		return fmt.Errorf("initialYield: %w", err)
	}
	s.cashIndex = types.CashIndexOne()
	if strings.TrimSpace(s.InitialCashIndex) != "" {
		if s.cashIndex, err = types.CashIndexFromNominal(s.InitialCashIndex); err != nil {
			return fmt.Errorf("initialCashIndex: %w", err)
		}
	}

	s.chainCash = make(map[types.ChainID]types.CashPrincipalAmount, len(s.ChainCash))
	for name, value := range s.ChainCash {
		chain, err := externalChain(name)
		if err != nil {
			return fmt.Errorf("chainCash: %w", err)
		}
		amount, err := parseNonNegative(value, types.CashDecimals)
		if err != nil {
			return fmt.Errorf("chainCash[%s]: %w", name, err)
		}
		principal, err := s.cashIndex.CashPrincipalAmount(types.Quantity{Units: types.CASH, Value: amount})
		if err != nil {
			return fmt.Errorf("chainCash[%s]: %w", name, err)
		}
		s.chainCash[chain] = principal
	}

	s.starports = make(map[types.ChainID][20]byte, len(s.Starports))
	for name, value := range s.Starports {
		chain, err := externalChain(name)
		if err != nil {
			return fmt.Errorf("starports: %w", err)
		}
		addr, err := parseEthAddress(value)
		if err != nil {
			return fmt.Errorf("starports[%s]: %w", name, err)
		}
		s.starports[chain] = addr
	}

	s.params, err = s.Params.params()
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	return nil
}

// Keys parses the validator's identifiers.
func (v ValidatorSpec) Keys() (types.ValidatorKeys, error) {
	var keys types.ValidatorKeys
	raw, err := crypto.EthDecodeHex(strings.TrimSpace(v.SubstrateID))
	if err != nil || len(raw) != len(keys.SubstrateID) {
		return keys, fmt.Errorf("invalid substrateId %q", v.SubstrateID)
	}
	copy(keys.SubstrateID[:], raw)
	if keys.EthAddress, err = parseEthAddress(v.EthAddress); err != nil {
		return keys, err
	}
	return keys, nil
}

// Info parses and validates the asset definition.
func (a AssetSpec) Info() (types.AssetInfo, error) {
	asset, err := types.ParseChainAsset(strings.TrimSpace(a.Asset))
	if err != nil {
		return types.AssetInfo{}, fmt.Errorf("invalid asset %q: %w", a.Asset, err)
	}
	ticker, err := types.NewTicker(strings.TrimSpace(a.Ticker))
	if err != nil {
		return types.AssetInfo{}, fmt.Errorf("invalid ticker %q: %w", a.Ticker, err)
	}
	lf, err := types.FactorFromNominal(a.LiquidityFactor)
	if err != nil {
		return types.AssetInfo{}, fmt.Errorf("liquidityFactor: %w", err)
	}
	shares := types.FactorZero()
	if strings.TrimSpace(a.MinerShares) != "" {
		if shares, err = types.FactorFromNominal(a.MinerShares); err != nil {
			return types.AssetInfo{}, fmt.Errorf("minerShares: %w", err)
		}
	}
	model := types.DefaultInterestRateModel()
	if a.RateModel != nil {
		if model, err = a.RateModel.Model(); err != nil {
			return types.AssetInfo{}, fmt.Errorf("rateModel: %w", err)
		}
	}
	info := types.AssetInfo{
		Asset:           asset,
		Decimals:        a.Decimals,
		Ticker:          ticker,
		Symbol:          strings.TrimSpace(a.Symbol),
		LiquidityFactor: lf,
		RateModel:       model,
		MinerShares:     shares,
	}
	if strings.TrimSpace(a.SupplyCap) != "" {
		limit, err := parseNonNegative(a.SupplyCap, a.Decimals)
		if err != nil {
			return types.AssetInfo{}, fmt.Errorf("supplyCap: %w", err)
		}
		if _, err := numerics.CheckUint128(limit); err != nil {
			return types.AssetInfo{}, fmt.Errorf("supplyCap: %w", err)
		}
		info.SupplyCap = limit
	}
	if err := info.Validate(); err != nil {
		return types.AssetInfo{}, err
	}
	return info, nil
}

// Model parses the rate model and checks its parameters.
func (m RateModelSpec) Model() (types.InterestRateModel, error) {
	zero, err := parseAPR(m.ZeroRate)
	if err != nil {
		return types.InterestRateModel{}, fmt.Errorf("zeroRate: %w", err)
	}
	kink, err := parseAPR(m.KinkRate)
	if err != nil {
		return types.InterestRateModel{}, fmt.Errorf("kinkRate: %w", err)
	}
	full, err := parseAPR(m.FullRate)
	if err != nil {
		return types.InterestRateModel{}, fmt.Errorf("fullRate: %w", err)
	}
	util, err := types.FactorFromNominal(m.KinkUtilization)
	if err != nil {
		return types.InterestRateModel{}, fmt.Errorf("kinkUtilization: %w", err)
	}
	model := types.InterestRateModel{ZeroRate: zero, KinkRate: kink, KinkUtil: util, FullRate: full}
	return model, model.CheckParameters()
}

func (p *ParamsSpec) params() (state.Params, error) {
	out := state.DefaultParams()
	if p == nil {
		return out, nil
	}
	var err error
	if strings.TrimSpace(p.TransferFee) != "" {
		if out.TransferFee, err = parseNonNegative(p.TransferFee, types.CashDecimals); err != nil {
			return out, fmt.Errorf("transferFee: %w", err)
		}
	}
	if strings.TrimSpace(p.MinTxValue) != "" {
		if out.MinTxValue, err = parseNonNegative(p.MinTxValue, types.USDDecimals); err != nil {
			return out, fmt.Errorf("minTxValue: %w", err)
		}
	}
	if strings.TrimSpace(p.LiquidationIncentive) != "" {
		if out.LiquidationIncentive, err = types.FactorFromNominal(p.LiquidationIncentive); err != nil {
			return out, fmt.Errorf("liquidationIncentive: %w", err)
		}
		if out.LiquidationIncentive.Cmp(types.FactorOne()) < 0 {
			return out, fmt.Errorf("liquidationIncentive must be at least 1")
		}
	}
	if p.NoticeThreshold > 0 {
		out.NoticeThreshold = p.NoticeThreshold
	}
	out.EventThreshold = p.EventThreshold
	if strings.TrimSpace(p.MinNextSyncTime) != "" {
		d, err := time.ParseDuration(p.MinNextSyncTime)
		if err != nil || d < 0 {
			return out, fmt.Errorf("invalid minNextSyncTime %q", p.MinNextSyncTime)
		}
		out.MinNextSyncTime = uint64(d.Milliseconds())
	}
	return out, nil
}

func parseAPR(value string) (types.APR, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	apr, err := types.APRFromNominal(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if apr > types.MaxAPR {
		return 0, types.ErrInvalidAPR
	}
	return apr, nil
}

func parseNonNegative(value string, decimals uint8) (*big.Int, error) {
	v, err := numerics.ParseNominal(strings.TrimSpace(value), decimals)
	if err != nil {
		return nil, err
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("value %q must not be negative", value)
	}
	return v, nil
}

func parseEthAddress(value string) ([20]byte, error) {
	var out [20]byte
	raw, err := crypto.EthDecodeHex(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || len(raw) != len(out) {
		return out, fmt.Errorf("invalid address %q", value)
	}
	copy(out[:], raw)
	return out, nil
}

func externalChain(name string) (types.ChainID, error) {
	chain, err := types.ParseChainID(strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("unknown chain %q", name)
	}
	if chain == types.ChainGate {
		return 0, fmt.Errorf("chain %q has no starport", name)
	}
	return chain, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
