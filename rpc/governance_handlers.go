package rpc

import (
	"math/big"
	"net/http"
	"strings"

	"cashchain/core/genesis"
	"cashchain/core/types"
	"cashchain/crypto"
)

type setRateModelParams struct {
	Asset     string                `json:"asset"`
	RateModel genesis.RateModelSpec `json:"rateModel"`
}

type setSupplyCapParams struct {
	Asset string `json:"asset"`
	Cap   string `json:"cap"`
}

type setYieldNextParams struct {
	Yield string `json:"yield"`
	Start uint64 `json:"start"`
}

type setReportersParams struct {
	Reporters []string `json:"reporters"`
}

type setPausedParams struct {
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

type codeHashParams struct {
	Hash string `json:"hash"`
}

type changeValidatorsParams struct {
	Validators []genesis.ValidatorSpec `json:"validators"`
}

var accepted = map[string]bool{"accepted": true}

func parseAddress(raw string) ([20]byte, *RPCError) {
	var out [20]byte
	b, err := crypto.EthDecodeHex(strings.TrimSpace(raw))
	if err != nil || len(b) != len(out) {
		return out, invalidParams("invalid address %q", raw)
	}
	copy(out[:], b)
	return out, nil
}

func (s *Server) handleSupportAsset(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p genesis.AssetSpec
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	info, err := p.Info()
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	if err := s.node.SupportAsset(info); err != nil {
		return nil, ledgerError(err)
	}
	return accepted, nil
}

func (s *Server) handleSetRateModel(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p setRateModelParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	asset, e := parseAsset(p.Asset)
	if e != nil {
		return nil, e
	}
	model, err := p.RateModel.Model()
	if err != nil {
		return nil, ledgerError(err)
	}
	if err := s.node.SetRateModel(asset, model); err != nil {
		return nil, ledgerError(err)
	}
	return accepted, nil
}

func (s *Server) handleSetSupplyCap(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p setSupplyCapParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	asset, e := parseAsset(p.Asset)
	if e != nil {
		return nil, e
	}
	limit, ok := new(big.Int).SetString(strings.TrimSpace(p.Cap), 10)
	if !ok || limit.Sign() < 0 {
		return nil, invalidParams("cap must be a non-negative integer")
	}
	if err := s.node.SetSupplyCap(asset, limit); err != nil {
		return nil, ledgerError(err)
	}
	return accepted, nil
}

func (s *Server) handleSetYieldNext(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p setYieldNextParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	yield, err := types.APRFromNominal(p.Yield)
	if err != nil {
		return nil, ledgerError(err)
	}
	if err := s.node.SetYieldNext(yield, p.Start); err != nil {
		return nil, ledgerError(err)
	}
	return accepted, nil
}

func (s *Server) handleSetReporters(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p setReportersParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	reporters := make([][20]byte, 0, len(p.Reporters))
	for _, raw := range p.Reporters {
		addr, e := parseAddress(raw)
		if e != nil {
			return nil, e
		}
		reporters = append(reporters, addr)
	}
	if err := s.node.SetReporters(reporters); err != nil {
		return nil, ledgerError(err)
	}
	return accepted, nil
}

func (s *Server) handleSetPaused(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p setPausedParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	if strings.TrimSpace(p.Module) == "" {
		return nil, invalidParams("module required")
	}
	if err := s.node.SetPaused(strings.TrimSpace(p.Module), p.Paused); err != nil {
		return nil, ledgerError(err)
	}
	return accepted, nil
}

func (s *Server) handleAllowNextCodeWithHash(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p codeHashParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	b, err := crypto.EthDecodeHex(strings.TrimSpace(p.Hash))
	if err != nil || len(b) != 32 {
		return nil, invalidParams("hash must be 32 bytes of 0x hex")
	}
	var hash [32]byte
	copy(hash[:], b)
	if err := s.node.AllowNextCodeWithHash(hash); err != nil {
		return nil, ledgerError(err)
	}
	return accepted, nil
}

func (s *Server) handleChangeValidators(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p changeValidatorsParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	set := make([]types.ValidatorKeys, 0, len(p.Validators))
	for _, v := range p.Validators {
		keys, err := v.Keys()
		if err != nil {
			return nil, invalidParams("%v", err)
		}
		set = append(set, keys)
	}
	if err := s.node.ChangeValidators(set); err != nil {
		return nil, ledgerError(err)
	}
	return accepted, nil
}
