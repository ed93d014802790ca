package rpc

import (
	"math/big"
	"net/http"
	"sort"
	"strings"

	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/oracle"
	"cashchain/services/archive"
)

type execTrxRequestParams struct {
	Request   string `json:"request"`
	Nonce     uint32 `json:"nonce"`
	Signature string `json:"signature"`
}

type postPriceParams struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

type publishSignatureParams struct {
	Chain     string `json:"chain"`
	ID        string `json:"id"`
	Signature string `json:"signature"`
}

type accountParams struct {
	Account string `json:"account"`
}

type assetParams struct {
	Asset string `json:"asset"`
}

type tickerParams struct {
	Ticker string `json:"ticker"`
}

type noticeParams struct {
	Chain string `json:"chain"`
	ID    string `json:"id"`
}

type eventStatusParams struct {
	Chain    string `json:"chain"`
	Block    uint64 `json:"block"`
	LogIndex uint64 `json:"logIndex"`
}

type reduceAssetParams struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

type nextCodeParams struct {
	Code string `json:"code"`
}

type historyParams struct {
	Type    string `json:"type,omitempty"`
	AfterID uint64 `json:"afterId,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func parseAccount(raw string) (types.ChainAccount, *RPCError) {
	acc, err := types.ParseChainAccount(raw)
	if err != nil {
		return types.ChainAccount{}, invalidParams("invalid account %q", raw)
	}
	return acc, nil
}

func parseAsset(raw string) (types.ChainAsset, *RPCError) {
	asset, err := types.ParseChainAsset(raw)
	if err != nil {
		return types.ChainAsset{}, invalidParams("invalid asset %q", raw)
	}
	return asset, nil
}

func parseEthSignature(raw string) (types.ChainSignature, *RPCError) {
	b, err := crypto.EthDecodeHex(strings.TrimSpace(raw))
	if err != nil {
		return types.ChainSignature{}, invalidParams("signature must be 0x hex")
	}
	sig, err := types.NewChainSignature(types.ChainEth, b)
	if err != nil {
		return types.ChainSignature{}, invalidParams("signature must be 65 bytes")
	}
	return sig, nil
}

func (s *Server) handleExecTrxRequest(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p execTrxRequestParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	if strings.TrimSpace(p.Request) == "" {
		return nil, invalidParams("request required")
	}
	sig, e := parseEthSignature(p.Signature)
	if e != nil {
		return nil, e
	}
	if err := s.node.ExecTrxRequest(p.Request, p.Nonce, sig); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"accepted": true}, nil
}

func (s *Server) handlePostPrice(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p postPriceParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	payload, err := crypto.EthDecodeHex(p.Payload)
	if err != nil {
		return nil, ledgerError(types.OracleError{Kind: oracle.KindHexParseError})
	}
	sig, err := crypto.EthDecodeHex(p.Signature)
	if err != nil {
		return nil, ledgerError(types.OracleError{Kind: oracle.KindHexParseError})
	}
	if err := s.node.PostPrice(payload, sig); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"accepted": true}, nil
}

func (s *Server) handlePublishSignature(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p publishSignatureParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	chain, err := types.ParseChainID(p.Chain)
	if err != nil {
		return nil, invalidParams("invalid chain %q", p.Chain)
	}
	id, err := types.ParseNoticeID(p.ID)
	if err != nil {
		return nil, invalidParams("invalid notice id %q", p.ID)
	}
	sig, e := parseEthSignature(p.Signature)
	if e != nil {
		return nil, e
	}
	if err := s.node.PublishSignature(chain, id, sig); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"accepted": true}, nil
}

func (s *Server) handleSetNextCodeViaHash(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p nextCodeParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	code, err := crypto.EthDecodeHex(p.Code)
	if err != nil {
		return nil, invalidParams("code must be 0x hex")
	}
	if err := s.node.SetNextCodeViaHash(code); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"accepted": true}, nil
}

func (s *Server) handleGetLiquidity(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p accountParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	acc, e := parseAccount(p.Account)
	if e != nil {
		return nil, e
	}
	liquidity, err := s.node.Liquidity(acc)
	if err != nil {
		return nil, ledgerError(err)
	}
	return balanceResult(liquidity), nil
}

func (s *Server) handleGetPortfolio(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p accountParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	acc, e := parseAccount(p.Account)
	if e != nil {
		return nil, e
	}
	portfolio, err := s.node.Portfolio(acc)
	if err != nil {
		return nil, ledgerError(err)
	}
	return portfolioResult(portfolio), nil
}

func (s *Server) handleGetNonce(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p accountParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	acc, e := parseAccount(p.Account)
	if e != nil {
		return nil, e
	}
	nonce, err := s.node.Nonce(acc)
	if err != nil {
		return nil, serverError(err)
	}
	return nonce, nil
}

func (s *Server) handleAccountNotices(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p accountParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	acc, e := parseAccount(p.Account)
	if e != nil {
		return nil, e
	}
	ids, err := s.node.AccountNotices(acc)
	if err != nil {
		return nil, serverError(err)
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out, nil
}

func (s *Server) handleGetRates(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p assetParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	asset, e := parseAsset(p.Asset)
	if e != nil {
		return nil, e
	}
	rates, err := s.node.Rates(asset)
	if err != nil {
		return nil, ledgerError(err)
	}
	return RatesResult{Borrow: rates.Borrow.String(), Supply: rates.Supply.String()}, nil
}

func (s *Server) handleHasLiquidityToReduceAsset(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p reduceAssetParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	acc, e := parseAccount(p.Account)
	if e != nil {
		return nil, e
	}
	asset, e := parseAsset(p.Asset)
	if e != nil {
		return nil, e
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(p.Amount), 10)
	if !ok || amount.Sign() < 0 {
		return nil, invalidParams("amount must be a non-negative integer")
	}
	has, err := s.node.HasLiquidityToReduceAsset(acc, asset, amount)
	if err != nil {
		return nil, ledgerError(err)
	}
	return has, nil
}

func (s *Server) handleGetAssets(_ *http.Request, _ *RPCRequest) (interface{}, *RPCError) {
	assets, err := s.node.Assets()
	if err != nil {
		return nil, serverError(err)
	}
	out := make([]AssetResult, len(assets))
	for i, info := range assets {
		out[i] = assetResult(info)
	}
	return out, nil
}

func (s *Server) handleGetAccounts(_ *http.Request, _ *RPCRequest) (interface{}, *RPCError) {
	accounts, err := s.node.Accounts()
	if err != nil {
		return nil, serverError(err)
	}
	out := make([]string, len(accounts))
	for i, acc := range accounts {
		out[i] = acc.String()
	}
	return out, nil
}

func (s *Server) handleGetPrice(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p tickerParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	ticker, err := types.NewTicker(strings.TrimSpace(p.Ticker))
	if err != nil {
		return nil, invalidParams("invalid ticker %q", p.Ticker)
	}
	price, err := s.node.Price(ticker)
	if err != nil {
		return nil, ledgerError(err)
	}
	return intString(price.Value), nil
}

func (s *Server) handleGetPrices(_ *http.Request, _ *RPCRequest) (interface{}, *RPCError) {
	prices, err := s.node.Prices()
	if err != nil {
		return nil, serverError(err)
	}
	out := make(map[string]string, len(prices))
	for t, v := range prices {
		out[t.String()] = intString(v)
	}
	return out, nil
}

func (s *Server) handleGetCash(_ *http.Request, _ *RPCRequest) (interface{}, *RPCError) {
	view, err := s.node.Cash()
	if err != nil {
		return nil, serverError(err)
	}
	return cashResult(view), nil
}

func (s *Server) handleGetNotice(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p noticeParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	chain, err := types.ParseChainID(p.Chain)
	if err != nil {
		return nil, invalidParams("invalid chain %q", p.Chain)
	}
	id, err := types.ParseNoticeID(p.ID)
	if err != nil {
		return nil, invalidParams("invalid notice id %q", p.ID)
	}
	view, ok, err := s.node.Notice(chain, id)
	if err != nil {
		return nil, serverError(err)
	}
	if !ok {
		return nil, notFound("notice")
	}
	return noticeResult(view), nil
}

func (s *Server) handlePendingNotices(_ *http.Request, _ *RPCRequest) (interface{}, *RPCError) {
	views, err := s.node.PendingNotices()
	if err != nil {
		return nil, serverError(err)
	}
	out := make([]NoticeResult, len(views))
	for i, v := range views {
		out[i] = noticeResult(v)
	}
	return out, nil
}

func (s *Server) handleGetEventStatus(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var p eventStatusParams
	if e := decodeParams(req, &p); e != nil {
		return nil, e
	}
	chain, err := types.ParseChainID(p.Chain)
	if err != nil {
		return nil, invalidParams("invalid chain %q", p.Chain)
	}
	id := types.ChainLogID{Chain: chain, Block: p.Block, LogIndex: p.LogIndex}
	st, ok, err := s.node.EventStatus(id)
	if err != nil {
		return nil, serverError(err)
	}
	if !ok {
		return nil, notFound("event")
	}
	return eventStatusResult(id, st), nil
}

func (s *Server) handleGetValidators(_ *http.Request, _ *RPCRequest) (interface{}, *RPCError) {
	set, err := s.node.Validators()
	if err != nil {
		return nil, serverError(err)
	}
	out := make([]ValidatorResult, len(set))
	for i, v := range set {
		out[i] = validatorResult(v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EthAddress < out[j].EthAddress })
	return out, nil
}

func (s *Server) handleGetParams(_ *http.Request, _ *RPCRequest) (interface{}, *RPCError) {
	params, err := s.node.Params()
	if err != nil {
		return nil, serverError(err)
	}
	return paramsResult(params), nil
}

func (s *Server) handleEventHistory(r *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if s.history == nil {
		return nil, &RPCError{Code: codeServerError, Message: "event archive disabled"}
	}
	var p historyParams
	if len(req.Params) > 0 {
		if e := decodeParams(req, &p); e != nil {
			return nil, e
		}
	}
	records, err := s.history.Query(r.Context(), archive.Filter{Type: p.Type, AfterID: p.AfterID, Limit: p.Limit})
	if err != nil {
		return nil, serverError(err)
	}
	type entry struct {
		archive.Record
		Attributes map[string]string `json:"attributes"`
	}
	out := make([]entry, len(records))
	for i, rec := range records {
		out[i] = entry{Record: rec, Attributes: rec.Attrs()}
	}
	return out, nil
}
