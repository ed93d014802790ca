package state

import (
	"encoding/binary"

	"cashchain/core/types"
)

var (
	supportedAssetsPrefix   = []byte("cash/assets/")
	assetBalancesPrefix     = []byte("cash/balances/")
	lastIndicesPrefix       = []byte("cash/last-indices/")
	totalSupplyPrefix       = []byte("cash/total-supply/")
	totalBorrowPrefix       = []byte("cash/total-borrow/")
	supplyIndexPrefix       = []byte("cash/supply-index/")
	borrowIndexPrefix       = []byte("cash/borrow-index/")
	cashPrincipalsPrefix    = []byte("cash/principals/")
	chainCashPrefix         = []byte("cash/chain-cash/")
	noncesPrefix            = []byte("cash/nonces/")
	minerCumulativePrefix   = []byte("cash/miner-cumulative/")
	totalCashPrincipalKey   = []byte("cash/total-cash-principal")
	globalCashIndexKey      = []byte("cash/global-cash-index")
	cashYieldKey            = []byte("cash/yield")
	cashYieldNextKey        = []byte("cash/yield-next")
	lastYieldTimestampKey   = []byte("cash/last-yield-timestamp")
	lastBlockTimestampKey   = []byte("cash/last-block-timestamp")
	minerKey                = []byte("cash/miner")
	lastMinerKey            = []byte("cash/last-miner")
	lastMinerSharePrincipal = []byte("cash/last-miner-share")
	allowedNextCodeHashKey  = []byte("cash/allowed-next-code-hash")
	paramsKey               = []byte("cash/params")

	priceReportersKey = []byte("oracle/reporters")
	pricesPrefix      = []byte("oracle/prices/")
	priceTimesPrefix  = []byte("oracle/times/")

	noticesPrefix        = []byte("notices/by-id/")
	noticeStatesPrefix   = []byte("notices/states/")
	noticeHashesPrefix   = []byte("notices/hashes/")
	latestNoticePrefix   = []byte("notices/latest/")
	accountNoticesPrefix = []byte("notices/accounts/")
	noticeHoldsPrefix    = []byte("notices/holds/")

	validatorsPrefix     = []byte("validators/current/")
	nextValidatorsPrefix = []byte("validators/next/")
	sessionKeysPrefix    = []byte("validators/session-keys/")

	chainEventsPrefix = []byte("events/")
	pausePrefix       = []byte("pause/")
)

func join(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func assetBytes(a types.ChainAsset) []byte {
	return join([]byte{byte(a.Chain)}, a.Address[:])
}

func decodeAsset(b []byte) (types.ChainAsset, []byte, bool) {
	if len(b) < 21 {
		return types.ChainAsset{}, nil, false
	}
	var a types.ChainAsset
	a.Chain = types.ChainID(b[0])
	copy(a.Address[:], b[1:21])
	return a, b[21:], true
}

func accountBytes(a types.ChainAccount) []byte {
	return join([]byte{byte(a.Chain)}, a.Address[:])
}

func decodeAccount(b []byte) (types.ChainAccount, []byte, bool) {
	if len(b) < 33 {
		return types.ChainAccount{}, nil, false
	}
	var a types.ChainAccount
	a.Chain = types.ChainID(b[0])
	copy(a.Address[:], b[1:33])
	return a, b[33:], true
}

func noticeIDBytes(chain types.ChainID, id types.NoticeID) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(chain)
	binary.BigEndian.PutUint32(buf[1:5], id.Era)
	binary.BigEndian.PutUint32(buf[5:9], id.Index)
	return buf
}

func decodeNoticeID(b []byte) (types.ChainID, types.NoticeID, bool) {
	if len(b) != 9 {
		return 0, types.NoticeID{}, false
	}
	return types.ChainID(b[0]), types.NoticeID{
		Era:   binary.BigEndian.Uint32(b[1:5]),
		Index: binary.BigEndian.Uint32(b[5:9]),
	}, true
}

func logIDBytes(id types.ChainLogID) []byte {
	buf := make([]byte, 17)
	buf[0] = byte(id.Chain)
	binary.BigEndian.PutUint64(buf[1:9], id.Block)
	binary.BigEndian.PutUint64(buf[9:17], id.LogIndex)
	return buf
}
