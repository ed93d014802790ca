package starport

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"cashchain/core/types"
)

// starportABI lists the events the ledger ingests. Every argument is
// unindexed so the whole payload lives in the log data.
const starportABI = `[
  {"type":"event","name":"Lock","anonymous":false,"inputs":[
    {"name":"asset","type":"address","indexed":false},
    {"name":"sender","type":"address","indexed":false},
    {"name":"chain","type":"string","indexed":false},
    {"name":"recipient","type":"bytes32","indexed":false},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"LockCash","anonymous":false,"inputs":[
    {"name":"sender","type":"address","indexed":false},
    {"name":"chain","type":"string","indexed":false},
    {"name":"recipient","type":"bytes32","indexed":false},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"principal","type":"uint128","indexed":false}]},
  {"type":"event","name":"ExecTrxRequest","anonymous":false,"inputs":[
    {"name":"account","type":"address","indexed":false},
    {"name":"trxRequest","type":"string","indexed":false}]},
  {"type":"event","name":"NoticeInvoked","anonymous":false,"inputs":[
    {"name":"eraId","type":"uint32","indexed":false},
    {"name":"eraIndex","type":"uint32","indexed":false},
    {"name":"noticeHash","type":"bytes32","indexed":false},
    {"name":"result","type":"bytes","indexed":false}]}
]`

var (
	parsedABI abi.ABI

	errUnknownTopic = errors.New("starport: unknown event topic")
	errLogShape     = errors.New("starport: malformed event data")
)

func init() {
	var err error
	parsedABI, err = abi.JSON(strings.NewReader(starportABI))
	if err != nil {
		panic(err)
	}
}

// Topics returns the topic0 values of every ingested event.
func Topics() []common.Hash {
	out := make([]common.Hash, 0, len(parsedABI.Events))
	for _, name := range []string{"Lock", "LockCash", "ExecTrxRequest", "NoticeInvoked"} {
		out = append(out, parsedABI.Events[name].ID)
	}
	return out
}

// EncodeLog packs args as the data of a log of the named event. The
// watcher never calls it; it exists for fixtures and tooling.
func EncodeLog(name string, args ...interface{}) (gethtypes.Log, error) {
	ev, ok := parsedABI.Events[name]
	if !ok {
		return gethtypes.Log{}, fmt.Errorf("starport: unknown event %q", name)
	}
	data, err := ev.Inputs.Pack(args...)
	if err != nil {
		return gethtypes.Log{}, err
	}
	return gethtypes.Log{Topics: []common.Hash{ev.ID}, Data: data}, nil
}

// DecodeLog turns a starport log into a chain event on chain.
func DecodeLog(chain types.ChainID, lg gethtypes.Log) (types.ChainEvent, error) {
	if len(lg.Topics) == 0 {
		return types.ChainEvent{}, errUnknownTopic
	}
	ev, err := parsedABI.EventByID(lg.Topics[0])
	if err != nil {
		return types.ChainEvent{}, errUnknownTopic
	}
	values, err := ev.Inputs.Unpack(lg.Data)
	if err != nil {
		return types.ChainEvent{}, fmt.Errorf("%w: %v", errLogShape, err)
	}
	out := types.ChainEvent{Log: types.ChainLogID{Chain: chain, Block: lg.BlockNumber, LogIndex: uint64(lg.Index)}}
	switch ev.Name {
	case "Lock":
		out.Kind = types.EventLock
		asset, ok1 := values[0].(common.Address)
		sender, ok2 := values[1].(common.Address)
		amount, ok3 := values[4].(*big.Int)
		if !ok1 || !ok2 || !ok3 {
			return types.ChainEvent{}, errLogShape
		}
		recipient, err := recipientOf(values[2], values[3])
		if err != nil {
			return types.ChainEvent{}, err
		}
		out.Asset, out.Sender, out.Recipient, out.Amount = asset, sender, recipient, amount
	case "LockCash":
		out.Kind = types.EventLockCash
		sender, ok1 := values[0].(common.Address)
		amount, ok2 := values[3].(*big.Int)
		principal, ok3 := values[4].(*big.Int)
		if !ok1 || !ok2 || !ok3 {
			return types.ChainEvent{}, errLogShape
		}
		recipient, err := recipientOf(values[1], values[2])
		if err != nil {
			return types.ChainEvent{}, err
		}
		out.Sender, out.Recipient, out.Amount, out.Principal = sender, recipient, amount, principal
	case "ExecTrxRequest":
		out.Kind = types.EventExecTrxRequest
		account, ok1 := values[0].(common.Address)
		request, ok2 := values[1].(string)
		if !ok1 || !ok2 {
			return types.ChainEvent{}, errLogShape
		}
		if chain != types.ChainEth {
			return types.ChainEvent{}, types.ErrChainMismatch
		}
		out.Account, out.Request = types.EthAccount(account), request
	case "NoticeInvoked":
		out.Kind = types.EventNoticeInvoked
		era, ok1 := values[0].(uint32)
		index, ok2 := values[1].(uint32)
		hash, ok3 := values[2].([32]byte)
		result, ok4 := values[3].([]byte)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return types.ChainEvent{}, errLogShape
		}
		out.NoticeID = types.NoticeID{Era: era, Index: index}
		out.NoticeHash, out.Result = hash, result
	default:
		return types.ChainEvent{}, errUnknownTopic
	}
	return out, nil
}

// recipientOf reads a (chain label, bytes32) pair. Addresses narrower than
// 32 bytes are left aligned.
func recipientOf(label, raw interface{}) (types.ChainAccount, error) {
	name, ok1 := label.(string)
	word, ok2 := raw.([32]byte)
	if !ok1 || !ok2 {
		return types.ChainAccount{}, errLogShape
	}
	chain, err := types.ParseChainID(name)
	if err != nil {
		return types.ChainAccount{}, err
	}
	return types.NewChainAccount(chain, word[:chain.AddressLength()])
}
