package events

import (
	"encoding/hex"
	"math/big"
	"strconv"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func hexBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func zeroBytes(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }
