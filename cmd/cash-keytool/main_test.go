package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/cash"
	"cashchain/native/oracle"
)

func fixedPass(secret string) passFunc {
	return func(bool) (string, error) { return secret, nil }
}

func generated(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key.json")
	var out bytes.Buffer
	require.NoError(t, runGenerate([]string{"-keystore", path}, &out, fixedPass("pw")))
	require.Contains(t, out.String(), "address:")

	out.Reset()
	require.NoError(t, runAddress([]string{"-keystore", path}, &out, fixedPass("pw")))
	return path, strings.TrimSpace(out.String())
}

func field(t *testing.T, output, name string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, name+":") {
			return strings.TrimSpace(strings.TrimPrefix(line, name+":"))
		}
	}
	t.Fatalf("no %s in %q", name, output)
	return ""
}

func TestGenerateRefusesOverwrite(t *testing.T) {
	path, _ := generated(t)
	err := runGenerate([]string{"-keystore", path}, &bytes.Buffer{}, fixedPass("pw"))
	require.Error(t, err)
	require.NoError(t, runGenerate([]string{"-keystore", path, "-force"}, &bytes.Buffer{}, fixedPass("pw")))
}

func TestAddressWrongPassphrase(t *testing.T) {
	path, _ := generated(t)
	require.Error(t, runAddress([]string{"-keystore", path}, &bytes.Buffer{}, fixedPass("nope")))
}

func TestSignRequestRecoversToKeystore(t *testing.T) {
	path, address := generated(t)
	request := "(Extract 1 CASH Eth:0x" + strings.Repeat("11", 20) + ")"

	var out bytes.Buffer
	require.NoError(t, runSignRequest([]string{"-keystore", path, "-request", request, "-nonce", "3"}, &out, fixedPass("pw")))
	raw, err := crypto.EthDecodeHex(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	sig, err := types.NewChainSignature(types.ChainEth, raw)
	require.NoError(t, err)

	signer, err := cash.RecoverTrxRequestSigner(request, 3, sig)
	require.NoError(t, err)
	require.Equal(t, address, crypto.EthEncodeHex(signer.Address[:20]))
}

func TestSignPriceRecoversToKeystore(t *testing.T) {
	path, address := generated(t)
	var out bytes.Buffer
	require.NoError(t, runSignPrice([]string{"-keystore", path, "-ticker", "btc", "-value", "57000000000", "-timestamp", "1700000000"}, &out, fixedPass("pw")))

	payload, err := crypto.EthDecodeHex(field(t, out.String(), "payload"))
	require.NoError(t, err)
	sig, err := crypto.EthDecodeHex(field(t, out.String(), "signature"))
	require.NoError(t, err)

	reporter, err := oracle.RecoverReporter(payload, sig)
	require.NoError(t, err)
	require.Equal(t, address, crypto.EthEncodeHex(reporter[:]))

	msg, err := oracle.ParseMessage(payload)
	require.NoError(t, err)
	require.Equal(t, "BTC", msg.Key)
}

func TestDispatchUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, dispatch("frobnicate", nil, &out))
	require.Contains(t, out.String(), "Usage")
}
