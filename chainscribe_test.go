package chainscribe

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chainscribe/chainscribe/internal/model"
)

func testWIFAndAddress(t *testing.T) (string, string, *btcec.PrivateKey) {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	wif, err := btcutil.NewWIF(key, &chaincfg.TestNet3Params, true)
	if err != nil {
		t.Fatalf("wif: %v", err)
	}
	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(key.PubKey().SerializeCompressed()), &chaincfg.TestNet3Params)
	if err != nil {
		t.Fatalf("addr: %v", err)
	}
	return wif.String(), addr.EncodeAddress(), key
}

func TestBuildEndToEndSingleChain(t *testing.T) {
	fundingWIF, fundingAddr, _ := testWIFAndAddress(t)
	_, revealAddr, _ := testWIFAndAddress(t)
	_, finalChangeAddr, _ := testWIFAndAddress(t)

	prevHash, err := chainhash.NewHashFromStr("1111111111111111111111111111111111111111111111111111111111111a")
	if err != nil {
		t.Fatalf("parse hash: %v", err)
	}

	req := &model.InscriptionRequest{
		FundingOutputs: []model.FundingOutput{{
			TxID:          prevHash.String(),
			Vout:          0,
			Value:         200000,
			Address:       fundingAddr,
			PrivateKeyWIF: fundingWIF,
		}},
		Payloads: []model.InscriptionPayload{
			{ContentType: "text/plain;charset=utf-8", Body: []byte("hello chain"), RevealAddress: revealAddr},
			{ContentType: "text/plain;charset=utf-8", Body: []byte("second inscription"), RevealAddress: revealAddr},
		},
		CommitFeeRate:      10,
		RevealFeeRate:      10,
		RevealOutValue:      546,
		FinalChangeAddress:  finalChangeAddr,
		MinChangeValue:      546,
		Network:             Testnet,
	}

	result := Build(req)
	if !result.Success {
		t.Fatalf("Build() failed: %s", result.Error)
	}
	if len(result.Chains) != 1 {
		t.Fatalf("len(result.Chains) = %d, want 1", len(result.Chains))
	}

	chain := result.Chains[0]
	if chain.CommitTxID == "" || chain.CommitHex == "" {
		t.Error("commit hex/txid must be populated")
	}
	if len(chain.RevealHex) != 2 || len(chain.RevealTxIDs) != 2 {
		t.Fatalf("expected two reveals for two payloads, got %d hex / %d txids", len(chain.RevealHex), len(chain.RevealTxIDs))
	}
	if chain.TotalFee <= 0 {
		t.Errorf("TotalFee = %d, want positive", chain.TotalFee)
	}
	if chain.LastTx.Network != "testnet" {
		t.Errorf("LastTx.Network = %q, want testnet", chain.LastTx.Network)
	}
	if result.BatchID == "" {
		t.Error("result.BatchID must be populated")
	}
}

func TestBuildEndToEndMultiChain(t *testing.T) {
	fundingWIF1, fundingAddr1, _ := testWIFAndAddress(t)
	fundingWIF2, fundingAddr2, _ := testWIFAndAddress(t)
	_, revealAddr, _ := testWIFAndAddress(t)
	_, finalChangeAddr, _ := testWIFAndAddress(t)

	prevHash1, err := chainhash.NewHashFromStr("3333333333333333333333333333333333333333333333333333333333333c")
	if err != nil {
		t.Fatalf("parse hash: %v", err)
	}
	prevHash2, err := chainhash.NewHashFromStr("4444444444444444444444444444444444444444444444444444444444444d")
	if err != nil {
		t.Fatalf("parse hash: %v", err)
	}

	const payloadCount = 30 // forces a split: 24 in chain one, 6 in chain two

	payloads := make([]model.InscriptionPayload, payloadCount)
	for i := range payloads {
		payloads[i] = model.InscriptionPayload{
			ContentType:   "text/plain;charset=utf-8",
			Body:          []byte(fmt.Sprintf("inscription number %d", i)),
			RevealAddress: revealAddr,
		}
	}

	req := &model.InscriptionRequest{
		FundingOutputs: []model.FundingOutput{
			{TxID: prevHash1.String(), Vout: 0, Value: 5000000, Address: fundingAddr1, PrivateKeyWIF: fundingWIF1},
			{TxID: prevHash2.String(), Vout: 1, Value: 5000000, Address: fundingAddr2, PrivateKeyWIF: fundingWIF2},
		},
		Payloads:           payloads,
		CommitFeeRate:      10,
		RevealFeeRate:      10,
		RevealOutValue:     546,
		FinalChangeAddress: finalChangeAddr,
		MinChangeValue:     546,
		Network:            Testnet,
	}

	result := Build(req)
	if !result.Success {
		t.Fatalf("Build() failed: %s", result.Error)
	}
	if len(result.Chains) != 2 {
		t.Fatalf("len(result.Chains) = %d, want 2", len(result.Chains))
	}

	first, second := result.Chains[0], result.Chains[1]
	if len(first.RevealHex) != 24 {
		t.Errorf("len(first.RevealHex) = %d, want 24", len(first.RevealHex))
	}
	if len(second.RevealHex) != payloadCount-24 {
		t.Errorf("len(second.RevealHex) = %d, want %d", len(second.RevealHex), payloadCount-24)
	}
	if first.CommitTxID == second.CommitTxID {
		t.Error("the two chains must have distinct commit transactions")
	}
}

func TestBuildRejectsEmptyFundingList(t *testing.T) {
	req := &model.InscriptionRequest{
		Payloads: []model.InscriptionPayload{{ContentType: "text/plain", Body: []byte("x"), RevealAddress: "irrelevant"}},
	}
	result := Build(req)
	if result.Success {
		t.Fatal("expected failure for an empty funding list")
	}
	if result.Error == "" {
		t.Error("expected a descriptive error message")
	}
}

func TestBuildRejectsEmptyPayloads(t *testing.T) {
	_, addr, _ := testWIFAndAddress(t)
	req := &model.InscriptionRequest{
		FundingOutputs: []model.FundingOutput{{TxID: "1111111111111111111111111111111111111111111111111111111111111a", Value: 100000, Address: addr, PrivateKeyWIF: "cRandomWIFNotValidatedHere"}},
	}
	result := Build(req)
	if result.Success {
		t.Fatal("expected failure for an empty payload list")
	}
}

func TestBuildRejectsNilRequest(t *testing.T) {
	result := Build(nil)
	if result.Success {
		t.Fatal("expected failure for a nil request")
	}
}

func TestBuildSurfacesFundingShortage(t *testing.T) {
	fundingWIF, fundingAddr, _ := testWIFAndAddress(t)
	_, revealAddr, _ := testWIFAndAddress(t)
	_, finalChangeAddr, _ := testWIFAndAddress(t)

	prevHash, err := chainhash.NewHashFromStr("2222222222222222222222222222222222222222222222222222222222222b")
	if err != nil {
		t.Fatalf("parse hash: %v", err)
	}

	req := &model.InscriptionRequest{
		FundingOutputs: []model.FundingOutput{{
			TxID:          prevHash.String(),
			Vout:          0,
			Value:         100, // far too small to cover commit + reveal fees
			Address:       fundingAddr,
			PrivateKeyWIF: fundingWIF,
		}},
		Payloads: []model.InscriptionPayload{
			{ContentType: "text/plain", Body: []byte("x"), RevealAddress: revealAddr},
		},
		CommitFeeRate:      50,
		RevealFeeRate:      50,
		RevealOutValue:      546,
		FinalChangeAddress:  finalChangeAddr,
		MinChangeValue:      546,
		Network:             Testnet,
	}

	result := Build(req)
	if result.Success {
		t.Fatal("expected failure when funding cannot cover fees")
	}
	if result.Error == "" {
		t.Error("expected a descriptive error message")
	}
}
