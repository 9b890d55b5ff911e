package signer

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/chainscribe/chainscribe/internal/model"
)

func newFundingTx(t *testing.T) (*wire.MsgTx, *btcec.PrivateKey) {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tx := wire.NewMsgTx(2)
	prevHash, err := chainhash.NewHashFromStr("0000000000000000000000000000000000000000000000000000000000aa")
	if err != nil {
		t.Fatalf("parse hash: %v", err)
	}
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(prevHash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(50000, []byte{txscript.OP_TRUE}))
	return tx, key
}

func TestSignFundingInputP2WPKH(t *testing.T) {
	tx, key := newFundingTx(t)
	hash := btcutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(hash, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("pk script: %v", err)
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	fetcher.AddPrevOut(tx.TxIn[0].PreviousOutPoint, &wire.TxOut{PkScript: pkScript, Value: 60000})

	if err := SignFundingInput(tx, 0, model.AddressP2WPKH, key, pkScript, 60000, fetcher); err != nil {
		t.Fatalf("SignFundingInput: %v", err)
	}
	if len(tx.TxIn[0].Witness) != 2 {
		t.Fatalf("p2wpkh witness has %d elements, want 2 (sig, pubkey)", len(tx.TxIn[0].Witness))
	}

	engine, err := txscript.NewEngine(pkScript, tx, 0, txscript.StandardVerifyFlags, nil, nil, 60000, fetcher)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Execute(); err != nil {
		t.Errorf("p2wpkh witness failed script verification: %v", err)
	}
}

func TestSignFundingInputP2PKH(t *testing.T) {
	tx, key := newFundingTx(t)
	hash := btcutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressPubKeyHash(hash, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("pk script: %v", err)
	}

	if err := SignFundingInput(tx, 0, model.AddressP2PKH, key, pkScript, 60000, nil); err != nil {
		t.Fatalf("SignFundingInput: %v", err)
	}
	if len(tx.TxIn[0].SignatureScript) == 0 {
		t.Fatal("p2pkh signature script is empty")
	}

	engine, err := txscript.NewEngine(pkScript, tx, 0, txscript.StandardVerifyFlags, nil, nil, 60000, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Execute(); err != nil {
		t.Errorf("p2pkh signature failed script verification: %v", err)
	}
}

func TestSignFundingInputP2SHP2WPKH(t *testing.T) {
	tx, key := newFundingTx(t)
	pubKeyHash := btcutil.Hash160(key.PubKey().SerializeCompressed())
	redeemScript, err := txscript.NewScriptBuilder().AddOp(txscript.OP_0).AddData(pubKeyHash).Script()
	if err != nil {
		t.Fatalf("redeem script: %v", err)
	}
	scriptHash := btcutil.Hash160(redeemScript)
	addr, err := btcutil.NewAddressScriptHashFromHash(scriptHash, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("pk script: %v", err)
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	fetcher.AddPrevOut(tx.TxIn[0].PreviousOutPoint, &wire.TxOut{PkScript: pkScript, Value: 60000})

	if err := SignFundingInput(tx, 0, model.AddressP2SHP2WPKH, key, pkScript, 60000, fetcher); err != nil {
		t.Fatalf("SignFundingInput: %v", err)
	}
	if len(tx.TxIn[0].SignatureScript) == 0 {
		t.Fatal("p2sh-p2wpkh script_sig (redeem script push) is empty")
	}

	engine, err := txscript.NewEngine(pkScript, tx, 0, txscript.StandardVerifyFlags, nil, nil, 60000, fetcher)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Execute(); err != nil {
		t.Errorf("p2sh-p2wpkh witness failed script verification: %v", err)
	}
}

func TestSignFundingInputUnsupportedType(t *testing.T) {
	tx, key := newFundingTx(t)
	if err := SignFundingInput(tx, 0, model.AddressUnknown, key, nil, 0, nil); err == nil {
		t.Error("expected error for unsupported address type")
	}
}
