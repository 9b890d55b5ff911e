// Package signer implements the two BIP341 signing paths the engine needs:
// funding-input signing dispatched by address type (commit transactions)
// and script-path reveal signing (TapLeaf v0xC0).
package signer

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/chainscribe/chainscribe/internal/model"
)

// SignFundingInput signs tx.TxIn[index] under its address type. pkScript
// and value are the funding output's own script and amount (always a
// single input per commit transaction). Grounded on the funding signer
// in the wallet package this engine evolved from: one function per
// address type, dispatched by a type switch on the decoded address.
func SignFundingInput(
	tx *wire.MsgTx,
	index int,
	addrType model.AddressType,
	privKey *btcec.PrivateKey,
	pkScript []byte,
	value int64,
	prevOutFetcher txscript.PrevOutputFetcher,
) error {
	switch addrType {
	case model.AddressP2WPKH:
		return signP2WPKH(tx, index, privKey, pkScript, value, prevOutFetcher)
	case model.AddressP2TR:
		return signP2TR(tx, index, privKey, pkScript, value, prevOutFetcher)
	case model.AddressP2PKH:
		return signP2PKH(tx, index, privKey, pkScript)
	case model.AddressP2SHP2WPKH:
		return signP2SHP2WPKH(tx, index, privKey, pkScript, value, prevOutFetcher)
	default:
		return model.SigningFailureError(fmt.Sprintf("unsupported funding address type for input %d", index), nil)
	}
}

func signP2WPKH(tx *wire.MsgTx, index int, privKey *btcec.PrivateKey, pkScript []byte, value int64, prevOutFetcher txscript.PrevOutputFetcher) error {
	scriptCode, err := p2pkhScriptCode(privKey)
	if err != nil {
		return model.SigningFailureError("p2wpkh script code", err)
	}

	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)
	witness, err := txscript.WitnessSignature(tx, sigHashes, index, value, scriptCode, txscript.SigHashAll, privKey, true)
	if err != nil {
		return model.SigningFailureError("p2wpkh witness signature", err)
	}
	tx.TxIn[index].Witness = witness
	return nil
}

// p2pkhScriptCode builds the P2PKH-equivalent script BIP143 uses as the
// witness sighash's scriptCode for a P2WPKH (or P2SH-P2WPKH) input; it is
// never the actual output script, which is the shorter witness program.
func p2pkhScriptCode(privKey *btcec.PrivateKey) ([]byte, error) {
	pubKeyHash := btcutil.Hash160(privKey.PubKey().SerializeCompressed())
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

func signP2TR(tx *wire.MsgTx, index int, privKey *btcec.PrivateKey, pkScript []byte, value int64, prevOutFetcher txscript.PrevOutputFetcher) error {
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)
	// Key-path spend: no tapLeaf, BIP341 tweak applied internally by
	// RawTxInTaprootSignature using the untweaked private key.
	sig, err := txscript.RawTxInTaprootSignature(tx, sigHashes, index, value, pkScript, nil, txscript.SigHashDefault, privKey)
	if err != nil {
		return model.SigningFailureError("p2tr key-path signature", err)
	}
	tx.TxIn[index].Witness = wire.TxWitness{sig}
	return nil
}

func signP2PKH(tx *wire.MsgTx, index int, privKey *btcec.PrivateKey, pkScript []byte) error {
	sig, err := txscript.SignatureScript(tx, index, pkScript, txscript.SigHashAll, privKey, true)
	if err != nil {
		return model.SigningFailureError("p2pkh signature script", err)
	}
	tx.TxIn[index].SignatureScript = sig
	return nil
}

// signP2SHP2WPKH signs the nested-segwit case: a witness identical to
// P2WPKH's plus a script_sig pushing the redeem script
// (0x00 0x14 <hash160(pubkey)>).
func signP2SHP2WPKH(tx *wire.MsgTx, index int, privKey *btcec.PrivateKey, pkScript []byte, value int64, prevOutFetcher txscript.PrevOutputFetcher) error {
	pubKeyHash := btcutil.Hash160(privKey.PubKey().SerializeCompressed())
	redeemScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(pubKeyHash).
		Script()
	if err != nil {
		return model.SigningFailureError("p2sh-p2wpkh redeem script", err)
	}

	scriptCode, err := p2pkhScriptCode(privKey)
	if err != nil {
		return model.SigningFailureError("p2sh-p2wpkh script code", err)
	}

	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)
	witness, err := txscript.WitnessSignature(tx, sigHashes, index, value, scriptCode, txscript.SigHashAll, privKey, true)
	if err != nil {
		return model.SigningFailureError("p2sh-p2wpkh witness signature", err)
	}
	tx.TxIn[index].Witness = witness
	tx.TxIn[index].SignatureScript = append([]byte{byte(len(redeemScript))}, redeemScript...)
	return nil
}
