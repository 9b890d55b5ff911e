package assembler

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/chainscribe/chainscribe/internal/model"
)

func newTestContext(t *testing.T, key *btcec.PrivateKey, content string) *model.InscriptionContext {
	t.Helper()
	script, err := txscript.NewScriptBuilder().
		AddData(schnorr.SerializePubKey(key.PubKey())).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_FALSE).
		AddOp(txscript.OP_IF).
		AddData([]byte("ord")).
		AddData([]byte(content)).
		AddOp(txscript.OP_ENDIF).
		Script()
	if err != nil {
		t.Fatalf("script: %v", err)
	}

	leaf := txscript.NewBaseTapLeaf(script)
	proof := &txscript.TapscriptProof{TapLeaf: txscript.NewBaseTapLeaf(schnorr.SerializePubKey(key.PubKey())), RootNode: leaf}
	controlBlock, err := proof.ToControlBlock(key.PubKey()).ToBytes()
	if err != nil {
		t.Fatalf("control block: %v", err)
	}
	leafHash := leaf.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(key.PubKey(), leafHash[:])
	commitAddr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("commit addr: %v", err)
	}
	commitPkScript, err := txscript.PayToAddrScript(commitAddr)
	if err != nil {
		t.Fatalf("commit pk script: %v", err)
	}

	revealAddr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(key.PubKey().SerializeCompressed()), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("reveal addr: %v", err)
	}
	revealPkScript, err := txscript.PayToAddrScript(revealAddr)
	if err != nil {
		t.Fatalf("reveal pk script: %v", err)
	}

	return &model.InscriptionContext{
		InscriptionScript: script,
		CommitPkScript:    commitPkScript,
		ControlBlock:      controlBlock,
		LeafHash:          leafHash,
		RevealPkScript:    revealPkScript,
	}
}

func testFundingInput(t *testing.T, fundingValue int64) (model.FundingOutput, model.AddressType, *btcec.PrivateKey, []byte) {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("funding key: %v", err)
	}
	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(key.PubKey().SerializeCompressed()), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("funding addr: %v", err)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("funding pk script: %v", err)
	}
	return model.FundingOutput{
		TxID:          "00000000000000000000000000000000000000000000000000000000000d",
		Vout:          0,
		Value:         fundingValue,
		Address:       addr.EncodeAddress(),
		PrivateKeyWIF: "",
	}, model.AddressP2WPKH, key, pkScript
}

func TestAssembleRejectsEmptyContexts(t *testing.T) {
	funding, addrType, key, pkScript := testFundingInput(t, 100000)
	_, err := Assemble(Input{
		Funding:         funding,
		FundingAddrType: addrType,
		FundingPrivKey:  key,
		FundingPkScript: pkScript,
		Contexts:        nil,
		CommitFeeRate:   10,
		RevealFeeRate:   10,
		RevealOutValue:  546,
		MinChangeValue:  546,
	})
	if err == nil {
		t.Fatal("expected error assembling a chain with zero inscriptions")
	}
}

func TestAssembleSingleInscriptionChainShape(t *testing.T) {
	funding, addrType, key, pkScript := testFundingInput(t, 100000)
	ctx := newTestContext(t, key, "hello")
	finalChange, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(key.PubKey().SerializeCompressed()), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("final change addr: %v", err)
	}
	finalChangePkScript, err := txscript.PayToAddrScript(finalChange)
	if err != nil {
		t.Fatalf("final change pk script: %v", err)
	}

	chain, err := Assemble(Input{
		Funding:             funding,
		FundingAddrType:     addrType,
		FundingPrivKey:      key,
		FundingPkScript:     pkScript,
		Contexts:            []*model.InscriptionContext{ctx},
		CommitFeeRate:       10,
		RevealFeeRate:       10,
		RevealOutValue:      546,
		MinChangeValue:      546,
		FinalChangePkScript: finalChangePkScript,
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// One commit + one reveal for a single inscription.
	if len(chain.Txs) != 2 {
		t.Fatalf("len(chain.Txs) = %d, want 2", len(chain.Txs))
	}

	commit := chain.Txs[0]
	reveal := chain.Txs[1]

	// Outpoint continuity: reveal spends the commit's single output.
	commitHash := commit.Tx.TxHash()
	if reveal.Tx.TxIn[0].PreviousOutPoint.Hash != commitHash || reveal.Tx.TxIn[0].PreviousOutPoint.Index != 0 {
		t.Error("reveal does not spend the commit transaction's output 0")
	}

	// Commit's sole output must be the reveal context's commit script.
	if string(commit.Tx.TxOut[0].PkScript) != string(ctx.CommitPkScript) {
		t.Error("commit output script does not match the inscription's commit script")
	}

	// Dust output must carry the configured reveal value and destination.
	if reveal.Tx.TxOut[0].Value != 546 {
		t.Errorf("reveal dust output value = %d, want 546", reveal.Tx.TxOut[0].Value)
	}
	if string(reveal.Tx.TxOut[0].PkScript) != string(ctx.RevealPkScript) {
		t.Error("reveal dust output script does not match the inscription's reveal address")
	}

	if reveal.Fee <= 0 {
		t.Errorf("reveal fee = %d, want positive", reveal.Fee)
	}
}

func TestAssembleChangeEqualsNextCommitScript(t *testing.T) {
	funding, addrType, key, pkScript := testFundingInput(t, 200000)
	ctxA := newTestContext(t, key, "first")
	ctxB := newTestContext(t, key, "second")

	finalChange, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(key.PubKey().SerializeCompressed()), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("final change addr: %v", err)
	}
	finalChangePkScript, err := txscript.PayToAddrScript(finalChange)
	if err != nil {
		t.Fatalf("final change pk script: %v", err)
	}

	chain, err := Assemble(Input{
		Funding:             funding,
		FundingAddrType:     addrType,
		FundingPrivKey:      key,
		FundingPkScript:     pkScript,
		Contexts:            []*model.InscriptionContext{ctxA, ctxB},
		CommitFeeRate:       10,
		RevealFeeRate:       10,
		RevealOutValue:      546,
		MinChangeValue:      546,
		FinalChangePkScript: finalChangePkScript,
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(chain.Txs) != 3 {
		t.Fatalf("len(chain.Txs) = %d, want 3 (commit + 2 reveals)", len(chain.Txs))
	}

	firstReveal := chain.Txs[1]
	lastReveal := chain.Txs[2]

	// Non-final reveal's change script must equal the next inscription's
	// commit script (the cascading "virtual commit" property).
	if string(firstReveal.Tx.TxOut[1].PkScript) != string(ctxB.CommitPkScript) {
		t.Error("first reveal's change output does not match the second inscription's commit script")
	}

	// Final reveal's outpoint must continue from the first reveal's change
	// output.
	firstRevealHash := firstReveal.Tx.TxHash()
	if lastReveal.Tx.TxIn[0].PreviousOutPoint.Hash != firstRevealHash || lastReveal.Tx.TxIn[0].PreviousOutPoint.Index != 1 {
		t.Error("second reveal does not spend the first reveal's change output")
	}

	// Final reveal's change (if any) goes to the final change address, not
	// another commit script.
	if lastReveal.ChangeVout != nil {
		if string(lastReveal.Tx.TxOut[*lastReveal.ChangeVout].PkScript) != string(finalChangePkScript) {
			t.Error("final reveal's change output does not match the final change address")
		}
	}
}

func TestAssembleFundingShortageOnTinyFunding(t *testing.T) {
	funding, addrType, key, pkScript := testFundingInput(t, 10)
	ctx := newTestContext(t, key, "x")

	_, err := Assemble(Input{
		Funding:         funding,
		FundingAddrType: addrType,
		FundingPrivKey:  key,
		FundingPkScript: pkScript,
		Contexts:        []*model.InscriptionContext{ctx},
		CommitFeeRate:   50,
		RevealFeeRate:   50,
		RevealOutValue:  546,
		MinChangeValue:  546,
	})
	if err == nil {
		t.Fatal("expected funding shortage error for a 10-sat funding output")
	}
	engineErr, ok := err.(*model.EngineError)
	if !ok {
		t.Fatalf("error is %T, want *model.EngineError", err)
	}
	if engineErr.Kind != model.KindFundingShortage {
		t.Errorf("error kind = %v, want KindFundingShortage", engineErr.Kind)
	}
}
