// Package packager turns a signed chain plan into the engine's result
// envelope: per-chain hex/txids/fees and a LastTxInfo record sufficient
// for an external RBF module to rebuild and re-sign the final reveal.
package packager

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/google/uuid"

	"github.com/chainscribe/chainscribe/internal/model"
)

// NewBatchID mints a fresh operational correlation id for one build.
func NewBatchID() string {
	return uuid.NewString()
}

// ChainID derives the addressable id for one chain within a batch.
func ChainID(batchID string, chainIndex int) string {
	return fmt.Sprintf("%s-%02d", batchID, chainIndex)
}

// Package builds the result envelope for a fully signed plan.
func Package(
	plan *model.ChainPlan,
	ctxs []*model.InscriptionContext,
	primaryKeyWIF string,
	finalChangeAddress string,
	finalChangePkScript []byte,
	networkName string,
	revealOutValue, minChangeValue int64,
	batchID string,
) (*model.Result, error) {
	result := &model.Result{Success: true, BatchID: batchID}

	for chainIdx, chain := range plan.Chains {
		if len(chain.Txs) < 2 {
			return nil, model.InternalInvariantError(fmt.Sprintf("chain %d has fewer than 2 transactions", chainIdx), nil)
		}

		commitHex, commitTxID, err := txHexAndID(chain.Txs[0].Tx)
		if err != nil {
			return nil, err
		}

		var revealHex, revealTxIDs []string
		totalFee := chain.Txs[0].Fee
		for _, t := range chain.Txs[1:] {
			h, id, err := txHexAndID(t.Tx)
			if err != nil {
				return nil, err
			}
			revealHex = append(revealHex, h)
			revealTxIDs = append(revealTxIDs, id)
			totalFee += t.Fee
		}

		last := chain.Txs[len(chain.Txs)-1]
		if last.ContextIndex == nil {
			return nil, model.InternalInvariantError(fmt.Sprintf("chain %d's final transaction has no context", chainIdx), nil)
		}
		lastCtx := ctxs[*last.ContextIndex]
		prevTx := chain.Txs[len(chain.Txs)-2]
		if prevTx.ChangeVout == nil {
			return nil, model.InternalInvariantError(fmt.Sprintf("chain %d's penultimate transaction has no funded output", chainIdx), nil)
		}
		spentOut := prevTx.Tx.TxOut[*prevTx.ChangeVout]

		outputs := make([]model.TxOutInfo, 0, len(last.Tx.TxOut))
		for _, o := range last.Tx.TxOut {
			outputs = append(outputs, model.TxOutInfo{PkScriptHex: hex.EncodeToString(o.PkScript), Value: o.Value})
		}

		lastTxID := revealTxIDs[len(revealTxIDs)-1]
		lastHex := revealHex[len(revealHex)-1]

		lastTxInfo := model.LastTxInfo{
			TxID:                   lastTxID,
			Hex:                    lastHex,
			Fee:                    last.Fee,
			SpentTxID:              prevTx.Tx.TxHash().String(),
			SpentVout:              uint32(*prevTx.ChangeVout),
			SpentValue:             spentOut.Value,
			Outputs:                outputs,
			SigningPrivateKeyWIF:   primaryKeyWIF,
			FinalChangeAddress:     finalChangeAddress,
			Network:                networkName,
			RevealOutValue:         revealOutValue,
			MinChangeValue:         minChangeValue,
			PrevInputPkScriptHex:   hex.EncodeToString(lastCtx.CommitPkScript),
			RevealPkScriptHex:      hex.EncodeToString(lastCtx.RevealPkScript),
			FinalChangePkScriptHex: hex.EncodeToString(finalChangePkScript),
			LeafHashHex:            lastCtx.LeafHash.String(),
		}

		result.Chains = append(result.Chains, model.ChainResult{
			ChainID:     ChainID(batchID, chainIdx),
			CommitHex:   commitHex,
			CommitTxID:  commitTxID,
			RevealHex:   revealHex,
			RevealTxIDs: revealTxIDs,
			TotalFee:    totalFee,
			LastTx:      lastTxInfo,
		})
		result.TotalEstimatedFee += totalFee
	}

	return result, nil
}

func txHexAndID(tx *wire.MsgTx) (string, string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", "", model.InternalInvariantError("serialize transaction", err)
	}
	return hex.EncodeToString(buf.Bytes()), tx.TxHash().String(), nil
}

// Failure builds the empty-collections error envelope the top-level entry
// point returns when the build aborts.
func Failure(err error) *model.Result {
	return &model.Result{Success: false, Error: err.Error()}
}
