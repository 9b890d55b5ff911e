// Package model holds the data types shared across the chain inscription
// engine: requests, derived envelope contexts, assembled chains, and the
// result envelope returned to callers.
package model

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// MaxTransactionsPerChain bounds a chain to one commit plus 24 reveals,
// matching mempool ancestor/descendant package limits.
const MaxTransactionsPerChain = 25

// Default dust and change values (satoshis), overridable per request.
const (
	DefaultRevealOutValue = int64(546)
	DefaultMinChangeValue = int64(546)
)

// AddressType identifies the spending scheme of a funding output.
type AddressType int

const (
	AddressUnknown AddressType = iota
	AddressP2PKH
	AddressP2WPKH
	AddressP2SHP2WPKH
	AddressP2TR
)

func (t AddressType) String() string {
	switch t {
	case AddressP2PKH:
		return "legacy"
	case AddressP2WPKH:
		return "segwit"
	case AddressP2SHP2WPKH:
		return "segwit_nested"
	case AddressP2TR:
		return "segwit_taproot"
	default:
		return "unknown"
	}
}

// FundingOutput seeds one chain. A signing key is mandatory; there is no
// watch-only entry.
type FundingOutput struct {
	TxID          string
	Vout          uint32
	Value         int64
	Address       string
	PrivateKeyWIF string
}

// InscriptionPayload is one piece of content to inscribe.
type InscriptionPayload struct {
	ContentType   string
	Body          []byte
	RevealAddress string
}

// InscriptionRequest is the top-level engine input.
type InscriptionRequest struct {
	FundingOutputs      []FundingOutput
	Payloads            []InscriptionPayload
	CommitFeeRate       float64
	RevealFeeRate       float64
	RevealOutValue      int64
	FinalChangeAddress  string
	MinChangeValue      int64
	Network             *NetworkParams
	// AuxRandSeed, when non-nil, makes every reveal signature's BIP340
	// auxiliary randomness deterministic (a 32-byte stream seed). Nil
	// selects crypto/rand in production use.
	AuxRandSeed *[32]byte
}

// NetworkParams is the minimal network selection the engine needs; kept
// separate from btcd's chaincfg.Params so model has no txscript-adjacent
// import beyond wire/chainhash.
type NetworkParams struct {
	Name    string // "mainnet" or "testnet"
	IsTest  bool
}

// InscriptionContext is the immutable, derived-once-per-payload envelope
// data: script, commit address, control block, and reveal witness suffix.
type InscriptionContext struct {
	PayloadIndex      int
	InternalPubKey    [32]byte
	InscriptionScript []byte
	CommitAddress     string
	CommitPkScript    []byte
	ControlBlock      []byte
	LeafHash          chainhash.Hash
	RevealPkScript    []byte
}

// RevealWitnessSuffix returns [script, control_block]; the signer prepends
// the 64-byte Schnorr signature.
func (c *InscriptionContext) RevealWitnessSuffix() wire.TxWitness {
	return wire.TxWitness{c.InscriptionScript, c.ControlBlock}
}

// ChangeOutcome is the estimator's decision for a candidate change output.
type ChangeOutcome int

const (
	ChangeKept ChangeOutcome = iota
	ChangeDropped
	ChangeInsufficient
)

// EstimateResult is what the Fee & Change Estimator returns.
type EstimateResult struct {
	Fee      int64
	Change   int64
	Outcome  ChangeOutcome
}

// AssembledTx is one transaction in a chain plus its bookkeeping: the fee
// the estimator charged it and, for reveals, the index into the engine's
// InscriptionContext slice (nil for the commit).
type AssembledTx struct {
	Tx            *wire.MsgTx
	Fee           int64
	ContextIndex  *int
	ChangeVout    *int // which output index (if any) carries the chain's change
	FundingIndex  *int // index into FundingOutputs; the assembler leaves it nil
}

// Chain is one funding output's commit plus its reveals.
type Chain struct {
	Txs []AssembledTx
}

// ChainPlan is the full set of assembled, unsigned chains.
type ChainPlan struct {
	Chains []Chain
}

// LastTxInfo is the self-contained record an external RBF rebuilder needs
// to reconstruct and re-sign a chain's final reveal.
type LastTxInfo struct {
	TxID                string
	Hex                 string
	Fee                 int64
	SpentTxID           string
	SpentVout           uint32
	SpentValue          int64
	Outputs             []TxOutInfo
	SigningPrivateKeyWIF string
	FinalChangeAddress  string
	Network             string
	RevealOutValue      int64
	MinChangeValue      int64
	PrevInputPkScriptHex string
	RevealPkScriptHex    string
	FinalChangePkScriptHex string
	LeafHashHex          string
}

// TxOutInfo is a (pk_script, value) pair.
type TxOutInfo struct {
	PkScriptHex string
	Value       int64
}

// ChainResult is one chain's packaged output.
type ChainResult struct {
	ChainID    string
	CommitHex  string
	CommitTxID string
	RevealHex  []string
	RevealTxIDs []string
	TotalFee   int64
	LastTx     LastTxInfo
}

// Result is the engine's top-level output envelope.
type Result struct {
	Success           bool
	Error             string
	BatchID           string
	Chains            []ChainResult
	TotalEstimatedFee int64
}

// BuildEvent is one phase transition of a batch build, broadcast to
// progress subscribers. It is not persisted by the result store.
type BuildEvent struct {
	BatchID string
	ChainID string
	Phase   string
	Detail  string
	At      int64
}
