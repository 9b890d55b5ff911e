// Package network trims the ambient multi-chain network configuration down
// to the two Bitcoin networks this engine supports, and provides the
// address<->script helpers every other component needs.
package network

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/chainscribe/chainscribe/internal/model"
)

// Mainnet and Testnet are the only two networks this engine addresses;
// the result's network_type string is "mainnet" for the former, "testnet"
// for everything else, matching the wire contract.
var (
	Mainnet = &model.NetworkParams{Name: "mainnet", IsTest: false}
	Testnet = &model.NetworkParams{Name: "testnet", IsTest: true}
)

// ChainParams returns the chaincfg.Params backing a model.NetworkParams.
func ChainParams(n *model.NetworkParams) *chaincfg.Params {
	if n == nil || !n.IsTest {
		return &chaincfg.MainNetParams
	}
	return &chaincfg.TestNet3Params
}

// Parse resolves the "mainnet"/"testnet" config/CLI string into a
// model.NetworkParams.
func Parse(s string) (*model.NetworkParams, error) {
	switch s {
	case "mainnet", "":
		return Mainnet, nil
	case "testnet":
		return Testnet, nil
	default:
		return nil, fmt.Errorf("unsupported network %q", s)
	}
}

// AddrToPkScript decodes an address under the given network and returns
// its output script.
func AddrToPkScript(address string, params *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", address, err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("pk script for %q: %w", address, err)
	}
	return script, nil
}

// DecodeAddress decodes an address and classifies its spending scheme.
func DecodeAddress(address string, params *chaincfg.Params) (btcutil.Address, model.AddressType, error) {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, model.AddressUnknown, fmt.Errorf("decode address %q: %w", address, err)
	}
	switch addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return addr, model.AddressP2PKH, nil
	case *btcutil.AddressWitnessPubKeyHash:
		return addr, model.AddressP2WPKH, nil
	case *btcutil.AddressScriptHash:
		// P2SH is only accepted here in its P2SH-P2WPKH nested-segwit
		// form; the caller is responsible for rejecting bare P2SH that
		// doesn't wrap a witness program it can sign for.
		return addr, model.AddressP2SHP2WPKH, nil
	case *btcutil.AddressTaproot:
		return addr, model.AddressP2TR, nil
	default:
		return addr, model.AddressUnknown, fmt.Errorf("unsupported address type %T for %q", addr, address)
	}
}
