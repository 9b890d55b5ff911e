// Command fundkeygen is a development utility that derives a single
// funding keypair from a BIP39 mnemonic, for populating a test
// FundingOutput without standing up a full wallet.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/tyler-smith/go-bip39"
)

func main() {
	var (
		mnemonicFlag = flag.String("mnemonic", "", "BIP39 mnemonic (space-separated words)")
		generate     = flag.Bool("generate", false, "generate a fresh 24-word mnemonic instead of reading --mnemonic")
		passphrase   = flag.String("passphrase", "", "optional BIP39 passphrase")
		testnet      = flag.Bool("testnet", false, "derive a testnet address")
		addrType     = flag.String("type", "p2tr", "address type to derive: p2wpkh or p2tr")
	)
	flag.Parse()

	mnemonic := *mnemonicFlag
	if *generate {
		m, err := generateMnemonic()
		if err != nil {
			fmt.Fprintln(os.Stderr, "generate mnemonic:", err)
			os.Exit(1)
		}
		mnemonic = m
		fmt.Fprintln(os.Stderr, "mnemonic:", mnemonic)
	}

	if mnemonic == "" {
		fmt.Fprintln(os.Stderr, "one of --mnemonic or --generate is required")
		os.Exit(2)
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		fmt.Fprintln(os.Stderr, "invalid mnemonic")
		os.Exit(2)
	}

	params := &chaincfg.MainNetParams
	if *testnet {
		params = &chaincfg.TestNet3Params
	}

	seed := bip39.NewSeed(mnemonic, *passphrase)
	priv, pub, err := deriveAccountZeroIndexZero(seed, params, *addrType)
	if err != nil {
		fmt.Fprintln(os.Stderr, "derive key:", err)
		os.Exit(1)
	}

	address, err := addressFor(*addrType, pub, params)
	if err != nil {
		fmt.Fprintln(os.Stderr, "derive address:", err)
		os.Exit(1)
	}

	wif, err := btcutil.NewWIF(priv, params, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode wif:", err)
		os.Exit(1)
	}

	fmt.Printf("address:     %s\n", address)
	fmt.Printf("private_key: %s\n", wif.String())
}

func generateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// deriveAccountZeroIndexZero derives the external receiving key at
// m/purpose'/coin'/0'/0/0, where purpose is 84 (P2WPKH) or 86 (P2TR) and
// coin is 0 for mainnet or 1 for testnet, per BIP44/84/86.
func deriveAccountZeroIndexZero(seed []byte, params *chaincfg.Params, addrType string) (*btcec.PrivateKey, *btcec.PublicKey, error) {
	purpose := uint32(84)
	if addrType == "p2tr" {
		purpose = 86
	}
	coinType := uint32(0)
	if params.Net != chaincfg.MainNetParams.Net {
		coinType = 1
	}

	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, nil, err
	}

	key := master
	for _, step := range []uint32{
		hdkeychain.HardenedKeyStart + purpose,
		hdkeychain.HardenedKeyStart + coinType,
		hdkeychain.HardenedKeyStart + 0, // account 0
		0,                               // external chain
		0,                               // index 0
	} {
		key, err = key.Derive(step)
		if err != nil {
			return nil, nil, err
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, nil, err
	}
	pub, err := key.ECPubKey()
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

func addressFor(addrType string, pub *btcec.PublicKey, params *chaincfg.Params) (string, error) {
	switch addrType {
	case "p2wpkh":
		hash := btcutil.Hash160(pub.SerializeCompressed())
		addr, err := btcutil.NewAddressWitnessPubKeyHash(hash, params)
		if err != nil {
			return "", err
		}
		return addr.EncodeAddress(), nil
	case "p2tr":
		outputKey := txscript.ComputeTaprootKeyNoScript(pub)
		addr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), params)
		if err != nil {
			return "", err
		}
		return addr.EncodeAddress(), nil
	default:
		return "", fmt.Errorf("unsupported address type %q (want p2wpkh or p2tr)", addrType)
	}
}
