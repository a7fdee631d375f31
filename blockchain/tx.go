package blockchain

import (
	"fmt"

	"github.com/holbertonschool/atlas-blockchain/chainerr"
	"github.com/holbertonschool/atlas-blockchain/crypto"
)

// TxIn references a prior UnspentTxOut being spent. The three hashes
// together are the only thing that identifies which output is being
// consumed; Sig is filled in afterwards by Sign.
type TxIn struct {
	BlockHash [32]byte
	TxID      [32]byte
	TxOutHash [32]byte
	Sig       crypto.Signature
}

// NewTxIn builds an input spending unspent, with a zeroed signature —
// the input is not valid until Sign is called on it.
func NewTxIn(unspent *UnspentTxOut) *TxIn {
	return &TxIn{
		BlockHash: unspent.BlockHash,
		TxID:      unspent.TxID,
		TxOutHash: unspent.Out.Hash,
	}
}

// Sign locates the unspent entry this input references, checks that sender
// actually owns it (out.Pub matches the sender's public key), and signs
// txID — the transaction's id, already a 32-byte digest — storing the
// resulting DER signature on the input.
func (in *TxIn) Sign(txID [32]byte, sender *crypto.KeyPair, unspent []UnspentTxOut) error {
	entry, ok := findUnspent(unspent, in.BlockHash, in.TxID, in.TxOutHash)
	if !ok {
		return chainerr.New(chainerr.NotFound, "TxIn.Sign", fmt.Errorf("referenced unspent output not found"))
	}
	senderPub := sender.PublicKeyBytes()
	if !entry.Out.IsLockedWith(senderPub) {
		return chainerr.New(chainerr.NotFound, "TxIn.Sign", fmt.Errorf("sender public key does not match the referenced output"))
	}
	sig, err := sender.Sign(txID)
	if err != nil {
		return chainerr.New(chainerr.CryptoFailure, "TxIn.Sign", err)
	}
	in.Sig = sig
	return nil
}
