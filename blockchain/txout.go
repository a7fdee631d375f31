package blockchain

import (
	"bytes"
	"fmt"

	"github.com/holbertonschool/atlas-blockchain/chainerr"
	"github.com/holbertonschool/atlas-blockchain/crypto"
)

// TxOut is an indivisible allocation of value locked to a public key.
// Hash is not a cache: it is the invariant `SHA256(amount ‖ pub)` that every
// tx_in references by value, so two outputs with the same amount and pub
// are indistinguishable on the wire and in the unspent set.
type TxOut struct {
	Amount uint32
	Pub    [crypto.PubKeyLen]byte
	Hash   [32]byte
}

// NewTxOut builds a TxOut locked to pub and computes its hash. amount must
// be non-zero.
func NewTxOut(amount uint32, pub [crypto.PubKeyLen]byte) (*TxOut, error) {
	if amount == 0 {
		return nil, chainerr.New(chainerr.InvalidArgument, "NewTxOut", fmt.Errorf("amount must be non-zero"))
	}
	out := &TxOut{Amount: amount, Pub: pub}
	buf := txOutHashInput(amount, pub)
	out.Hash = crypto.SHA256(buf[:])
	return out, nil
}

// IsLockedWith reports whether out is spendable by the holder of pub.
func (out *TxOut) IsLockedWith(pub [crypto.PubKeyLen]byte) bool {
	return bytes.Equal(out.Pub[:], pub[:])
}

// UnspentTxOut is a standalone value copy of a TxOut together with the
// location — (block hash, transaction id) — that produced it. The triple
// (BlockHash, TxID, Out.Hash) is the unique key the rest of the package
// uses to reference it.
type UnspentTxOut struct {
	BlockHash [32]byte
	TxID      [32]byte
	Out       TxOut
}

// NewUnspentTxOut copies block hash, transaction id, and out byte-for-byte;
// it never aliases the caller's TxOut.
func NewUnspentTxOut(blockHash, txID [32]byte, out TxOut) *UnspentTxOut {
	return &UnspentTxOut{BlockHash: blockHash, TxID: txID, Out: out}
}

// key is the 96-byte (block_hash ‖ tx_id ‖ out_hash) triple that identifies
// exactly one UnspentTxOut, used both for in-slice matching and as the
// badger index key in unspentindex.go.
func (u *UnspentTxOut) key() [96]byte {
	var k [96]byte
	copy(k[0:32], u.BlockHash[:])
	copy(k[32:64], u.TxID[:])
	copy(k[64:96], u.Out.Hash[:])
	return k
}

func txInKey(blockHash, txID, txOutHash [32]byte) [96]byte {
	var k [96]byte
	copy(k[0:32], blockHash[:])
	copy(k[32:64], txID[:])
	copy(k[64:96], txOutHash[:])
	return k
}

// UpdateUnspent produces a fresh unspent set: every entry of old not
// consumed by an input of newTxs survives, followed by a freshly built
// UnspentTxOut for every output of every transaction in newTxs, addressed
// by newBlockHash. old is never mutated.
func UpdateUnspent(newTxs []*Transaction, newBlockHash [32]byte, old []UnspentTxOut) []UnspentTxOut {
	spent := make(map[[96]byte]struct{})
	for _, tx := range newTxs {
		for _, in := range tx.Inputs {
			spent[txInKey(in.BlockHash, in.TxID, in.TxOutHash)] = struct{}{}
		}
	}

	next := make([]UnspentTxOut, 0, len(old)+len(newTxs))
	for _, e := range old {
		if _, consumed := spent[e.key()]; !consumed {
			next = append(next, e)
		}
	}
	for _, tx := range newTxs {
		for _, out := range tx.Outputs {
			next = append(next, *NewUnspentTxOut(newBlockHash, tx.ID, out))
		}
	}
	return next
}

// findUnspent returns the entry matching (blockHash, txID, txOutHash), if any.
func findUnspent(unspent []UnspentTxOut, blockHash, txID, txOutHash [32]byte) (*UnspentTxOut, bool) {
	want := txInKey(blockHash, txID, txOutHash)
	for i := range unspent {
		if unspent[i].key() == want {
			return &unspent[i], true
		}
	}
	return nil, false
}
