package blockchain

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/holbertonschool/atlas-blockchain/chainerr"
)

// UnspentIndex is a badger-backed point-lookup cache over the unspent set,
// keyed by the 96-byte (block_hash ‖ tx_id ‖ out_hash) triple. It exists to
// turn a linear scan over the unspent slice into an indexed lookup
// (Blockchain.LookupUnspent); it is never the source of truth — that is
// always the Blockchain.unspent slice — and it is never part of the
// canonical file format in serialize.go. DeserializeWithIndex opens one and
// rebuilds it from the loaded slice; Blockchain.AddBlock keeps an attached
// index updated via Apply on every call after that.
type UnspentIndex struct {
	db *badger.DB
}

// OpenUnspentIndex opens (creating if absent) a badger database rooted at
// dir to back an UnspentIndex.
func OpenUnspentIndex(dir string) (*UnspentIndex, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, chainerr.New(chainerr.IoFailure, "OpenUnspentIndex", err)
	}
	return &UnspentIndex{db: db}, nil
}

// Close releases the underlying badger database.
func (idx *UnspentIndex) Close() error {
	if err := idx.db.Close(); err != nil {
		return chainerr.New(chainerr.IoFailure, "UnspentIndex.Close", err)
	}
	return nil
}

// Rebuild discards every entry currently in the index and repopulates it
// from unspent, the canonical slice. It is the only way the index is ever
// brought into agreement with a slice loaded from outside Apply.
func (idx *UnspentIndex) Rebuild(unspent []UnspentTxOut) error {
	if err := idx.clear(); err != nil {
		return chainerr.New(chainerr.IoFailure, "UnspentIndex.Rebuild", err)
	}
	err := idx.db.Update(func(txn *badger.Txn) error {
		for i := range unspent {
			if err := setEntry(txn, &unspent[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return chainerr.New(chainerr.IoFailure, "UnspentIndex.Rebuild", err)
	}
	return nil
}

func (idx *UnspentIndex) clear() error {
	return idx.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Lookup returns the TxOut stored under (blockHash, txID, outHash), if any.
func (idx *UnspentIndex) Lookup(blockHash, txID, outHash [32]byte) (*TxOut, bool, error) {
	key := txInKey(blockHash, txID, outHash)
	var out *TxOut
	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key[:])
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := decodeIndexedTxOut(val)
			if err != nil {
				return err
			}
			out = decoded
			return nil
		})
	})
	if err != nil {
		return nil, false, chainerr.New(chainerr.IoFailure, "UnspentIndex.Lookup", err)
	}
	return out, out != nil, nil
}

// Apply mirrors UpdateUnspent against the index: every input of newTxs
// removes its referenced entry, then every output of newTxs is inserted
// keyed by newBlockHash. Call this in lock-step with UpdateUnspent so the
// index and the canonical slice never disagree (testable property 13).
func (idx *UnspentIndex) Apply(newTxs []*Transaction, newBlockHash [32]byte) error {
	err := idx.db.Update(func(txn *badger.Txn) error {
		for _, tx := range newTxs {
			for _, in := range tx.Inputs {
				key := txInKey(in.BlockHash, in.TxID, in.TxOutHash)
				if err := txn.Delete(key[:]); err != nil && err != badger.ErrKeyNotFound {
					return err
				}
			}
		}
		for _, tx := range newTxs {
			for _, out := range tx.Outputs {
				entry := NewUnspentTxOut(newBlockHash, tx.ID, out)
				if err := setEntry(txn, entry); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return chainerr.New(chainerr.IoFailure, "UnspentIndex.Apply", err)
	}
	return nil
}

func setEntry(txn *badger.Txn, e *UnspentTxOut) error {
	key := e.key()
	return txn.Set(key[:], encodeIndexedTxOut(&e.Out))
}

// encodeIndexedTxOut/decodeIndexedTxOut store exactly the (amount ‖ pub)
// bytes a tx_out hashes over — the index value can always recompute Hash
// itself, so there is nothing else worth persisting per entry.
func encodeIndexedTxOut(out *TxOut) []byte {
	buf := txOutHashInput(out.Amount, out.Pub)
	return buf[:]
}

func decodeIndexedTxOut(val []byte) (*TxOut, error) {
	if len(val) != 4+crypto65 {
		return nil, fmt.Errorf("corrupt unspent index entry: %d bytes", len(val))
	}
	amount := binary.LittleEndian.Uint32(val[0:4])
	var pub [crypto65]byte
	copy(pub[:], val[4:])
	out, err := NewTxOut(amount, pub)
	if err != nil {
		return nil, err
	}
	return out, nil
}
