// Package blockchain implements the core of a minimal UTXO blockchain:
// blocks linked by hash, ECDSA-signed transactions validated against an
// unspent-output set, proof-of-work mining and difficulty retargeting, and
// the canonical binary format used to persist a chain to disk.
package blockchain

import (
	"fmt"
	"sync"

	"github.com/holbertonschool/atlas-blockchain/chainerr"
)

// Genesis fixed constants (SPEC_FULL.md §3). These never change and are
// never recomputed at runtime — they are the one block every chain must
// agree on without validating it against a predecessor.
const (
	genesisTimestamp = 1537578000
	genesisData      = "Holberton School"
)

var genesisHash = [32]byte{
	0xc5, 0x2c, 0x26, 0xc8, 0xb5, 0x46, 0x16, 0x39,
	0x63, 0x5d, 0x8e, 0xdf, 0x2a, 0x97, 0xd4, 0x8d,
	0x0c, 0x8e, 0x00, 0x09, 0xc8, 0x17, 0xf2, 0xb1,
	0xd3, 0xd7, 0xff, 0x2f, 0x04, 0x51, 0x58, 0x03,
}

// Genesis returns the fixed genesis block. It is built fresh every call so
// callers never share a mutable pointer into it.
func Genesis() *Block {
	b := &Block{}
	b.Info.Index = 0
	b.Info.Difficulty = 0
	b.Info.Timestamp = genesisTimestamp
	b.Info.Nonce = 0
	// PrevHash left zero.
	copy(b.Data.Buffer[:], genesisData)
	b.Data.Len = uint32(len(genesisData))
	b.Transactions = nil
	b.Hash = genesisHash
	return b
}

// Difficulty retargeting constants (SPEC_FULL.md §4.5).
const (
	blockGenerationInterval        = 1
	difficultyAdjustmentInterval   = 5
	expectedAdjustmentIntervalSecs = blockGenerationInterval * difficultyAdjustmentInterval
)

// Blockchain is the ordered chain of blocks plus the current unspent-output
// set. The chain slice is guarded by a mutex so mining or exporting the
// tail can run concurrently with a producer appending a new block; the
// unspent slice has no such requirement (SPEC_FULL.md §5).
type Blockchain struct {
	mu    sync.RWMutex
	chain []Block

	unspent []UnspentTxOut
	index   *UnspentIndex
}

// New builds a blockchain containing exactly the genesis block and an
// empty unspent set.
func New() *Blockchain {
	return &Blockchain{chain: []Block{*Genesis()}}
}

// Len returns the number of blocks in the chain.
func (bc *Blockchain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.chain)
}

// Block returns a copy of the chain block at index i.
func (bc *Blockchain) Block(i int) Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.chain[i]
}

// Tail returns a copy of the chain's last block.
func (bc *Blockchain) Tail() Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.chain[len(bc.chain)-1]
}

// Unspent returns a copy of the current unspent-output set.
func (bc *Blockchain) Unspent() []UnspentTxOut {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	out := make([]UnspentTxOut, len(bc.unspent))
	copy(out, bc.unspent)
	return out
}

// Difficulty computes the difficulty the next block should mine at, per
// the retargeting rule in SPEC_FULL.md §4.5.
func (bc *Blockchain) Difficulty() uint32 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return difficultyFor(bc.chain)
}

func difficultyFor(chain []Block) uint32 {
	tail := chain[len(chain)-1]
	if tail.Info.Index == 0 || tail.Info.Index%difficultyAdjustmentInterval != 0 || len(chain) < difficultyAdjustmentInterval {
		return tail.Info.Difficulty
	}

	ref := chain[len(chain)-difficultyAdjustmentInterval]
	var actual uint64
	if tail.Info.Timestamp > ref.Info.Timestamp {
		actual = tail.Info.Timestamp - ref.Info.Timestamp
	}

	switch {
	case actual*2 < expectedAdjustmentIntervalSecs:
		return tail.Info.Difficulty + 1
	case actual > expectedAdjustmentIntervalSecs*2 && tail.Info.Difficulty > 0:
		return tail.Info.Difficulty - 1
	default:
		return tail.Info.Difficulty
	}
}

// AddBlock validates block against the chain tail and current unspent set
// and, only on success, appends it and replaces the unspent set with
// UpdateUnspent's result. A rejected block never mutates chain state. If an
// UnspentIndex is attached (see AttachIndex), it is updated in lock-step
// with the canonical slice so the two never disagree (testable property 13).
func (bc *Blockchain) AddBlock(block *Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	tail := bc.chain[len(bc.chain)-1]
	if err := block.IsValid(&tail, bc.unspent); err != nil {
		return chainerr.New(chainerr.ValidationFailure, "Blockchain.AddBlock", err)
	}

	txs := make([]*Transaction, len(block.Transactions))
	for i := range block.Transactions {
		txs[i] = &block.Transactions[i]
	}

	if bc.index != nil {
		if err := bc.index.Apply(txs, block.Hash); err != nil {
			return chainerr.New(chainerr.IoFailure, "Blockchain.AddBlock", err)
		}
	}

	bc.chain = append(bc.chain, *block)
	bc.unspent = UpdateUnspent(txs, block.Hash, bc.unspent)
	return nil
}

// AttachIndex binds idx to bc as its unspent-output lookup cache and
// rebuilds idx from bc's current unspent slice, the canonical source of
// truth. Subsequent AddBlock calls keep idx updated automatically.
func (bc *Blockchain) AttachIndex(idx *UnspentIndex) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if err := idx.Rebuild(bc.unspent); err != nil {
		return err
	}
	bc.index = idx
	return nil
}

// Close releases the attached UnspentIndex, if any. A Blockchain with no
// attached index is a no-op to close.
func (bc *Blockchain) Close() error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.index == nil {
		return nil
	}
	return bc.index.Close()
}

// LookupUnspent consults the attached UnspentIndex for (blockHash, txID,
// outHash). It returns InvalidArgument if no index is attached rather than
// silently reporting a miss, and NotFound if the index has no such entry.
func (bc *Blockchain) LookupUnspent(blockHash, txID, outHash [32]byte) (*TxOut, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if bc.index == nil {
		return nil, chainerr.New(chainerr.InvalidArgument, "Blockchain.LookupUnspent", fmt.Errorf("no unspent index attached"))
	}
	out, ok, err := bc.index.Lookup(blockHash, txID, outHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, chainerr.New(chainerr.NotFound, "Blockchain.LookupUnspent", fmt.Errorf("unspent output not found"))
	}
	return out, nil
}

// FindTransaction scans the chain newest-block-first for a transaction
// with the given id.
func (bc *Blockchain) FindTransaction(id [32]byte) (Transaction, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	for i := len(bc.chain) - 1; i >= 0; i-- {
		for _, tx := range bc.chain[i].Transactions {
			if tx.ID == id {
				return tx, nil
			}
		}
	}
	return Transaction{}, chainerr.New(chainerr.NotFound, "Blockchain.FindTransaction", fmt.Errorf("transaction %x not found", id))
}
