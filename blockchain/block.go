package blockchain

import (
	"fmt"
	"time"

	"github.com/holbertonschool/atlas-blockchain/chainerr"
	"github.com/holbertonschool/atlas-blockchain/crypto"
)

// DataMax is the maximum number of bytes a block may carry in its free-form
// Data field.
const DataMax = 1024

// blockInfo is the block's fixed-layout header. Every field here
// participates in the block hash, in this declared order (see encode.go).
type blockInfo struct {
	Index      uint32
	Difficulty uint32
	Timestamp  uint64
	Nonce      uint64
	PrevHash   [32]byte
}

// blockData is the block's free-form payload: up to DataMax bytes, never
// null-terminated.
type blockData struct {
	Buffer [DataMax]byte
	Len    uint32
}

// Block is a chained unit of the blockchain: a header (Info), free-form
// data, an ordered list of transactions, and the block's own hash. A nil
// Transactions slice is only valid for the genesis block.
type Block struct {
	Info         blockInfo
	Data         blockData
	Transactions []Transaction
	Hash         [32]byte
}

// NewBlock allocates a block linked to prev: index = prev.Index+1,
// difficulty inherited from prev, prev_hash = prev.Hash, timestamp = now,
// nonce = 0. data is copied and must not exceed DataMax bytes. Hash is left
// zero and Transactions nil until the caller attaches transactions and mines.
func NewBlock(prev *Block, data []byte) (*Block, error) {
	if len(data) > DataMax {
		return nil, chainerr.New(chainerr.InvalidArgument, "NewBlock", fmt.Errorf("data of %d bytes exceeds the %d-byte cap", len(data), DataMax))
	}

	b := &Block{}
	if prev != nil {
		b.Info.Index = prev.Info.Index + 1
		b.Info.Difficulty = prev.Info.Difficulty
		b.Info.PrevHash = prev.Hash
	}
	b.Info.Timestamp = uint64(time.Now().Unix())
	copy(b.Data.Buffer[:], data)
	b.Data.Len = uint32(len(data))
	return b, nil
}

// computeHash is the pure function block_hash(block): SHA-256 over the
// fixed-layout info, the first data.Len bytes of data, and — if present —
// every transaction's id in order. It depends on nothing else, in
// particular never on b.Hash itself.
func (b *Block) computeHash() [32]byte {
	buf := blockInfoBytes(b.Info)
	buf = append(buf, b.Data.Buffer[:b.Data.Len]...)
	for _, tx := range b.Transactions {
		buf = append(buf, tx.ID[:]...)
	}
	return crypto.SHA256(buf)
}

// HashMatchesDifficulty reports whether the first difficulty bits of hash,
// read most-significant-bit first within each byte, are all zero. difficulty
// above 256 is invalid and always reports false.
func HashMatchesDifficulty(hash [32]byte, difficulty uint32) bool {
	if difficulty > 256 {
		return false
	}
	fullBytes := difficulty / 8
	remBits := difficulty % 8
	for i := uint32(0); i < fullBytes; i++ {
		if hash[i] != 0 {
			return false
		}
	}
	if remBits == 0 {
		return true
	}
	mask := byte(0xFF << (8 - remBits))
	return hash[fullBytes]&mask == 0
}

// IsValid checks b against the rules in SPEC_FULL.md §4.4: the genesis
// block is compared field-by-field against the fixed constants; any other
// block must link to prev, stay within the data cap, carry a valid
// coinbase plus valid further transactions against unspent, recompute to
// its own stored hash, and satisfy its own difficulty target.
func (b *Block) IsValid(prev *Block, unspent []UnspentTxOut) error {
	if b.Info.Index == 0 {
		return b.validateGenesis()
	}

	if prev == nil {
		return chainerr.New(chainerr.ValidationFailure, "Block.IsValid", fmt.Errorf("non-genesis block requires a previous block"))
	}
	if b.Info.Index != prev.Info.Index+1 {
		return chainerr.New(chainerr.ValidationFailure, "Block.IsValid", fmt.Errorf("index %d does not follow previous index %d", b.Info.Index, prev.Info.Index))
	}
	prevHash := prev.computeHash()
	if prevHash != prev.Hash || prevHash != b.Info.PrevHash {
		return chainerr.New(chainerr.ValidationFailure, "Block.IsValid", fmt.Errorf("previous block hash mismatch"))
	}
	if b.Data.Len > DataMax {
		return chainerr.New(chainerr.ValidationFailure, "Block.IsValid", fmt.Errorf("data length %d exceeds %d-byte cap", b.Data.Len, DataMax))
	}
	if len(b.Transactions) < 1 {
		return chainerr.New(chainerr.ValidationFailure, "Block.IsValid", fmt.Errorf("block must contain at least a coinbase transaction"))
	}
	if err := b.Transactions[0].IsValidCoinbase(b.Info.Index); err != nil {
		return chainerr.New(chainerr.ValidationFailure, "Block.IsValid", err)
	}
	for i := 1; i < len(b.Transactions); i++ {
		if err := b.Transactions[i].IsValid(unspent); err != nil {
			return chainerr.New(chainerr.ValidationFailure, "Block.IsValid", err)
		}
	}

	if b.computeHash() != b.Hash {
		return chainerr.New(chainerr.ValidationFailure, "Block.IsValid", fmt.Errorf("stored hash does not match recomputed hash"))
	}
	if !HashMatchesDifficulty(b.Hash, b.Info.Difficulty) {
		return chainerr.New(chainerr.ValidationFailure, "Block.IsValid", fmt.Errorf("hash does not satisfy difficulty %d", b.Info.Difficulty))
	}
	return nil
}

func (b *Block) validateGenesis() error {
	genesis := Genesis()
	if b.Info != genesis.Info || b.Data != genesis.Data || len(b.Transactions) != 0 || b.Hash != genesis.Hash {
		return chainerr.New(chainerr.ValidationFailure, "Block.IsValid", fmt.Errorf("genesis block does not match the fixed constants"))
	}
	return nil
}
