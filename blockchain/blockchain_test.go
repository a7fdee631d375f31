package blockchain_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holbertonschool/atlas-blockchain/blockchain"
)

// Property 1: genesis uniqueness.
func TestNewBlockchainHasOnlyGenesis(t *testing.T) {
	bc := blockchain.New()
	require.Equal(t, 1, bc.Len())
	require.Equal(t, *blockchain.Genesis(), bc.Block(0))
	require.Equal(t, *blockchain.Genesis(), bc.Tail())
	require.Empty(t, bc.Unspent())
}

func mineBlock(t *testing.T, bc *blockchain.Blockchain, data []byte, difficulty uint32, txs []blockchain.Transaction) *blockchain.Block {
	t.Helper()
	tail := bc.Tail()
	b, err := blockchain.NewBlock(&tail, data)
	require.NoError(t, err)
	b.Info.Difficulty = difficulty
	b.Transactions = txs
	require.NoError(t, b.Mine(context.Background()))
	return b
}

func TestAddBlockAppendsAndUpdatesUnspent(t *testing.T) {
	bc := blockchain.New()
	a := mustKeyPair(t)

	coinbase, err := blockchain.NewCoinbase(a, 1)
	require.NoError(t, err)
	b := mineBlock(t, bc, []byte("block 1"), 4, []blockchain.Transaction{*coinbase})

	require.NoError(t, bc.AddBlock(b))
	require.Equal(t, 2, bc.Len())
	require.Len(t, bc.Unspent(), 1)
	require.Equal(t, uint32(blockchain.CoinbaseAmount), bc.Unspent()[0].Out.Amount)
}

func TestAddBlockRejectsInvalidBlock(t *testing.T) {
	bc := blockchain.New()
	a := mustKeyPair(t)

	coinbase, err := blockchain.NewCoinbase(a, 1)
	require.NoError(t, err)
	b := mineBlock(t, bc, []byte("block 1"), 4, []blockchain.Transaction{*coinbase})
	b.Info.Nonce++ // invalidate without remining

	require.Error(t, bc.AddBlock(b))
	require.Equal(t, 1, bc.Len())
}

func TestFindTransaction(t *testing.T) {
	bc := blockchain.New()
	a := mustKeyPair(t)

	coinbase, err := blockchain.NewCoinbase(a, 1)
	require.NoError(t, err)
	b := mineBlock(t, bc, []byte("block 1"), 4, []blockchain.Transaction{*coinbase})
	require.NoError(t, bc.AddBlock(b))

	got, err := bc.FindTransaction(coinbase.ID)
	require.NoError(t, err)
	require.Equal(t, coinbase.ID, got.ID)

	var missing [32]byte
	missing[0] = 0xFF
	_, err = bc.FindTransaction(missing)
	require.Error(t, err)
}

// Property 13: an attached UnspentIndex tracks AddBlock one-for-one with
// the canonical unspent slice.
func TestAddBlockKeepsAttachedIndexInSync(t *testing.T) {
	bc := blockchain.New()
	idx, err := blockchain.OpenUnspentIndex(filepath.Join(t.TempDir(), "utxo"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, bc.AttachIndex(idx))

	a := mustKeyPair(t)
	b := mustKeyPair(t)

	coinbase, err := blockchain.NewCoinbase(a, 1)
	require.NoError(t, err)
	block1 := mineBlock(t, bc, []byte("block 1"), 4, []blockchain.Transaction{*coinbase})
	require.NoError(t, bc.AddBlock(block1))

	spent := bc.Unspent()[0]
	out, err := bc.LookupUnspent(spent.BlockHash, spent.TxID, spent.Out.Hash)
	require.NoError(t, err)
	require.Equal(t, spent.Out.Amount, out.Amount)

	tx, err := blockchain.NewTransaction(a, b, 30, bc.Unspent())
	require.NoError(t, err)
	coinbase2, err := blockchain.NewCoinbase(a, 2)
	require.NoError(t, err)
	block2 := mineBlock(t, bc, []byte("block 2"), 4, []blockchain.Transaction{*coinbase2, *tx})
	require.NoError(t, bc.AddBlock(block2))

	// The consumed coinbase output must be gone from the index too.
	_, err = bc.LookupUnspent(spent.BlockHash, spent.TxID, spent.Out.Hash)
	require.Error(t, err)

	for _, e := range bc.Unspent() {
		out, err := bc.LookupUnspent(e.BlockHash, e.TxID, e.Out.Hash)
		require.NoError(t, err)
		require.Equal(t, e.Out.Amount, out.Amount)
	}
}

// Property 8: difficulty retargeting triggers only every 5th block.
func TestDifficultyRetargetInterval(t *testing.T) {
	bc := blockchain.New()
	a := mustKeyPair(t)

	for i := uint32(1); i <= 5; i++ {
		coinbase, err := blockchain.NewCoinbase(a, i)
		require.NoError(t, err)
		before := bc.Difficulty()
		// The tail's index is 0..4 here, so no retarget happens yet.
		require.Equal(t, bc.Tail().Info.Difficulty, before)
		b := mineBlock(t, bc, nil, before, []blockchain.Transaction{*coinbase})
		require.NoError(t, bc.AddBlock(b))
	}
	// after 5 blocks (index 5, a multiple of DIFFICULTY_ADJUSTMENT_INTERVAL)
	// difficulty may have shifted by exactly one from the block-4 value.
	require.Equal(t, 6, bc.Len())
	tailDifficulty := bc.Tail().Info.Difficulty
	require.Contains(t, []uint32{tailDifficulty, tailDifficulty + 1}, bc.Difficulty())
}
