package blockchain_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holbertonschool/atlas-blockchain/blockchain"
)

// S1 from SPEC_FULL.md §8.
func TestSerializeGenesisOnlyHeader(t *testing.T) {
	bc := blockchain.New()

	var buf bytes.Buffer
	require.NoError(t, bc.Serialize(&buf))

	header := buf.Bytes()[:7]
	require.Equal(t, []byte{0x48, 0x42, 0x4c, 0x4b, 0x30, 0x2e, 0x33}, header)

	got, err := blockchain.Deserialize(&buf)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	require.Empty(t, got.Unspent())
	require.Equal(t, *blockchain.Genesis(), got.Block(0))
}

// Property 5: round trip.
func TestSerializeRoundTripWithTransactions(t *testing.T) {
	bc := blockchain.New()
	a := mustKeyPair(t)
	b := mustKeyPair(t)

	coinbase1, err := blockchain.NewCoinbase(a, 1)
	require.NoError(t, err)
	tail := bc.Tail()
	block1, err := blockchain.NewBlock(&tail, []byte("block 1"))
	require.NoError(t, err)
	block1.Info.Difficulty = 4
	block1.Transactions = []blockchain.Transaction{*coinbase1}
	require.NoError(t, block1.Mine(context.Background()))
	require.NoError(t, bc.AddBlock(block1))

	tx, err := blockchain.NewTransaction(a, b, 30, bc.Unspent())
	require.NoError(t, err)
	coinbase2, err := blockchain.NewCoinbase(a, 2)
	require.NoError(t, err)
	tail2 := bc.Tail()
	block2, err := blockchain.NewBlock(&tail2, nil)
	require.NoError(t, err)
	block2.Info.Difficulty = 4
	block2.Transactions = []blockchain.Transaction{*coinbase2, *tx}
	require.NoError(t, block2.Mine(context.Background()))
	require.NoError(t, bc.AddBlock(block2))

	var buf bytes.Buffer
	require.NoError(t, bc.Serialize(&buf))

	got, err := blockchain.Deserialize(&buf)
	require.NoError(t, err)
	require.Equal(t, bc.Len(), got.Len())
	for i := 0; i < bc.Len(); i++ {
		require.Equal(t, bc.Block(i), got.Block(i))
	}
	require.ElementsMatch(t, bc.Unspent(), got.Unspent())
}

// Property 13: a chain loaded via DeserializeWithIndex carries a lookup
// index already in agreement with its unspent slice.
func TestDeserializeWithIndexRebuildsFromLoadedSlice(t *testing.T) {
	bc := blockchain.New()
	a := mustKeyPair(t)

	coinbase, err := blockchain.NewCoinbase(a, 1)
	require.NoError(t, err)
	tail := bc.Tail()
	block, err := blockchain.NewBlock(&tail, []byte("block 1"))
	require.NoError(t, err)
	block.Info.Difficulty = 4
	block.Transactions = []blockchain.Transaction{*coinbase}
	require.NoError(t, block.Mine(context.Background()))
	require.NoError(t, bc.AddBlock(block))

	var buf bytes.Buffer
	require.NoError(t, bc.Serialize(&buf))

	got, err := blockchain.DeserializeWithIndex(&buf, filepath.Join(t.TempDir(), "utxo"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = got.Close() })

	for _, e := range got.Unspent() {
		out, err := got.LookupUnspent(e.BlockHash, e.TxID, e.Out.Hash)
		require.NoError(t, err)
		require.Equal(t, e.Out.Amount, out.Amount)
	}
}
