package blockchain_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holbertonschool/atlas-blockchain/blockchain"
)

// Property 13: lookup-cache consistency.
func TestUnspentIndexAgreesWithCanonicalSlice(t *testing.T) {
	idx, err := blockchain.OpenUnspentIndex(filepath.Join(t.TempDir(), "utxo"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	a := mustKeyPair(t)
	b := mustKeyPair(t)

	var blockHash1 [32]byte
	blockHash1[0] = 1
	coinbase, err := blockchain.NewCoinbase(a, 1)
	require.NoError(t, err)
	unspent := blockchain.UpdateUnspent([]*blockchain.Transaction{coinbase}, blockHash1, nil)
	require.NoError(t, idx.Rebuild(unspent))

	for _, e := range unspent {
		out, ok, err := idx.Lookup(e.BlockHash, e.TxID, e.Out.Hash)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, e.Out.Amount, out.Amount)
		require.Equal(t, e.Out.Pub, out.Pub)
	}

	tx, err := blockchain.NewTransaction(a, b, 30, unspent)
	require.NoError(t, err)
	var blockHash2 [32]byte
	blockHash2[0] = 2
	next := blockchain.UpdateUnspent([]*blockchain.Transaction{tx}, blockHash2, unspent)
	require.NoError(t, idx.Apply([]*blockchain.Transaction{tx}, blockHash2))

	// The consumed coinbase output must be gone from the index too.
	_, ok, err := idx.Lookup(unspent[0].BlockHash, unspent[0].TxID, unspent[0].Out.Hash)
	require.NoError(t, err)
	require.False(t, ok)

	// Every surviving/added triple must agree between the slice and the index.
	for _, e := range next {
		out, ok, err := idx.Lookup(e.BlockHash, e.TxID, e.Out.Hash)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, e.Out.Amount, out.Amount)
		require.Equal(t, e.Out.Pub, out.Pub)
	}
}
