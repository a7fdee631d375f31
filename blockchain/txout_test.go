package blockchain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holbertonschool/atlas-blockchain/blockchain"
	"github.com/holbertonschool/atlas-blockchain/crypto"
)

func mustKeyPair(t *testing.T) *crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func TestNewTxOutRejectsZeroAmount(t *testing.T) {
	kp := mustKeyPair(t)
	_, err := blockchain.NewTxOut(0, kp.PublicKeyBytes())
	require.Error(t, err)
}

func TestNewTxOutHashLaw(t *testing.T) {
	kp := mustKeyPair(t)
	out, err := blockchain.NewTxOut(42, kp.PublicKeyBytes())
	require.NoError(t, err)

	var buf [4 + crypto.PubKeyLen]byte
	buf[0] = 42
	copy(buf[4:], kp.PublicKeyBytes())
	require.Equal(t, crypto.SHA256(buf[:]), out.Hash)
}

func TestIsLockedWith(t *testing.T) {
	owner := mustKeyPair(t)
	other := mustKeyPair(t)
	out, err := blockchain.NewTxOut(10, owner.PublicKeyBytes())
	require.NoError(t, err)

	require.True(t, out.IsLockedWith(owner.PublicKeyBytes()))
	require.False(t, out.IsLockedWith(other.PublicKeyBytes()))
}

func TestUpdateUnspentClosure(t *testing.T) {
	a := mustKeyPair(t)
	b := mustKeyPair(t)

	var blockHash1 [32]byte
	blockHash1[0] = 1
	coinbase, err := blockchain.NewCoinbase(a, 1)
	require.NoError(t, err)

	unspent := blockchain.UpdateUnspent([]*blockchain.Transaction{coinbase}, blockHash1, nil)
	require.Len(t, unspent, 1)
	require.Equal(t, uint32(blockchain.CoinbaseAmount), unspent[0].Out.Amount)

	tx, err := blockchain.NewTransaction(a, b, 30, unspent)
	require.NoError(t, err)

	var blockHash2 [32]byte
	blockHash2[0] = 2
	next := blockchain.UpdateUnspent([]*blockchain.Transaction{tx}, blockHash2, unspent)

	// The spent coinbase output must be gone; tx's own outputs must each
	// appear exactly once.
	for _, e := range next {
		require.NotEqual(t, unspent[0].Out.Hash, e.Out.Hash)
	}
	require.Len(t, next, len(tx.Outputs))
}
