package blockchain

import (
	"encoding/binary"
	"fmt"

	"github.com/holbertonschool/atlas-blockchain/chainerr"
	"github.com/holbertonschool/atlas-blockchain/crypto"
)

// CoinbaseAmount is the number of tokens minted by every coinbase transaction.
const CoinbaseAmount = 50

// Transaction moves value from the outputs its Inputs reference to its
// Outputs. ID commits to the ordered inputs and outputs and is what
// signatures are made over — see Hash.
type Transaction struct {
	Inputs  []TxIn
	Outputs []TxOut
	ID      [32]byte
}

// Hash recomputes the transaction id: SHA256 of every input's
// (block_hash ‖ tx_id ‖ tx_out_hash) in order, followed by every output's
// hash in order. An empty transaction (no inputs, no outputs) hashes the
// empty string.
func (tx *Transaction) Hash() [32]byte {
	buf := make([]byte, 0, (3*len(tx.Inputs)+len(tx.Outputs))*32)
	for _, in := range tx.Inputs {
		buf = append(buf, in.BlockHash[:]...)
		buf = append(buf, in.TxID[:]...)
		buf = append(buf, in.TxOutHash[:]...)
	}
	for _, out := range tx.Outputs {
		buf = append(buf, out.Hash[:]...)
	}
	return crypto.SHA256(buf)
}

// NewCoinbase builds the single reward transaction for the block at
// blockIndex, minting CoinbaseAmount to receiver. Its sole input carries no
// real reference: every hash field is zero except the first four bytes of
// TxOutHash, which hold blockIndex little-endian.
func NewCoinbase(receiver *crypto.KeyPair, blockIndex uint32) (*Transaction, error) {
	out, err := NewTxOut(CoinbaseAmount, receiver.PublicKeyBytes())
	if err != nil {
		return nil, chainerr.New(chainerr.InvalidArgument, "NewCoinbase", err)
	}

	var in TxIn
	binary.LittleEndian.PutUint32(in.TxOutHash[0:4], blockIndex)

	tx := &Transaction{Inputs: []TxIn{in}, Outputs: []TxOut{*out}}
	tx.ID = tx.Hash()
	return tx, nil
}

// IsValidCoinbase checks tx against the coinbase shape for blockIndex: a
// recomputed id match, exactly one input/output, the input's
// block-index-encoding convention, and the fixed reward amount.
func (tx *Transaction) IsValidCoinbase(blockIndex uint32) error {
	if tx.Hash() != tx.ID {
		return chainerr.New(chainerr.ValidationFailure, "IsValidCoinbase", fmt.Errorf("transaction id does not match its contents"))
	}
	if len(tx.Inputs) != 1 || len(tx.Outputs) != 1 {
		return chainerr.New(chainerr.ValidationFailure, "IsValidCoinbase", fmt.Errorf("coinbase must have exactly one input and one output"))
	}
	in := tx.Inputs[0]
	var wantOut [32]byte
	binary.LittleEndian.PutUint32(wantOut[0:4], blockIndex)
	if in.BlockHash != ([32]byte{}) || in.TxID != ([32]byte{}) || in.TxOutHash != wantOut {
		return chainerr.New(chainerr.ValidationFailure, "IsValidCoinbase", fmt.Errorf("coinbase input does not encode block index %d", blockIndex))
	}
	if in.Sig.Len != 0 {
		return chainerr.New(chainerr.ValidationFailure, "IsValidCoinbase", fmt.Errorf("coinbase input must carry no signature"))
	}
	if tx.Outputs[0].Amount != CoinbaseAmount {
		return chainerr.New(chainerr.ValidationFailure, "IsValidCoinbase", fmt.Errorf("coinbase output must mint exactly %d", CoinbaseAmount))
	}
	return nil
}

// NewTransaction builds a transaction spending amount from sender to
// receiver, selecting sender-owned entries from unspent in order until
// their total covers amount, adding a change output back to sender when
// the selection overshoots, and signing every resulting input.
func NewTransaction(sender, receiver *crypto.KeyPair, amount uint32, unspent []UnspentTxOut) (*Transaction, error) {
	if sender == nil || receiver == nil {
		return nil, chainerr.New(chainerr.InvalidArgument, "NewTransaction", fmt.Errorf("sender and receiver are required"))
	}
	if amount == 0 {
		return nil, chainerr.New(chainerr.InvalidArgument, "NewTransaction", fmt.Errorf("amount must be non-zero"))
	}

	senderPub := sender.PublicKeyBytes()
	var selected []UnspentTxOut
	var total uint64
	for _, e := range unspent {
		if total >= uint64(amount) {
			break
		}
		if e.Out.IsLockedWith(senderPub) {
			selected = append(selected, e)
			total += uint64(e.Out.Amount)
		}
	}
	if total < uint64(amount) {
		return nil, chainerr.New(chainerr.NotFound, "NewTransaction", fmt.Errorf("insufficient balance: have %d, need %d", total, amount))
	}

	inputs := make([]TxIn, len(selected))
	for i, e := range selected {
		inputs[i] = *NewTxIn(&e)
	}

	receiverOut, err := NewTxOut(amount, receiver.PublicKeyBytes())
	if err != nil {
		return nil, chainerr.New(chainerr.InvalidArgument, "NewTransaction", err)
	}
	outputs := []TxOut{*receiverOut}
	if total > uint64(amount) {
		changeOut, err := NewTxOut(uint32(total-uint64(amount)), senderPub)
		if err != nil {
			return nil, chainerr.New(chainerr.InvalidArgument, "NewTransaction", err)
		}
		outputs = append(outputs, *changeOut)
	}

	tx := &Transaction{Inputs: inputs, Outputs: outputs}
	tx.ID = tx.Hash()

	for i := range tx.Inputs {
		if err := tx.Inputs[i].Sign(tx.ID, sender, unspent); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// IsValid recomputes tx's id, verifies every input's signature against the
// unspent output it references, rejects duplicate-input references, and
// requires that the sum of input amounts equal the sum of output amounts
// exactly (no fees — see Non-goals).
func (tx *Transaction) IsValid(unspent []UnspentTxOut) error {
	if tx.Hash() != tx.ID {
		return chainerr.New(chainerr.ValidationFailure, "Transaction.IsValid", fmt.Errorf("transaction id does not match its contents"))
	}

	seen := make(map[[96]byte]struct{}, len(tx.Inputs))
	var inputTotal uint64
	for _, in := range tx.Inputs {
		key := txInKey(in.BlockHash, in.TxID, in.TxOutHash)
		if _, dup := seen[key]; dup {
			return chainerr.New(chainerr.ValidationFailure, "Transaction.IsValid", fmt.Errorf("duplicate input referencing the same unspent output"))
		}
		seen[key] = struct{}{}

		entry, ok := findUnspent(unspent, in.BlockHash, in.TxID, in.TxOutHash)
		if !ok {
			return chainerr.New(chainerr.ValidationFailure, "Transaction.IsValid", fmt.Errorf("input references an output that is not unspent"))
		}
		if !crypto.VerifySignature(entry.Out.Pub, tx.ID, in.Sig) {
			return chainerr.New(chainerr.ValidationFailure, "Transaction.IsValid", fmt.Errorf("input signature does not verify"))
		}
		inputTotal += uint64(entry.Out.Amount)
	}

	var outputTotal uint64
	for _, out := range tx.Outputs {
		outputTotal += uint64(out.Amount)
	}
	if inputTotal != outputTotal {
		return chainerr.New(chainerr.ValidationFailure, "Transaction.IsValid", fmt.Errorf("inputs (%d) do not equal outputs (%d)", inputTotal, outputTotal))
	}
	return nil
}
