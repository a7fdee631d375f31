package blockchain

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/holbertonschool/atlas-blockchain/chainerr"
	"github.com/holbertonschool/atlas-blockchain/crypto"
)

// File format constants (SPEC_FULL.md §4.6).
var (
	magic   = [4]byte{'H', 'B', 'L', 'K'}
	version = [3]byte{'0', '.', '3'}
)

const (
	endianLittle byte = 1
	endianBig    byte = 2

	noTransactions int32 = -1
)

// nativeEndianTag reports this host's native byte order as the 1 (little)
// or 2 (big) tag §4.6 expects in the header.
func nativeEndianTag() byte {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], 1)
	if buf[0] == 1 {
		return endianLittle
	}
	return endianBig
}

// orderForTag maps a header endianness tag to the concrete byte order to
// use for every subsequent multi-byte field. Reading through the order
// matching the file's own tag — rather than the host's native order and
// then conditionally swapping — produces the identical externally
// observable result ("swap iff tags differ") with no branch per field.
func orderForTag(tag byte) (binary.ByteOrder, error) {
	switch tag {
	case endianLittle:
		return binary.LittleEndian, nil
	case endianBig:
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown endianness tag %d", tag)
	}
}

// Serialize writes bc to w in the canonical binary format described in
// SPEC_FULL.md §4.6, tagged with this host's native byte order.
func (bc *Blockchain) Serialize(w io.Writer) error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	order := binary.ByteOrder(binary.LittleEndian)
	if nativeEndianTag() == endianBig {
		order = binary.BigEndian
	}

	if _, err := w.Write(magic[:]); err != nil {
		return chainerr.New(chainerr.IoFailure, "Blockchain.Serialize", err)
	}
	if _, err := w.Write(version[:]); err != nil {
		return chainerr.New(chainerr.IoFailure, "Blockchain.Serialize", err)
	}
	if _, err := w.Write([]byte{nativeEndianTag()}); err != nil {
		return chainerr.New(chainerr.IoFailure, "Blockchain.Serialize", err)
	}
	if err := writeUint32(w, order, uint32(len(bc.chain))); err != nil {
		return err
	}
	if err := writeUint32(w, order, uint32(len(bc.unspent))); err != nil {
		return err
	}

	for i := range bc.chain {
		if err := writeBlock(w, order, &bc.chain[i]); err != nil {
			return err
		}
	}
	for i := range bc.unspent {
		if err := writeUnspent(w, order, &bc.unspent[i]); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize reads a blockchain previously written by Serialize, byte-swapping
// multi-byte fields if the file's endianness tag differs from this host's.
func Deserialize(r io.Reader) (*Blockchain, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, chainerr.New(chainerr.IoFailure, "Deserialize", err)
	}
	if gotMagic != magic {
		return nil, chainerr.New(chainerr.FormatError, "Deserialize", fmt.Errorf("bad magic %q", gotMagic))
	}

	var gotVersion [3]byte
	if _, err := io.ReadFull(r, gotVersion[:]); err != nil {
		return nil, chainerr.New(chainerr.IoFailure, "Deserialize", err)
	}
	if gotVersion != version {
		return nil, chainerr.New(chainerr.FormatError, "Deserialize", fmt.Errorf("unsupported version %q", gotVersion))
	}

	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, chainerr.New(chainerr.IoFailure, "Deserialize", err)
	}
	order, err := orderForTag(tag[0])
	if err != nil {
		return nil, chainerr.New(chainerr.FormatError, "Deserialize", err)
	}

	blockCount, err := readUint32(r, order)
	if err != nil {
		return nil, err
	}
	unspentCount, err := readUint32(r, order)
	if err != nil {
		return nil, err
	}

	chain := make([]Block, blockCount)
	for i := range chain {
		b, err := readBlock(r, order)
		if err != nil {
			return nil, err
		}
		chain[i] = *b
	}

	unspent := make([]UnspentTxOut, unspentCount)
	for i := range unspent {
		u, err := readUnspent(r, order)
		if err != nil {
			return nil, err
		}
		unspent[i] = *u
	}

	return &Blockchain{chain: chain, unspent: unspent}, nil
}

// DeserializeWithIndex reads a blockchain as Deserialize does, then opens
// (creating if absent) a badger-backed UnspentIndex rooted at indexDir and
// rebuilds it from the loaded unspent slice, attaching it to the returned
// Blockchain so subsequent AddBlock calls keep the index current.
func DeserializeWithIndex(r io.Reader, indexDir string) (*Blockchain, error) {
	bc, err := Deserialize(r)
	if err != nil {
		return nil, err
	}

	idx, err := OpenUnspentIndex(indexDir)
	if err != nil {
		return nil, err
	}
	if err := bc.AttachIndex(idx); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return bc, nil
}

func writeUint32(w io.Writer, order binary.ByteOrder, v uint32) error {
	var buf [4]byte
	order.PutUint32(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return chainerr.New(chainerr.IoFailure, "write", err)
	}
	return nil
}

func writeUint64(w io.Writer, order binary.ByteOrder, v uint64) error {
	var buf [8]byte
	order.PutUint64(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return chainerr.New(chainerr.IoFailure, "write", err)
	}
	return nil
}

func writeInt32(w io.Writer, order binary.ByteOrder, v int32) error {
	return writeUint32(w, order, uint32(v))
}

func readUint32(r io.Reader, order binary.ByteOrder) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, chainerr.New(chainerr.IoFailure, "read", err)
	}
	return order.Uint32(buf[:]), nil
}

func readUint64(r io.Reader, order binary.ByteOrder) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, chainerr.New(chainerr.IoFailure, "read", err)
	}
	return order.Uint64(buf[:]), nil
}

func readInt32(r io.Reader, order binary.ByteOrder) (int32, error) {
	v, err := readUint32(r, order)
	return int32(v), err
}

func writeRaw(w io.Writer, b []byte) error {
	if _, err := w.Write(b); err != nil {
		return chainerr.New(chainerr.IoFailure, "write", err)
	}
	return nil
}

func readRaw(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, chainerr.New(chainerr.IoFailure, "read", err)
	}
	return buf, nil
}

func writeBlock(w io.Writer, order binary.ByteOrder, b *Block) error {
	if err := writeUint32(w, order, b.Info.Index); err != nil {
		return err
	}
	if err := writeUint32(w, order, b.Info.Difficulty); err != nil {
		return err
	}
	if err := writeUint64(w, order, b.Info.Timestamp); err != nil {
		return err
	}
	if err := writeUint64(w, order, b.Info.Nonce); err != nil {
		return err
	}
	if err := writeRaw(w, b.Info.PrevHash[:]); err != nil {
		return err
	}
	if err := writeUint32(w, order, b.Data.Len); err != nil {
		return err
	}
	if err := writeRaw(w, b.Data.Buffer[:b.Data.Len]); err != nil {
		return err
	}
	if err := writeRaw(w, b.Hash[:]); err != nil {
		return err
	}

	if b.Transactions == nil {
		return writeInt32(w, order, noTransactions)
	}
	if err := writeInt32(w, order, int32(len(b.Transactions))); err != nil {
		return err
	}
	for i := range b.Transactions {
		if err := writeTransaction(w, order, &b.Transactions[i]); err != nil {
			return err
		}
	}
	return nil
}

func readBlock(r io.Reader, order binary.ByteOrder) (*Block, error) {
	b := &Block{}

	var err error
	if b.Info.Index, err = readUint32(r, order); err != nil {
		return nil, err
	}
	if b.Info.Difficulty, err = readUint32(r, order); err != nil {
		return nil, err
	}
	if b.Info.Timestamp, err = readUint64(r, order); err != nil {
		return nil, err
	}
	if b.Info.Nonce, err = readUint64(r, order); err != nil {
		return nil, err
	}
	prevHash, err := readRaw(r, 32)
	if err != nil {
		return nil, err
	}
	copy(b.Info.PrevHash[:], prevHash)

	dataLen, err := readUint32(r, order)
	if err != nil {
		return nil, err
	}
	if dataLen > DataMax {
		return nil, chainerr.New(chainerr.FormatError, "Deserialize", fmt.Errorf("data length %d exceeds %d-byte cap", dataLen, DataMax))
	}
	b.Data.Len = dataLen
	data, err := readRaw(r, int(dataLen))
	if err != nil {
		return nil, err
	}
	copy(b.Data.Buffer[:], data)

	hash, err := readRaw(r, 32)
	if err != nil {
		return nil, err
	}
	copy(b.Hash[:], hash)

	marker, err := readInt32(r, order)
	if err != nil {
		return nil, err
	}
	if marker == noTransactions {
		b.Transactions = nil
		return b, nil
	}
	if marker < 0 {
		return nil, chainerr.New(chainerr.FormatError, "Deserialize", fmt.Errorf("malformed transaction marker %d", marker))
	}

	b.Transactions = make([]Transaction, marker)
	for i := range b.Transactions {
		tx, err := readTransaction(r, order)
		if err != nil {
			return nil, err
		}
		b.Transactions[i] = *tx
	}
	return b, nil
}

func writeTransaction(w io.Writer, order binary.ByteOrder, tx *Transaction) error {
	if err := writeRaw(w, tx.ID[:]); err != nil {
		return err
	}
	if err := writeUint32(w, order, uint32(len(tx.Inputs))); err != nil {
		return err
	}
	if err := writeUint32(w, order, uint32(len(tx.Outputs))); err != nil {
		return err
	}
	for i := range tx.Inputs {
		if err := writeTxIn(w, order, &tx.Inputs[i]); err != nil {
			return err
		}
	}
	for i := range tx.Outputs {
		if err := writeTxOut(w, order, &tx.Outputs[i]); err != nil {
			return err
		}
	}
	return nil
}

func readTransaction(r io.Reader, order binary.ByteOrder) (*Transaction, error) {
	tx := &Transaction{}
	id, err := readRaw(r, 32)
	if err != nil {
		return nil, err
	}
	copy(tx.ID[:], id)

	inCount, err := readUint32(r, order)
	if err != nil {
		return nil, err
	}
	outCount, err := readUint32(r, order)
	if err != nil {
		return nil, err
	}

	tx.Inputs = make([]TxIn, inCount)
	for i := range tx.Inputs {
		in, err := readTxIn(r, order)
		if err != nil {
			return nil, err
		}
		tx.Inputs[i] = *in
	}
	tx.Outputs = make([]TxOut, outCount)
	for i := range tx.Outputs {
		out, err := readTxOut(r, order)
		if err != nil {
			return nil, err
		}
		tx.Outputs[i] = *out
	}
	return tx, nil
}

func writeTxIn(w io.Writer, order binary.ByteOrder, in *TxIn) error {
	if err := writeRaw(w, in.BlockHash[:]); err != nil {
		return err
	}
	if err := writeRaw(w, in.TxID[:]); err != nil {
		return err
	}
	if err := writeRaw(w, in.TxOutHash[:]); err != nil {
		return err
	}
	if err := writeRaw(w, in.Sig.Bytes[:]); err != nil {
		return err
	}
	return writeRaw(w, []byte{in.Sig.Len})
}

func readTxIn(r io.Reader, order binary.ByteOrder) (*TxIn, error) {
	in := &TxIn{}
	blockHash, err := readRaw(r, 32)
	if err != nil {
		return nil, err
	}
	copy(in.BlockHash[:], blockHash)

	txID, err := readRaw(r, 32)
	if err != nil {
		return nil, err
	}
	copy(in.TxID[:], txID)

	txOutHash, err := readRaw(r, 32)
	if err != nil {
		return nil, err
	}
	copy(in.TxOutHash[:], txOutHash)

	sigBytes, err := readRaw(r, crypto.SigMaxLen)
	if err != nil {
		return nil, err
	}
	copy(in.Sig.Bytes[:], sigBytes)

	sigLen, err := readRaw(r, 1)
	if err != nil {
		return nil, err
	}
	in.Sig.Len = sigLen[0]
	return in, nil
}

func writeTxOut(w io.Writer, order binary.ByteOrder, out *TxOut) error {
	if err := writeUint32(w, order, out.Amount); err != nil {
		return err
	}
	if err := writeRaw(w, out.Pub[:]); err != nil {
		return err
	}
	return writeRaw(w, out.Hash[:])
}

func readTxOut(r io.Reader, order binary.ByteOrder) (*TxOut, error) {
	out := &TxOut{}
	amount, err := readUint32(r, order)
	if err != nil {
		return nil, err
	}
	out.Amount = amount

	pub, err := readRaw(r, crypto.PubKeyLen)
	if err != nil {
		return nil, err
	}
	copy(out.Pub[:], pub)

	hash, err := readRaw(r, 32)
	if err != nil {
		return nil, err
	}
	copy(out.Hash[:], hash)
	return out, nil
}

func writeUnspent(w io.Writer, order binary.ByteOrder, u *UnspentTxOut) error {
	if err := writeRaw(w, u.BlockHash[:]); err != nil {
		return err
	}
	if err := writeRaw(w, u.TxID[:]); err != nil {
		return err
	}
	return writeTxOut(w, order, &u.Out)
}

func readUnspent(r io.Reader, order binary.ByteOrder) (*UnspentTxOut, error) {
	u := &UnspentTxOut{}
	blockHash, err := readRaw(r, 32)
	if err != nil {
		return nil, err
	}
	copy(u.BlockHash[:], blockHash)

	txID, err := readRaw(r, 32)
	if err != nil {
		return nil, err
	}
	copy(u.TxID[:], txID)

	out, err := readTxOut(r, order)
	if err != nil {
		return nil, err
	}
	u.Out = *out
	return u, nil
}
