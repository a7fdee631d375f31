package blockchain

import "encoding/binary"

// The structs in this package are never hashed by taking their raw memory
// layout — Go gives no guarantee about field padding, and the original C
// implementation's reliance on that padding is exactly the kind of bug this
// rewrite must not repeat (see SPEC_FULL.md §9). Every hash input below is
// built field-by-field into an explicitly sized scratch buffer instead.

// txOutHashInput returns the exact 69-byte (amount ‖ pub) buffer that
// tx_out.hash commits to.
func txOutHashInput(amount uint32, pub [crypto65]byte) [4 + crypto65]byte {
	var buf [4 + crypto65]byte
	binary.LittleEndian.PutUint32(buf[0:4], amount)
	copy(buf[4:], pub[:])
	return buf
}

// blockInfoBytes serializes a blockInfo in declared-field order, matching
// the fixed §3 layout: index, difficulty, timestamp, nonce, prev_hash.
func blockInfoBytes(info blockInfo) []byte {
	buf := make([]byte, 4+4+8+8+32)
	binary.LittleEndian.PutUint32(buf[0:4], info.Index)
	binary.LittleEndian.PutUint32(buf[4:8], info.Difficulty)
	binary.LittleEndian.PutUint64(buf[8:16], info.Timestamp)
	binary.LittleEndian.PutUint64(buf[16:24], info.Nonce)
	copy(buf[24:56], info.PrevHash[:])
	return buf
}

// crypto65 is the length of an uncompressed secp256k1 public key. Declared
// here (rather than importing the crypto package just for a constant) to
// keep this low-level encoding file dependency-free. It must equal
// crypto.PubKeyLen: txout.go passes [crypto.PubKeyLen]byte keys to
// txOutHashInput, which only compiles while the two lengths agree.
const crypto65 = 65
