package service

import (
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

const (
	signatureLength = 65
	personalPrefix  = "\x19Ethereum Signed Message:\n"
)

var errMalformedSignature = errors.New("malformed signature")

// HashPersonalMessage applies the personal-message prefix and hashes with Keccak-256.
func HashPersonalMessage(message []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(personalPrefix + strconv.Itoa(len(message))))
	h.Write(message)
	return h.Sum(nil)
}

// DecodeSignature parses a hex r||s||v signature, with or without 0x.
func DecodeSignature(s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(raw) != signatureLength {
		return nil, errMalformedSignature
	}
	return raw, nil
}

// RecoverAddress returns the lowercase 0x address whose key produced sig over the
// personal-message hash of message. v may be 0/1 or 27/28.
func RecoverAddress(message, sig []byte) (string, error) {
	if len(sig) != signatureLength {
		return "", errMalformedSignature
	}
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", errMalformedSignature
	}

	// Compact form is [27+recid] || r || s for an uncompressed key.
	compact := make([]byte, signatureLength)
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, HashPersonalMessage(message))
	if err != nil {
		return "", err
	}
	return addressFromUncompressed(pub.SerializeUncompressed()), nil
}

// addressFromUncompressed hashes the 64 byte X||Y (dropping the 0x04 tag) and keeps
// the last 20 bytes.
func addressFromUncompressed(pub []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub[1:])
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[12:])
}
