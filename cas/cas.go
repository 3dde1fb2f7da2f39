// Package cas provides content-addressable hashing used by the differencer
// to bucket AST subtrees by hash.
package cas

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"sort"

	"lukechampine.com/blake3"
)

// CanonicalJSON converts a value to canonical JSON (stable key ordering),
// so that two structurally identical node payloads hash identically
// regardless of map iteration order.
func CanonicalJSON(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var obj interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}

	return canonicalMarshal(obj)
}

func canonicalMarshal(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		return marshalSortedMap(val)
	case []interface{}:
		return marshalArray(val)
	default:
		return json.Marshal(v)
	}
}

func marshalSortedMap(m map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := canonicalMarshal(m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalArray(arr []interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, v := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		valBytes, err := canonicalMarshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Blake3Hash computes a BLAKE3 hash of the input and returns it as bytes.
func Blake3Hash(data []byte) []byte {
	hash := blake3.Sum256(data)
	return hash[:]
}

// Blake3HashHex computes a BLAKE3 hash and returns it as a hex string.
func Blake3HashHex(data []byte) string {
	return hex.EncodeToString(Blake3Hash(data))
}

// NewBlake3Hasher returns a new streaming BLAKE3 hasher.
func NewBlake3Hasher() *blake3.Hasher {
	return blake3.New(32, nil)
}

// NodeID computes a content-addressed ID for an AST subtree:
// blake3(kind + "\n" + canonicalJSON(payload)). The differencer uses this to
// bucket candidate matches by shape before falling back to positional
// matching; it is not part of the Node identity key itself (which is
// assignment-based, per spec.md §3.1).
func NodeID(kind string, payload interface{}) ([]byte, error) {
	canonicalPayload, err := CanonicalJSON(payload)
	if err != nil {
		return nil, err
	}

	data := append([]byte(kind+"\n"), canonicalPayload...)
	return Blake3Hash(data), nil
}

// NodeIDHex computes the content-addressed ID and returns it as hex.
func NodeIDHex(kind string, payload interface{}) (string, error) {
	id, err := NodeID(kind, payload)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(id), nil
}

// HexToBytes converts a hex string to bytes.
func HexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// BytesToHex converts bytes to a hex string.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// ShapeHash hashes a subtree's kind string plus its children's hashes, in
// order. It adds no leaf content of its own: whatever the caller folds into
// kind and childHashes decides what it distinguishes. The differencer feeds
// it exact leaf-content hashes for its identical-subtree matching phase.
func ShapeHash(kind string, childHashes [][]byte) []byte {
	payload := make([]interface{}, len(childHashes))
	for i, h := range childHashes {
		payload[i] = BytesToHex(h)
	}
	id, err := NodeID(kind, payload)
	if err != nil {
		// CanonicalJSON cannot fail on a []interface{} of strings.
		panic(err)
	}
	return id
}
