package node

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// Digest returns the hex MD5 of v encoded as JSON. encoding/json sorts map
// keys, so equal records always produce equal digests.
func Digest(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
