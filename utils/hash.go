package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// BytesMD5 computes the MD5 of a byte slice
func BytesMD5(data []byte) string {
	hash := md5.New()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}
