package container

import "hash/crc32"

// CRC32 (IEEE) guards against accidental corruption of the payload.
// It is not a tamper-detection mechanism.

func checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

func verifyChecksum(expected uint32, data []byte) error {
	if actual := checksum(data); actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
