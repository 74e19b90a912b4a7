package treestat

import (
	"bytes"
	"io"
	"unicode/utf8"
)

// binarySampleSize is the number of leading bytes inspected by the detector.
const binarySampleSize = 8192

// binaryRatioThreshold is the share of non-text bytes above which a sample is binary.
const binaryRatioThreshold = 0.3

// binarySignatures are magic prefixes of common non-text formats.
var binarySignatures = [][]byte{
	[]byte("\x89PNG"),
	[]byte("GIF8"),
	[]byte("BM"),
	[]byte("\xFF\xD8\xFF"),
	[]byte("PK\x03\x04"),
	[]byte("%PDF"),
	[]byte("\x7FELF"),
	[]byte("MZ"),
	[]byte("\xCF\xFA\xED\xFE"),
	[]byte("\xCA\xFE\xBA\xBE"),
}

// IsBinary reads a prefix of r and reports whether it looks like a non-text file.
func IsBinary(r io.Reader) (bool, error) {
	return isBinaryWithin(r, binarySampleSize)
}

// isBinaryWithin inspects up to size bytes. One extra byte is read to learn
// whether the content continues past the sample.
func isBinaryWithin(r io.Reader, size int) (bool, error) {
	sample := make([]byte, size+1)
	n, err := io.ReadFull(r, sample)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	truncated := n > size
	return IsBinarySample(sample[:min(n, size)], truncated), nil
}

// IsBinarySample classifies an already-read prefix. truncated reports whether
// the file continues past the sample, in which case a multi-byte sequence cut
// off at the end still counts as text.
func IsBinarySample(sample []byte, truncated bool) bool {
	if len(sample) == 0 {
		return false
	}
	if HasBinarySignature(sample) {
		return true
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}

	nonText := 0
	for i := 0; i < len(sample); {
		b := sample[i]
		if isTextByte(b) {
			i++
			continue
		}
		if b >= utf8.RuneSelf {
			r, size := utf8.DecodeRune(sample[i:])
			if r != utf8.RuneError || size > 1 {
				i += size
				continue
			}
			if truncated && !utf8.FullRune(sample[i:]) {
				break
			}
		}
		nonText++
		i++
	}
	return float64(nonText)/float64(len(sample)) > binaryRatioThreshold
}

// HasBinarySignature reports whether the sample starts with a known binary magic number.
func HasBinarySignature(sample []byte) bool {
	for _, signature := range binarySignatures {
		if bytes.HasPrefix(sample, signature) {
			return true
		}
	}
	return false
}

func isTextByte(b byte) bool {
	if b >= 32 && b <= 126 {
		return true
	}
	switch b {
	case '\r', '\n', '\t', '\b':
		return true
	}
	return false
}
