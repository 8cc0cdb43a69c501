// Package chunk 计算文件分片的数量与字节范围.
//
// 分片下标从 0 开始，除最后一片外每片长度都等于 partSize.
// 对象存储的 partNumber 从 1 开始，使用 PartNumber 转换.
package chunk

import (
	"errors"
	"fmt"
)

// ErrInvalidSize 文件大小或分片大小不是正数.
var ErrInvalidSize = errors.New("chunk: size and part size must be positive")

// Range 一个分片的半开字节区间 [Start, End).
type Range struct {
	Index int
	Start int64
	End   int64
}

// Len 分片长度.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// PartNumber 对象存储使用的 1 起始分片号.
func (r Range) PartNumber() int {
	return PartNumber(r.Index)
}

// PartNumber 把 0 起始的分片下标转换为 1 起始的分片号.
func PartNumber(index int) int {
	return index + 1
}

func check(size, partSize int64) error {
	if size <= 0 || partSize <= 0 {
		return fmt.Errorf("%w: size=%d partSize=%d", ErrInvalidSize, size, partSize)
	}

	return nil
}

// Count 返回 ceil(size/partSize).
func Count(size, partSize int64) (int, error) {
	if err := check(size, partSize); err != nil {
		return 0, err
	}

	return int((size + partSize - 1) / partSize), nil
}

// RangeOf 返回第 i 个分片的字节区间.
func RangeOf(i int, size, partSize int64) (Range, error) {
	n, err := Count(size, partSize)
	if err != nil {
		return Range{}, err
	}

	if i < 0 || i >= n {
		return Range{}, fmt.Errorf("chunk: index %d out of range [0, %d)", i, n)
	}

	start := int64(i) * partSize

	return Range{Index: i, Start: start, End: min(start+partSize, size)}, nil
}

// LastSize 最后一个分片的长度.
func LastSize(size, partSize int64) (int64, error) {
	n, err := Count(size, partSize)
	if err != nil {
		return 0, err
	}

	return size - int64(n-1)*partSize, nil
}

// Split 返回全部分片的区间，按下标升序.
func Split(size, partSize int64) ([]Range, error) {
	n, err := Count(size, partSize)
	if err != nil {
		return nil, err
	}

	ranges := make([]Range, n)
	for i := range n {
		start := int64(i) * partSize
		ranges[i] = Range{Index: i, Start: start, End: min(start+partSize, size)}
	}

	return ranges, nil
}

// Batches 把分片按 k 个一组切分，组内并行、组间顺序执行.
func Batches(ranges []Range, k int) [][]Range {
	if k <= 0 {
		k = 1
	}

	out := make([][]Range, 0, (len(ranges)+k-1)/k)
	for start := 0; start < len(ranges); start += k {
		out = append(out, ranges[start:min(start+k, len(ranges))])
	}

	return out
}
