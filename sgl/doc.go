// Package sgl provides scatter-gather segment lists for zero-copy byte
// plumbing between a streaming channel and an algorithm provider.
//
// Key pieces:
//   - Region: an owned handle to pinned caller memory, released exactly once
//   - Desc: a (region, offset, length) descriptor over one contiguous range
//   - TxList: bounded-node FIFO of input descriptors with merge and cursor
//   - RxList: per-operation list of output regions filled by the transform
//
// Descriptors never copy the bytes they describe; data moves only when a
// provider gathers input or scatters output.
package sgl
