// Package provider defines the algorithm-provider boundary for streaming
// channels: the transform invocation unit (Op), the Provider interface, a
// process-wide name-keyed registry, and built-in providers for AEAD and
// stream ciphers, LZ4 compression, and Reed-Solomon parity.
//
// A provider may complete an Op inline before Transform returns, or later
// from another goroutine; callers must be prepared for either. Completion
// fires exactly once per Op.
package provider
