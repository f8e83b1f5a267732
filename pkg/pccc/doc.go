// Package pccc implements a parallel-concatenated convolutional code (turbo code).
//
// A block of bits is encoded by two identical recursive systematic convolutional
// encoders, the second one fed through a pseudo-random interleaver. Decoding runs two
// BCJR (Log-MAP) constituent decoders that exchange extrinsic information for a fixed
// number of iterations.
//
// LLR convention: an LLR is log(P(bit=0)/P(bit=1)), so a positive value favors Zero.
// A hard decision maps negative LLRs to One and everything else, including exactly
// zero, to Zero.
package pccc
