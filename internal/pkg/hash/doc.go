// Package hash provides one-way hashing for verification codes.
//
// Codes are never persisted or compared in plaintext: the issuance path stores
// an Argon2id digest and the verify path recomputes and compares it in
// constant time.
package hash
