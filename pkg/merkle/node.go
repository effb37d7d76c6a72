// Package merkle links transcript entries into a content-addressed hash chain.
// Each node's hash covers its content and its parent's hash, so a node hash
// identifies both a message and everything that came before it.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Node represents a single content-addressed node in the chain
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous node hash.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	// Content is the hashable content for the node
	Content any `json:"content"`
}

// input is the canonical form fed to the hash function.
type input struct {
	Parent  string `json:"parent,omitempty"`
	Content any    `json:"content"`
}

// NewNode creates a new node with the computed hash for the provided content
func NewNode(content any, parent *Node) *Node {
	n := &Node{
		Content: content,
	}

	if parent != nil {
		parentHash := parent.Hash
		n.ParentHash = &parentHash
	}

	n.Hash = n.computeHash()
	return n
}

// Verify reports whether the node's hash still matches its content and parent.
func (n *Node) Verify() bool {
	return n.Hash == n.computeHash()
}

// computeHash calculates the content-addressed hash for a node
func (n *Node) computeHash() string {
	i := &input{
		Content: n.Content,
	}

	if n.ParentHash != nil {
		i.Parent = *n.ParentHash
	}

	// Canonical JSON encoding for deterministic hashing
	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
