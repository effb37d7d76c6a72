package conversation

import (
	"github.com/papercomputeco/querybot/pkg/ask"
	"github.com/papercomputeco/querybot/pkg/merkle"
)

// Sender identifies who authored a Message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one immutable transcript entry.
type Message struct {
	// Hash identifies this message and the transcript before it
	Hash string `json:"hash"`

	// ParentHash is the hash of the preceding message, nil for the first one
	ParentHash *string `json:"parent_hash,omitempty"`

	Text   string `json:"text"`
	Sender Sender `json:"sender"`

	// DebugInfo is the server's processing detail for bot replies, when sent
	DebugInfo *ask.DebugInfo `json:"debug_info,omitempty"`

	// RowCount is the number of raw result rows behind a bot reply
	RowCount int `json:"row_count,omitempty"`

	// Failed marks a bot reply that stands in for a failed request
	Failed bool `json:"failed,omitempty"`
}

// entry is the hashed portion of a Message.
type entry struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// chain builds the next message node on top of the previous one.
func chain(prev *Message, sender Sender, text string) Message {
	var parent *merkle.Node
	if prev != nil {
		parent = &merkle.Node{Hash: prev.Hash}
	}

	node := merkle.NewNode(entry{Sender: sender, Text: text}, parent)
	return Message{
		Hash:       node.Hash,
		ParentHash: node.ParentHash,
		Text:       text,
		Sender:     sender,
	}
}

// Verify reports whether every message's hash matches its content and links
// to the message before it.
func Verify(messages []Message) bool {
	var prevHash *string
	for i := range messages {
		m := messages[i]
		if (prevHash == nil) != (m.ParentHash == nil) {
			return false
		}
		if prevHash != nil && *prevHash != *m.ParentHash {
			return false
		}

		node := &merkle.Node{
			Hash:       m.Hash,
			ParentHash: m.ParentHash,
			Content:    entry{Sender: m.Sender, Text: m.Text},
		}
		if !node.Verify() {
			return false
		}

		hash := m.Hash
		prevHash = &hash
	}
	return true
}
