package merkle_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/querybot/pkg/merkle"
)

type entry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

var _ = Describe("Node", func() {
	Describe("NewNode", func() {
		Context("when creating a root node (no parent)", func() {
			It("keeps the given content and has no parent", func() {
				node := merkle.NewNode(entry{Sender: "user", Text: "hello"}, nil)

				Expect(node.Content).To(Equal(entry{Sender: "user", Text: "hello"}))
				Expect(node.ParentHash).To(BeNil())
			})

			It("produces consistent hashes for the same content", func() {
				node1 := merkle.NewNode(entry{Sender: "user", Text: "same"}, nil)
				node2 := merkle.NewNode(entry{Sender: "user", Text: "same"}, nil)

				Expect(node1.Hash).To(Equal(node2.Hash))
			})

			It("distinguishes sender as well as text", func() {
				user := merkle.NewNode(entry{Sender: "user", Text: "hi"}, nil)
				bot := merkle.NewNode(entry{Sender: "bot", Text: "hi"}, nil)

				Expect(user.Hash).NotTo(Equal(bot.Hash))
			})
		})

		Context("when creating a child node (with parent)", func() {
			var parent *merkle.Node

			BeforeEach(func() {
				parent = merkle.NewNode(entry{Sender: "user", Text: "ping"}, nil)
			})

			It("links the child to the parent via ParentHash", func() {
				child := merkle.NewNode(entry{Sender: "bot", Text: "pong"}, parent)

				Expect(child.ParentHash).NotTo(BeNil())
				Expect(*child.ParentHash).To(Equal(parent.Hash))
			})

			It("creates a chain of nodes", func() {
				child1 := merkle.NewNode("child 1", parent)
				child2 := merkle.NewNode("child 2", child1)

				Expect(*child1.ParentHash).To(Equal(parent.Hash))
				Expect(*child2.ParentHash).To(Equal(child1.Hash))
			})

			It("produces different hashes for same content with different parents", func() {
				other := merkle.NewNode(entry{Sender: "user", Text: "other"}, nil)
				child1 := merkle.NewNode(entry{Sender: "bot", Text: "same"}, parent)
				child2 := merkle.NewNode(entry{Sender: "bot", Text: "same"}, other)

				Expect(child1.Hash).NotTo(Equal(child2.Hash))
			})
		})
	})

	Describe("Verify", func() {
		It("accepts an untouched node", func() {
			node := merkle.NewNode(entry{Sender: "user", Text: "hello"}, nil)
			Expect(node.Verify()).To(BeTrue())
		})

		It("rejects a node whose content changed after hashing", func() {
			node := merkle.NewNode(entry{Sender: "user", Text: "hello"}, nil)
			node.Content = entry{Sender: "user", Text: "tampered"}
			Expect(node.Verify()).To(BeFalse())
		})
	})

	It("produces a valid SHA-256 hex string (64 characters)", func() {
		node := merkle.NewNode("test", nil)

		Expect(node.Hash).To(MatchRegexp("^[a-f0-9]{64}$"))
	})
})
