package dsl

import "github.com/aretw0/storyline/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node *domain.Node
}

// Background sets the background asset id.
func (n *NodeBuilder) Background(id string) *NodeBuilder {
	n.node.BackgroundID = id
	return n
}

// Character places a character on screen.
func (n *NodeBuilder) Character(id string, x, y int) *NodeBuilder {
	n.node.Characters = append(n.node.Characters, domain.CharacterPlacement{
		CharacterID: id,
		Position:    domain.Position{X: x, Y: y},
	})
	return n
}

// Say appends a dialog line. Ignored on choice nodes.
func (n *NodeBuilder) Say(speaker, content string) *NodeBuilder {
	if n.node.Dialog != nil {
		n.node.Dialog.Lines = append(n.node.Dialog.Lines, domain.DialogLine{Speaker: speaker, Content: content})
	}
	return n
}

// Go sets the node visited after the last line. Ignored on choice nodes.
func (n *NodeBuilder) Go(nextNodeID string) *NodeBuilder {
	if n.node.Dialog != nil {
		n.node.Dialog.NextNodeID = nextNodeID
	}
	return n
}

// Ask sets the question of a choice node.
func (n *NodeBuilder) Ask(question string) *NodeBuilder {
	if n.node.Choice != nil {
		n.node.Choice.Question = question
	}
	return n
}

// Option appends a choice leading to nextNodeID.
func (n *NodeBuilder) Option(text, nextNodeID string) *NodeBuilder {
	if n.node.Choice != nil {
		n.node.Choice.Choices = append(n.node.Choice.Choices, domain.Choice{Text: text, NextNodeID: nextNodeID})
	}
	return n
}
