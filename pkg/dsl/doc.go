/*
Package dsl provides a fluent Go builder for story graphs.

It is an alternative to the tabular format for tests, tools and stories
generated from code. The first node added becomes the root.

Example usage:

	b := dsl.New()

	b.Dialog("n1").
		Background("BG_Grey").
		Character("Ch_usagi", -800, -100).
		Say("A", "hi").
		Go("n2")

	b.Choice("n2").
		Ask("go?").
		Option("yes", "n3").
		Option("no", "n4")

	b.Dialog("n3").Say("B", "bye")

	graph, err := b.Build()
*/
package dsl
