/*
Package storyline is a branching-dialogue engine for visual-novel style stories.

A story is a tabular text file (comma separated rows) grouped into nodes: dialog
nodes hold ordered lines spoken by characters over a background, and choice
nodes ask a question with labelled answers that each lead to another node. The
engine builds that text into a graph, walks it one transition at a time and
keeps a transcript, a rewind stack and numbered save slots for every player.

# Concept

The engine never renders. After every transition the host asks for a Frame, a
plain projection of what should be on screen, and draws it however it likes: a
terminal, an HTTP client or an AI agent over MCP. Saves go through a SaveStore
port so the same session can live in memory, on disk, in SQLite or in Redis.

# Usage

	eng, err := storyline.Open(ctx, "story.csv")
	if err != nil {
		log.Fatal(err)
	}

	m := eng.NewManager(memory.NewStore())
	frame, err := m.Start(ctx, "player-1")
	for err == nil && !frame.Terminal {
		if len(frame.Choices) > 0 {
			frame, err = m.Choose(ctx, "player-1", 0)
			continue
		}
		frame, err = m.Next(ctx, "player-1")
	}

# Hot reload

Sources that implement ports.Watchable (the file source does) signal on every
change. Call Engine.Reload and hand the new graph to Manager.Reload: sessions
whose current node still exists resume in place and the others are dropped.
*/
package storyline
