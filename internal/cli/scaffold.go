package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/storyline/internal/config"
)

// SampleStory is the starter script written by Scaffold.
const SampleStory = `#,type,nodeId,nextNodeId,backgroundId,character,position,speaker,content,questionText,choices,choiceNext
#,DialogNode,start,crossroads,BG_Park,Ch_guide,"0, 0",Guide,"Welcome! Press enter to read on.",,,
,,,,,,,Guide,Every row under a marker belongs to the same node.,,,
#,ChoiceNode,crossroads,,BG_Park,Ch_guide,"0, 0",,,Where to next?,The lake,lake
,,,,,,,,,,The hill,hill
#,DialogNode,lake,,BG_Lake,Ch_guide,"-200, 0",Guide,The water is calm today.,,,
#,DialogNode,hill,,BG_Hill,Ch_guide,"200, 0",Guide,You can see the whole park from here.,,,
`

// SampleConfig is the starter config written by Scaffold.
const SampleConfig = `story: story.csv
slots: 5
log_level: warn
store:
  driver: file
  path: .storyline/saves
`

// Scaffold writes a starter story and config into dir, refusing to
// overwrite existing files.
func Scaffold(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	files := []struct {
		name string
		body string
	}{
		{"story.csv", SampleStory},
		{config.DefaultFile, SampleConfig},
	}
	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil {
			return written, fmt.Errorf("%s already exists", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return written, err
		}
		if err := os.WriteFile(path, []byte(f.body), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
