package server

import (
	"fmt"
	"strings"
)

const revisePrompt = `You are a careful editor of children's stories. Rewrite the provided selection according to the user's instruction.

**Rules:**
- Keep the tone warm and age-appropriate; never introduce frightening or violent content.
- Preserve character names, established facts, and the surrounding plot.
- Change only what the instruction asks for; keep everything else as close to the original as possible.
- Output only the rewritten text, with no commentary or markdown.`

func coverScenePrompt(title, scene, style string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A storybook cover illustration for a children's story titled %q.", title)
	if scene != "" {
		b.WriteString(" Scene: ")
		b.WriteString(scene)
	}
	if style == "" {
		style = "soft watercolor, warm colors, friendly and gentle"
	}
	b.WriteString(" Style: ")
	b.WriteString(style)
	b.WriteString(" No text in the image.")
	return b.String()
}
