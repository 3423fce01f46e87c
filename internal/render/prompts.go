package render

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Scene beats applied in order across the reel. Later frames build on the
// mood established by earlier ones, which is why frames render sequentially.
var sceneBeats = []string{
	"opening establishing shot",
	"drifting transition",
	"central vision",
	"emotional peak",
	"dissolving imagery",
	"closing fade",
}

var beatTitler = cases.Title(language.English)

// framePrompts derives the ordered per-frame prompts for a reel. The count is
// fixed by the render configuration, never by the requested duration.
func framePrompts(dreamPrompt string, count, durationSeconds int) []string {
	prompts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		beat := sceneBeats[i%len(sceneBeats)]
		prompts = append(prompts, fmt.Sprintf(
			"%s. %s: frame %d of %d for a %d second dream reel, cinematic, coherent with previous frames.",
			dreamPrompt, beatTitler.String(beat), i+1, count, durationSeconds,
		))
	}
	return prompts
}

// audioTagFor picks the metadata-only ambient track name for a reel.
func audioTagFor(durationSeconds int) string {
	switch {
	case durationSeconds <= 15:
		return "ambient-drift-short"
	case durationSeconds <= 60:
		return "ambient-drift"
	default:
		return "ambient-drift-extended"
	}
}
