// Package prompt projects session state into the bounded, role-tagged
// context sent to the narration service. Building is a pure function of
// the state and the new action: identical inputs yield byte-identical
// output, so narration drift can never originate here.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antoniostano/fable/internal/game"
	"github.com/antoniostano/fable/internal/narrator"
)

// SystemPreamble carries the game rules. The rules are flavor owned by
// the narration service; the engine never enforces them.
const SystemPreamble = `You are the Dungeon Master for a narrative-focused, play-by-post RPG.
The game emphasizes storytelling, uses light dice rolling for uncertainty, and allows dynamic, in-play character creation. Only one player acts at a time.

RULES:
1. Announce whose turn it is to act.
2. Only the active player may act; ignore others. Unless it is a totally new player then they can join at any time.
3. Dynamic characters: attributes, skills, inventory created as needed.
4. Default roll: d6 + relevant attribute + relevant skill.
5. Success: story progresses; Failure: skill improves +1 and story progresses with complication.
6. Combat/conflict is narrative-first.
7. Keep concise narration (2-6 paragraphs), immersive and fair.
8. Track only the last action for status.
9. If a player times out, resolve turn conservatively.
10. Keep status posts short.
11. Don't fill in the blanks too much, unless its necessary for the situation. Let the players dictate their actions and sayings more.
12. Focus more on describing the surroundings and what is happening around the players, and a bit less about what the players do. EXCEPTION: if players input is very brief it is okay to make it more expressive.
13. Try to limit the amount of things that happen in one of your posts. Make the players feel they are the heroes of the story and their actions and decisions matter more.`

// ActionLine renders an action the way both the history and the new
// turn present it to the narrator.
func ActionLine(actor, action string) string {
	return fmt.Sprintf("%s acts: %s", actor, action)
}

// Build composes the full narration request context: system preamble
// plus game-state block, the windowed history oldest-first, and the new
// action as the final user message.
func Build(state *game.SessionState, window int, actor, action string) []narrator.Message {
	if window <= 0 {
		window = game.DefaultHistoryWindow
	}

	messages := make([]narrator.Message, 0, 2*window+2)
	messages = append(messages, narrator.Message{
		Role:    narrator.RoleSystem,
		Content: SystemPreamble + "\n\nCURRENT GAME STATE:\n" + stateBlock(state),
	})

	history := state.History
	if len(history) > window {
		history = history[len(history)-window:]
	}
	for _, entry := range history {
		messages = append(messages,
			narrator.Message{Role: narrator.RoleUser, Content: ActionLine(entry.Actor, entry.Action)},
			narrator.Message{Role: narrator.RoleAssistant, Content: entry.Response},
		)
	}

	messages = append(messages, narrator.Message{
		Role:    narrator.RoleUser,
		Content: ActionLine(actor, action),
	})
	return messages
}

// stateBlock renders scene, round, turn order and character sheets.
// Map keys are sorted so the block is deterministic.
func stateBlock(state *game.SessionState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CURRENT SCENE: %s\n", state.Scene)
	fmt.Fprintf(&b, "\nROUND: %d\n", state.Round)

	if len(state.Participants) > 0 {
		b.WriteString("\nTURN ORDER:\n")
		for i, p := range state.Participants {
			marker := ""
			if i == state.TurnIndex {
				marker = " (CURRENT)"
			}
			fmt.Fprintf(&b, "  %d. %s%s\n", i+1, p, marker)
		}
	}

	if len(state.Characters) > 0 {
		b.WriteString("\nALL CHARACTERS:\n")
		names := make([]string, 0, len(state.Characters))
		for name := range state.Characters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s: %s\n", name, renderSheet(state.Characters[name]))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderSheet(sheet *game.CharacterSheet) string {
	return fmt.Sprintf("Attributes=%s, Skills=%s, Inventory=[%s]",
		renderIntMap(sheet.Attributes),
		renderIntMap(sheet.Skills),
		strings.Join(sheet.Inventory, ", "))
}

func renderIntMap(m map[string]int) string {
	if len(m) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
