package messages

import (
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
)

// group is a contiguous run of messages that must be sent or dropped
// together: an assistant tool_use message and the user message answering all
// of its calls, or a single message.
type group struct {
	start, end int // [start, end) into the message slice
}

// windowStats summarizes one window preparation.
type windowStats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// blockOverhead is the fixed cost added per content block.
const blockOverhead = 4

// groupMessages splits msgs into pair-safe groups. A tool_use message pairs
// with the next message only when that message is a user message whose
// leading blocks are tool_results covering exactly the same call IDs.
func groupMessages(msgs []anthropic.MessageParam) []group {
	groups := make([]group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		if i+1 < len(msgs) && pairs(msgs[i], msgs[i+1]) {
			groups = append(groups, group{start: i, end: i + 2})
			i += 2
			continue
		}
		groups = append(groups, group{start: i, end: i + 1})
		i++
	}
	return groups
}

func pairs(asst, user anthropic.MessageParam) bool {
	if asst.Role != anthropic.MessageParamRoleAssistant || user.Role != anthropic.MessageParamRoleUser {
		return false
	}
	uses := make(map[string]struct{})
	for _, blk := range asst.Content {
		if tu := blk.OfToolUse; tu != nil && tu.ID != "" {
			uses[tu.ID] = struct{}{}
		}
	}
	if len(uses) == 0 {
		return false
	}
	results := make(map[string]struct{})
	seenOther := false
	for _, blk := range user.Content {
		tr := blk.OfToolResult
		if tr == nil {
			seenOther = true
			continue
		}
		if seenOther {
			return false
		}
		if _, ok := uses[tr.ToolUseID]; !ok {
			return false
		}
		results[tr.ToolUseID] = struct{}{}
	}
	return len(results) == len(uses)
}

// countMessage estimates the input-token cost of m: rune counts of text and
// string tool results plus a per-block overhead.
func countMessage(m anthropic.MessageParam) int {
	total := 0
	for _, blk := range m.Content {
		total += blockOverhead
		switch {
		case blk.OfText != nil:
			total += utf8.RuneCountInString(blk.OfText.Text)
		case blk.OfToolResult != nil:
			for _, c := range blk.OfToolResult.Content {
				if c.OfText != nil {
					total += utf8.RuneCountInString(c.OfText.Text)
				}
			}
		}
	}
	return total
}

// prepareWindow returns the newest suffix of msgs that fits budget without
// splitting a group, starting at the oldest included plain user message.
// When no such window fits the budget it is empty and OverBudgetNewest is set.
func prepareWindow(msgs []anthropic.MessageParam, budget int) ([]anthropic.MessageParam, windowStats) {
	stats := windowStats{Budget: budget}
	if len(msgs) == 0 {
		return nil, stats
	}
	groups := groupMessages(msgs)
	stats.SkippedGroups = len(groups)
	if budget <= 0 {
		stats.OverBudgetNewest = true
		return nil, stats
	}

	start := len(groups)
	costs := make([]int, len(groups))
	for gi := len(groups) - 1; gi >= 0; gi-- {
		for i := groups[gi].start; i < groups[gi].end; i++ {
			costs[gi] += countMessage(msgs[i])
		}
		if stats.Total+costs[gi] > budget {
			if stats.IncludedGroups == 0 {
				stats.OverBudgetNewest = true
				return nil, stats
			}
			break
		}
		stats.Total += costs[gi]
		stats.IncludedGroups++
		start = gi
	}

	// The API only accepts a window opened by a plain user message.
	for start < len(groups) && !opensWindow(msgs[groups[start].start]) {
		stats.Total -= costs[start]
		stats.IncludedGroups--
		start++
	}
	stats.SkippedGroups = len(groups) - stats.IncludedGroups
	if start == len(groups) {
		stats.Total = 0
		stats.OverBudgetNewest = true
		return nil, stats
	}

	return msgs[groups[start].start:], stats
}

// opensWindow reports whether m can be the first message of a request: a
// user message that answers no earlier tool call.
func opensWindow(m anthropic.MessageParam) bool {
	if m.Role != anthropic.MessageParamRoleUser {
		return false
	}
	for _, b := range m.Content {
		if b.OfToolResult != nil {
			return false
		}
	}
	return true
}
