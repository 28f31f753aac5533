package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Discord snowflakes are 15-20 digits; anything shorter in the argument
// string is treated as noise.
var snowflakePattern = regexp.MustCompile(`\d{15,20}`)

// mentionIDs extracts the unique user IDs from a free-form argument string
// containing mentions like "@user1 @user2" or raw IDs.
func mentionIDs(s string) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, m := range snowflakePattern.FindAllString(s, -1) {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// parseChannelRef accepts a channel mention like "<#123>" or a bare numeric ID.
func parseChannelRef(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "<#") && strings.HasSuffix(trimmed, ">") {
		trimmed = trimmed[2 : len(trimmed)-1]
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid channel reference %q", s)
	}
	return id, nil
}

// splitNames splits a semicolon-separated list of task names,
// dropping empty entries.
func splitNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ";") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func parseSnowflake(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

func formatSnowflake(id int64) string {
	return strconv.FormatInt(id, 10)
}

func userMention(id int64) string {
	return fmt.Sprintf("<@%d>", id)
}

func channelMention(id int64) string {
	return fmt.Sprintf("<#%d>", id)
}

func userMentions(ids []int64) string {
	if len(ids) == 0 {
		return "Nobody... Where is everyone?"
	}
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, userMention(id))
	}
	return strings.Join(mentions, ", ")
}
