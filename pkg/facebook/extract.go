package facebook

// ExtractStories finds every story reachable from a decoded JSON value.
//
// The traversal is depth-first over arrays and objects, with object keys
// visited in lexical order so the result sequence is stable for a given
// input. Dedup is first-seen-wins on the business key: a story whose key was
// already emitted is ignored, not merged. When a node classifies as a story,
// its attached_story child is skipped during recursion so a nested shared
// post stays a field of its parent instead of surfacing as a sibling.
//
// The known feed response shapes (the single-post patch at
// data.node.comet_sections.content.story, the full query at
// data.viewer.news_feed.edges[].node...., and the group feed at
// data.node.group_feed.edges[].node....) all fall out of total traversal;
// no path is special-cased, and all three may coexist in one batch.
func ExtractStories(root interface{}) []*Story {
	var stories []*Story
	seen := make(map[string]bool)

	var walk func(v interface{})
	walk = func(v interface{}) {
		switch t := v.(type) {
		case []interface{}:
			for _, elem := range t {
				walk(elem)
			}
		case map[string]interface{}:
			story, isStory := ClassifyStory(t)
			if isStory && !seen[story.Key()] {
				seen[story.Key()] = true
				stories = append(stories, story)
			}
			for _, key := range sortedKeys(t) {
				if isStory && key == "attached_story" {
					continue
				}
				walk(t[key])
			}
		}
	}

	walk(root)
	return stories
}
