package facebook

import "strings"

// Metadata correlation: three independent walkers, each scanning a whole
// decoded response for one structural signature and recording what it finds
// in the session caches. They run over every response, matched subtrees may
// or may not belong to an extracted story, and repeated or overlapping input
// is harmless: every cache write is first-write-wins.

// CollectCreateTimes records creation timestamps for nodes that carry a
// numeric creation_time together with a string id and url.
func CollectCreateTimes(session *Session, root interface{}) {
	walkObjects(root, func(obj map[string]interface{}) {
		ct, ok := num(obj, "creation_time")
		if !ok {
			return
		}
		id := str(obj, "id")
		if id == "" || str(obj, "url") == "" {
			return
		}
		session.SetCreateTime(id, int64(ct))
	})
}

// CollectGroups records story-to-group associations. The correlation record
// ({id, to:{__typename:"Group", id, name}}) is structurally unrelated to the
// story object itself; the join happens later by story id.
func CollectGroups(session *Session, root interface{}) {
	walkObjects(root, func(obj map[string]interface{}) {
		storyID := str(obj, "id")
		if storyID == "" {
			return
		}
		to, ok := asObject(obj["to"])
		if !ok || str(to, "__typename") != "Group" {
			return
		}
		groupID := str(to, "id")
		groupName := str(to, "name")
		if groupID == "" || groupName == "" {
			return
		}
		session.SetGroup(storyID, Group{ID: groupID, Name: groupName})
	})
}

// CollectVideoURLs records, for each video in a DASH prefetch block, the
// base URL of the highest-bandwidth non-audio representation. This is the
// side channel that makes Watch videos downloadable at all.
func CollectVideoURLs(session *Session, root interface{}) {
	walkObjects(root, func(obj map[string]interface{}) {
		reps, ok := asArray(obj["all_video_dash_prefetch_representations"])
		if !ok {
			return
		}
		for _, rawEntry := range reps {
			entry, ok := asObject(rawEntry)
			if !ok {
				continue
			}
			videoID := str(entry, "video_id")
			if videoID == "" || session.HasVideoURL(videoID) {
				continue
			}
			if url := bestRepresentation(entry); url != "" {
				session.SetVideoURL(videoID, url)
			}
		}
	})
}

// CollectMetadata runs all three walkers over one decoded response
func CollectMetadata(session *Session, root interface{}) {
	CollectCreateTimes(session, root)
	CollectGroups(session, root)
	CollectVideoURLs(session, root)
}

// bestRepresentation picks the highest-bandwidth representation whose mime
// type is not audio
func bestRepresentation(entry map[string]interface{}) string {
	reps, ok := asArray(entry["representations"])
	if !ok {
		return ""
	}

	bestURL := ""
	bestBandwidth := -1.0
	for _, rawRep := range reps {
		rep, ok := asObject(rawRep)
		if !ok {
			continue
		}
		if strings.HasPrefix(str(rep, "mime_type"), "audio/") {
			continue
		}
		baseURL := str(rep, "base_url")
		if baseURL == "" {
			continue
		}
		bandwidth, _ := num(rep, "bandwidth")
		if bandwidth > bestBandwidth {
			bestBandwidth = bandwidth
			bestURL = baseURL
		}
	}
	return bestURL
}

// walkObjects visits every JSON object in the value tree, parents before
// children, in stable key order
func walkObjects(root interface{}, visit func(map[string]interface{})) {
	switch t := root.(type) {
	case []interface{}:
		for _, elem := range t {
			walkObjects(elem, visit)
		}
	case map[string]interface{}:
		visit(t)
		for _, key := range sortedKeys(t) {
			walkObjects(t[key], visit)
		}
	}
}
