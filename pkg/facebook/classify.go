package facebook

import "strings"

// ClassifyStory decides whether an opaque JSON node is a story, and which
// variant, using only the node's shape. It never fails loudly: anything
// unrecognized or partially malformed classifies as not-a-story.
//
// Variant checks run in a fixed order. Post first, then Video, then Watch;
// a Watch node can satisfy a weaker Video-like shape, so the stricter Video
// check (which requires an attachment url and publish_time) has to run
// before the Watch check.
func ClassifyStory(obj map[string]interface{}) (*Story, bool) {
	if obj == nil {
		return nil, false
	}
	if story, ok := classifyPost(obj); ok {
		return story, true
	}
	if story, ok := classifyVideo(obj); ok {
		return story, true
	}
	if story, ok := classifyWatch(obj); ok {
		return story, true
	}
	return nil, false
}

// classifyPost matches ordinary feed posts: non-empty id and post_id plus an
// attachments array. A text-only post with zero attachments is valid provided
// it carries a non-empty message text. Every present attachment must expose
// either a recognizable media reference or an all_subattachments collection.
func classifyPost(obj map[string]interface{}) (*Story, bool) {
	id := str(obj, "id")
	postID := str(obj, "post_id")
	if id == "" || postID == "" {
		return nil, false
	}

	rawAtts, ok := asArray(obj["attachments"])
	if !ok {
		return nil, false
	}

	message := messageText(obj)
	if len(rawAtts) == 0 && message == "" {
		return nil, false
	}

	var attachments []Attachment
	for _, rawAtt := range rawAtts {
		attObj, ok := asObject(rawAtt)
		if !ok {
			return nil, false
		}
		att, ok := classifyAttachment(attObj)
		if !ok {
			return nil, false
		}
		attachments = append(attachments, att)
	}

	story := &Story{
		Kind:        StoryPost,
		ID:          id,
		PostID:      postID,
		URL:         str(obj, "wwwURL"),
		Message:     message,
		Actor:       primaryActor(obj),
		Attachments: attachments,
	}
	if story.URL == "" {
		story.URL = str(obj, "url")
	}

	if nested, ok := asObject(obj["attached_story"]); ok {
		if sub, ok := ClassifyStory(nested); ok {
			story.AttachedStory = sub
		}
	}

	return story, true
}

// classifyVideo matches posts whose first attachment has both a url and a
// video media object carrying a numeric publish_time.
func classifyVideo(obj map[string]interface{}) (*Story, bool) {
	id := str(obj, "id")
	if id == "" {
		return nil, false
	}

	attObj, ok := firstAttachment(obj)
	if !ok || str(attObj, "url") == "" {
		return nil, false
	}

	mediaObj, ok := asObject(attObj["media"])
	if !ok || str(mediaObj, "__typename") != "Video" {
		return nil, false
	}
	if _, ok := num(mediaObj, "publish_time"); !ok {
		return nil, false
	}

	media, ok := classifyMedia(mediaObj)
	if !ok {
		return nil, false
	}

	return &Story{
		Kind:        StoryVideo,
		ID:          id,
		PostID:      str(obj, "post_id"),
		Message:     messageText(obj),
		Title:       mediaTitle(mediaObj),
		Actor:       primaryActor(obj),
		Attachments: []Attachment{{Media: media}},
	}, true
}

// classifyWatch matches Watch-style single-video posts: the first attachment's
// media is a video whose creation_story carries comet_sections. These have no
// post_id; dedup falls back to id.
func classifyWatch(obj map[string]interface{}) (*Story, bool) {
	id := str(obj, "id")
	if id == "" {
		return nil, false
	}

	attObj, ok := firstAttachment(obj)
	if !ok {
		return nil, false
	}

	mediaObj, ok := asObject(attObj["media"])
	if !ok || str(mediaObj, "__typename") != "Video" {
		return nil, false
	}
	if _, ok := object(mediaObj, "creation_story", "comet_sections"); !ok {
		return nil, false
	}

	media, ok := classifyMedia(mediaObj)
	if !ok {
		return nil, false
	}

	return &Story{
		Kind:        StoryWatch,
		ID:          id,
		Message:     messageText(obj),
		Title:       mediaTitle(mediaObj),
		Actor:       primaryActor(obj),
		Attachments: []Attachment{{Media: media}},
	}, true
}

// classifyAttachment recognizes one entry of a post's attachment list
func classifyAttachment(attObj map[string]interface{}) (Attachment, bool) {
	if subObj, ok := asObject(attObj["all_subattachments"]); ok {
		sub, ok := classifySubattachments(subObj)
		if !ok {
			return Attachment{}, false
		}
		att := Attachment{Subattachments: sub}
		if len(sub.Nodes) == 0 {
			// Collection arrived with a count but no nodes. The sibling
			// media field is the collection's cover item and still gives
			// the pagination walk a starting point.
			if mediaObj, ok := asObject(attObj["media"]); ok {
				if media, ok := classifyMedia(mediaObj); ok {
					att.Media = media
				}
			}
		}
		return att, true
	}

	if mediaObj, ok := asObject(attObj["media"]); ok {
		if media, ok := classifyMedia(mediaObj); ok {
			return Attachment{Media: media}, true
		}
	}

	return Attachment{}, false
}

// classifySubattachments parses the collection form of an attachment
// container. Count is authoritative; nodes is usually a shorter prefix.
func classifySubattachments(subObj map[string]interface{}) (*Subattachments, bool) {
	count, ok := num(subObj, "count")
	if !ok {
		return nil, false
	}

	sub := &Subattachments{Count: int(count)}

	nodes, _ := asArray(subObj["nodes"])
	for _, rawNode := range nodes {
		nodeObj, ok := asObject(rawNode)
		if !ok {
			continue
		}
		mediaObj, ok := asObject(nodeObj["media"])
		if !ok {
			continue
		}
		if media, ok := classifyMedia(mediaObj); ok {
			sub.Nodes = append(sub.Nodes, media)
		}
	}

	return sub, true
}

// classifyMedia decides whether a JSON node is a downloadable media unit.
// Photos select the image candidate with the largest area; videos prefer the
// HD progressive stream, falling back to the first available; watch videos
// carry no URL of their own and are filled in from the DASH prefetch cache.
func classifyMedia(mediaObj map[string]interface{}) (*Media, bool) {
	id := str(mediaObj, "id")
	typename := str(mediaObj, "__typename")
	if id == "" || typename == "" {
		return nil, false
	}

	media := &Media{
		ID:       id,
		Typename: typename,
	}
	if pt, ok := num(mediaObj, "publish_time"); ok {
		media.PublishTime = int64(pt)
	}

	switch typename {
	case "Photo":
		media.Kind = MediaPhoto
		media.URL, media.Width, media.Height = bestImage(mediaObj)
		return media, true
	case "Video":
		if _, ok := object(mediaObj, "creation_story", "comet_sections"); ok {
			media.Kind = MediaWatchVideo
			return media, true
		}
		media.Kind = MediaVideo
		media.URL = bestProgressiveURL(mediaObj)
		return media, true
	default:
		return nil, false
	}
}

// imageCandidateKeys are the fields a photo node may expose its renditions
// under; any subset may be present.
var imageCandidateKeys = []string{"image", "photo_image", "viewer_image"}

// bestImage selects the candidate image URL with the maximum pixel area
func bestImage(mediaObj map[string]interface{}) (uri string, width, height int) {
	bestArea := -1
	for _, key := range imageCandidateKeys {
		img, ok := asObject(mediaObj[key])
		if !ok {
			continue
		}
		u := str(img, "uri")
		if u == "" {
			continue
		}
		w, _ := num(img, "width")
		h, _ := num(img, "height")
		area := int(w) * int(h)
		if area > bestArea {
			bestArea = area
			uri, width, height = u, int(w), int(h)
		}
	}
	return uri, width, height
}

// bestProgressiveURL picks a progressive download stream, preferring the one
// tagged HD, else the first with a URL
func bestProgressiveURL(mediaObj map[string]interface{}) string {
	progressive, ok := asArray(mediaObj["progressive_urls"])
	if !ok {
		if fields, ok := asObject(mediaObj["videoDeliveryLegacyFields"]); ok {
			progressive, _ = asArray(fields["progressive_urls"])
		}
	}

	first := ""
	for _, rawEntry := range progressive {
		entry, ok := asObject(rawEntry)
		if !ok {
			continue
		}
		u := str(entry, "progressive_url")
		if u == "" {
			continue
		}
		if first == "" {
			first = u
		}
		if meta, ok := asObject(entry["metadata"]); ok {
			if strings.EqualFold(str(meta, "quality"), "HD") {
				return u
			}
		}
	}
	return first
}

// messageText extracts the message body, or ""
func messageText(obj map[string]interface{}) string {
	msg, ok := asObject(obj["message"])
	if !ok {
		return ""
	}
	return str(msg, "text")
}

// mediaTitle extracts a video's title, tolerating both title shapes
func mediaTitle(mediaObj map[string]interface{}) string {
	if title, ok := asObject(mediaObj["title"]); ok {
		if t := str(title, "text"); t != "" {
			return t
		}
	}
	return str(mediaObj, "name")
}

// primaryActor extracts the first entry of the actors list, or nil
func primaryActor(obj map[string]interface{}) *User {
	actors, ok := asArray(obj["actors"])
	if !ok || len(actors) == 0 {
		return nil
	}
	actor, ok := asObject(actors[0])
	if !ok {
		return nil
	}
	id := str(actor, "id")
	name := str(actor, "name")
	if id == "" && name == "" {
		return nil
	}
	return &User{ID: id, Name: name}
}

// firstAttachment returns attachments[0] as an object
func firstAttachment(obj map[string]interface{}) (map[string]interface{}, bool) {
	atts, ok := asArray(obj["attachments"])
	if !ok || len(atts) == 0 {
		return nil, false
	}
	return asObject(atts[0])
}
