// Package facebook turns raw Facebook GraphQL feed responses into normalized
// stories with complete, ordered attachment lists.
//
// This package includes:
//   - Shape-based classification of opaque JSON nodes into story and media
//     variants (classification never fails, it just declines)
//   - A deduplicating extractor that finds stories anywhere in a response
//   - Metadata walkers that join creation times, parent groups, and DASH
//     video URLs to stories by id
//   - An attachment resolver that walks the paginated media navigation
//     endpoint to discover attachments beyond the embedded prefix
//   - A GraphQL client that replays captured request templates
//
// Example usage:
//
//	session := facebook.NewSession()
//
//	var decoded interface{}
//	_ = json.Unmarshal(raw, &decoded)
//
//	facebook.CollectMetadata(session, decoded)
//	stories := facebook.ExtractStories(decoded)
//
//	resolver := facebook.NewResolver(session, client, nil)
//	for _, story := range stories {
//	    media := resolver.Resolve(ctx, story, func(m *facebook.Media) {
//	        // queue m.URL for download as soon as it is known
//	    })
//	    _ = media
//	}
package facebook
