package facebook

import "fmt"

const (
	// BaseURL is the base URL for Facebook
	BaseURL = "https://www.facebook.com"

	// GraphQLEndpoint is the endpoint all captured operations replay against
	GraphQLEndpoint = "/api/graphql/"

	// PhotoNavigationOperation is the operation name for stepping through a
	// photo mediaset
	PhotoNavigationOperation = "CometPhotoRootMediaViewerQuery"

	// VideoNavigationOperation is the operation name for stepping through a
	// video mediaset
	VideoNavigationOperation = "CometVideoRootMediaViewerQuery"
)

// MediasetToken scopes a navigation walk to one post's attachment set
func MediasetToken(postID string) string {
	return "pcb." + postID
}

// WatchURL constructs the canonical watch URL for a video id
func WatchURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return fmt.Sprintf("%s/watch/?v=%s", BaseURL, videoID)
}

// navigationOperation maps a media kind to the operation that pages through
// its mediaset
func navigationOperation(kind MediaKind) string {
	if kind == MediaVideo || kind == MediaWatchVideo {
		return VideoNavigationOperation
	}
	return PhotoNavigationOperation
}
