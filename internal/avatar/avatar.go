// Package avatar builds generated avatar URLs for users and group chats
// that have not uploaded a picture of their own.
package avatar

import "net/url"

const generatorBase = "https://api.dicebear.com/9.x/identicon/svg"

// URL returns a deterministic generated avatar for a seed string.
// The same seed always yields the same image.
func URL(seed string) string {
	return generatorBase + "?seed=" + url.QueryEscape(seed)
}
