package watcher

import (
	"regexp"
	"strconv"
)

// t.me deep link forms: public "t.me/<name>/<id>" and private "t.me/c/<internal>/<id>"
var (
	privateLinkRe = regexp.MustCompile(`https?://t\.me/c/(\d+)/(\d+)`)
	publicLinkRe  = regexp.MustCompile(`https?://t\.me/([A-Za-z][A-Za-z0-9_]{3,31})/(\d+)`)
)

// reserved path segments that look like usernames in the public form
var reservedLinkNames = map[string]bool{
	"joinchat":    true,
	"share":       true,
	"addstickers": true,
}

// MessageLink is a parsed reference to a message in another chat.
type MessageLink struct {
	// ChatRef is the reference to resolve: "@username" for public links,
	// the internal numeric id as a string for private links.
	ChatRef string
	MsgID   int
	URL     string
}

// ExtractLinks scans a message body for t.me message links.
// Private-form matches are collected first so the public pattern never
// misreads "c" as a username.
func ExtractLinks(text string) []MessageLink {
	var links []MessageLink
	seen := map[string]bool{}

	for _, m := range privateLinkRe.FindAllStringSubmatch(text, -1) {
		msgID, err := strconv.Atoi(m[2])
		if err != nil || seen[m[0]] {
			continue
		}
		seen[m[0]] = true
		links = append(links, MessageLink{ChatRef: m[1], MsgID: msgID, URL: m[0]})
	}

	for _, m := range publicLinkRe.FindAllStringSubmatch(text, -1) {
		if m[1] == "c" || reservedLinkNames[m[1]] {
			continue
		}
		msgID, err := strconv.Atoi(m[2])
		if err != nil || seen[m[0]] {
			continue
		}
		seen[m[0]] = true
		links = append(links, MessageLink{ChatRef: "@" + m[1], MsgID: msgID, URL: m[0]})
	}

	return links
}
