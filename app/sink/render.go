package sink

import (
	"fmt"
	"strings"
)

// renderContent flattens a payload into the message body. The terminal
// notice always comes last so its presence can be checked on a fetched
// message.
func renderContent(p Payload) string {
	var b strings.Builder

	switch {
	case p.Notice != "" && p.Kind == "post":
		b.WriteString("Deleted Instagram Post")
	case p.Notice != "" && p.Kind == "story":
		b.WriteString("Expired Instagram Story")
	default:
		b.WriteString(fmt.Sprintf("New Instagram %s", titleKind(p.Kind)))
	}
	b.WriteString(fmt.Sprintf("\n@%s | %s", p.Creator, p.ItemID))

	if p.Caption != "" {
		b.WriteString("\n" + p.Caption)
	}
	if p.Timestamp != "" {
		b.WriteString("\nPosted At: " + p.Timestamp)
	}
	if p.NoticedAt != "" && p.Kind == "post" {
		b.WriteString("\nDeleted At: " + p.NoticedAt)
	}
	if p.NoticedAt != "" && p.Kind == "story" {
		b.WriteString("\nExpired At: " + p.NoticedAt)
	}
	if p.LikeCount != nil {
		b.WriteString(fmt.Sprintf("\nLikes: %d", *p.LikeCount))
	}
	if p.CommentCount != nil {
		b.WriteString(fmt.Sprintf("\nComments: %d", *p.CommentCount))
	}
	if p.Link != "" {
		b.WriteString("\n" + p.Link)
	}
	if p.Notice != "" {
		b.WriteString("\n\n" + p.Notice)
	}

	return b.String()
}

func titleKind(kind string) string {
	if kind == "" {
		return kind
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}
