// Package docs models documentation comments collected for a definition.
//
// A *Collection is handed out by the doc collector and shared by every
// annotation that refers to it; holders must treat it as read-only.
package docs

import (
	"strings"
)

// CommentKind is the syntax a doc comment was written in.
type CommentKind uint8

const (
	LineComment CommentKind = iota
	BlockComment
)

// Target says which item a doc comment documents.
type Target uint8

const (
	// FollowingItem comments precede what they document (/** */ and ///).
	FollowingItem Target = iota
	// EnclosingItem comments live inside what they document (/*! */ and //!).
	EnclosingItem
)

// Comment is a single documentation comment.
type Comment struct {
	Kind   CommentKind `json:"kind" msgpack:"kind"`
	Target Target      `json:"target" msgpack:"target"`
	Text   string      `json:"text" msgpack:"text"`
}

// Collection is every doc comment attached to one item, in source order.
type Collection struct {
	Elems []Comment `json:"elems" msgpack:"elems"`
}

func NewCollection(elems ...Comment) *Collection {
	return &Collection{Elems: elems}
}

func (c *Collection) IsEmpty() bool {
	return c == nil || len(c.Elems) == 0
}

// Text joins the comments, one per paragraph, with surrounding blank lines trimmed.
func (c *Collection) Text() string {
	if c.IsEmpty() {
		return ""
	}

	var sb strings.Builder
	for _, e := range c.Elems {
		text := strings.Trim(e.Text, "\n")
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			if e.Kind == BlockComment {
				sb.WriteString("\n\n")
			} else {
				sb.WriteString("\n")
			}
		}
		sb.WriteString(text)
	}
	return sb.String()
}
