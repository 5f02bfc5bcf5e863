// Package completion works out what can be completed at an editor caret from
// the facts recorded around it.
package completion

import (
	"strings"

	"go.lsp.dev/protocol"
)

// Items lists the completions that follow from the context alone: the
// visible locals and the proc-relative builtins, filtered by the typed
// prefix. Members and type paths need an object tree and are not produced here.
func Items(c *CompletionContext) []protocol.CompletionItem {
	if c == nil {
		return nil
	}
	switch c.Situation {
	case SituationIdentifier, SituationProcArgument:
	default:
		return nil
	}

	var items []protocol.CompletionItem
	seen := map[string]bool{}
	for _, l := range c.Locals {
		if seen[l.Name] || !strings.HasPrefix(l.Name, c.Prefix) {
			continue
		}
		seen[l.Name] = true
		items = append(items, protocol.CompletionItem{
			Label:  l.Name,
			Kind:   protocol.CompletionItemKindVariable,
			Detail: l.Type.String(),
		})
	}

	if c.Proc != nil {
		for _, b := range []struct{ label, detail string }{
			{"src", "the object the proc belongs to"},
			{"usr", "the mob that started the call chain"},
			{"args", "the arguments of this call"},
		} {
			if seen[b.label] || !strings.HasPrefix(b.label, c.Prefix) {
				continue
			}
			items = append(items, protocol.CompletionItem{
				Label:  b.label,
				Kind:   protocol.CompletionItemKindKeyword,
				Detail: b.detail,
			})
		}
	}
	return items
}
