package command

import (
	"fmt"
	"strings"
)

const helpFooter = "Parameters go after the command as :key=value."

// RenderHelp lists every visible command grouped by category, in
// registration order.
func RenderHelp(reg *Registry, botName string) string {
	var categories []string
	byCategory := map[string][]Entry{}
	for _, e := range reg.Entries() {
		if e.Hidden {
			continue
		}
		if _, seen := byCategory[e.Category]; !seen {
			categories = append(categories, e.Category)
		}
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}

	var b strings.Builder
	if botName != "" {
		fmt.Fprintf(&b, "*%s commands*\n", botName)
	} else {
		b.WriteString("*Commands*\n")
	}

	for _, cat := range categories {
		if cat != "" {
			fmt.Fprintf(&b, "\n*%s*\n", strings.ToUpper(cat[:1])+cat[1:])
		} else {
			b.WriteString("\n")
		}
		for _, e := range byCategory[cat] {
			fmt.Fprintf(&b, "%s - %s\n", e.ID, e.Description)
			for _, p := range e.Params {
				fmt.Fprintf(&b, "    :%s=", p.Name)
				if len(p.Options) > 0 {
					b.WriteString(strings.Join(p.Options, "|"))
				} else {
					b.WriteString("<value>")
				}
				if p.Description != "" {
					fmt.Fprintf(&b, "  %s", p.Description)
				}
				b.WriteString("\n")
			}
		}
	}

	if botName != "" {
		fmt.Fprintf(&b, "\nTip: in groups, mention @%s to chat. In private, just talk.\n", botName)
	}
	b.WriteString(helpFooter)
	return b.String()
}
