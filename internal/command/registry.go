// Package command holds the command table and the classifier that maps
// message bodies onto it.
package command

import (
	"fmt"
	"slices"
	"strings"
)

// Command identifiers.
const (
	Help       = "!help"
	Model      = "!model"
	Resume     = "!resume"
	Search     = "!search"
	Sticker    = "!sticker"
	Image      = "!image"
	Remember   = "!remember"
	Reminders  = "!reminders"
	Forget     = "!forget"
	Transcribe = "!transcribe"
)

// Categories used to group the help listing.
const (
	CategoryGeneral  = "general"
	CategoryMedia    = "media"
	CategoryText     = "text"
	CategoryReminder = "reminders"
)

// ParamSpec documents an accepted `:key=value` parameter. It feeds the help
// text only; values are never validated against Options.
type ParamSpec struct {
	Name        string
	Description string
	Options     []string
}

// Entry is one row of the command table.
type Entry struct {
	ID          string
	Category    string
	Description string
	Hidden      bool
	Params      []ParamSpec
}

// Registry is an immutable, ordered command table.
type Registry struct {
	entries []Entry
	index   map[string]int
	params  []string
}

// NewRegistry validates entries and builds a registry. Order is preserved
// and decides ties during classification.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if !strings.HasPrefix(e.ID, "!") || len(e.ID) < 2 {
			return nil, fmt.Errorf("command: invalid token %q", e.ID)
		}
		if strings.ContainsAny(e.ID, " \t\n") {
			return nil, fmt.Errorf("command: token %q contains whitespace", e.ID)
		}
		if _, dup := r.index[e.ID]; dup {
			return nil, fmt.Errorf("command: duplicate token %q", e.ID)
		}
		e.Params = slices.Clone(e.Params)
		for _, p := range e.Params {
			if p.Name == "" {
				return nil, fmt.Errorf("command: %s declares an unnamed parameter", e.ID)
			}
			if !slices.Contains(r.params, p.Name) {
				r.params = append(r.params, p.Name)
			}
		}
		r.index[e.ID] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r, nil
}

// MustRegistry is NewRegistry for static tables.
func MustRegistry(entries ...Entry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the entry for a token.
func (r *Registry) Lookup(id string) (Entry, bool) {
	i, ok := r.index[id]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns a copy of the table in registration order.
func (r *Registry) Entries() []Entry {
	return slices.Clone(r.entries)
}

// IDs returns every token in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.entries))
	for i, e := range r.entries {
		ids[i] = e.ID
	}
	return ids
}

// ParamNames is the allow-list of parameter keys, the union of every
// entry's declared parameters.
func (r *Registry) ParamNames() []string {
	return slices.Clone(r.params)
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// DefaultEntries is the bot's command table.
func DefaultEntries() []Entry {
	return []Entry{
		{ID: Help, Category: CategoryGeneral, Description: "Show this list of commands."},
		{ID: Model, Category: CategoryGeneral, Description: "Show which models are answering."},
		{ID: Resume, Category: CategoryText, Description: "Summarize the latest messages of this chat."},
		{ID: Search, Category: CategoryText, Description: "Search the web and answer with sources."},
		{
			ID:          Sticker,
			Category:    CategoryMedia,
			Description: "Turn an image (sent or quoted) into a sticker. With no image, uses the profile picture of the first mention. Text becomes the caption; split top and bottom with |.",
			Params: []ParamSpec{
				{Name: "no-background", Description: "Remove the background first.", Options: []string{"t", "f"}},
				{Name: "random", Description: "Use a random generated picture instead of an image.", Options: []string{"t", "f"}},
			},
		},
		{
			ID:          Image,
			Category:    CategoryMedia,
			Description: "Generate an image from text, or edit a sent or quoted image.",
			Params: []ParamSpec{
				{Name: "id", Description: "Reuse the image from a previous message id."},
			},
		},
		{ID: Transcribe, Category: CategoryMedia, Description: "Transcribe a quoted audio message."},
		{ID: Remember, Category: CategoryReminder, Description: "Schedule a reminder, e.g. \"!remember in 10 minutes to call mom\"."},
		{ID: Reminders, Category: CategoryReminder, Description: "List your pending reminders."},
		{
			ID:          Forget,
			Category:    CategoryReminder,
			Description: "Cancel a pending reminder.",
			Params: []ParamSpec{
				{Name: "id", Description: "Reminder number shown by !reminders."},
			},
		},
	}
}

// Default returns the registry built from DefaultEntries.
func Default() *Registry {
	return MustRegistry(DefaultEntries()...)
}
