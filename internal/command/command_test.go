package command

import (
	"strings"
	"testing"

	"github.com/gorkbot/gork/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(
		Entry{ID: "!a", Params: []ParamSpec{{Name: "x"}, {Name: "y"}}},
		Entry{ID: "!b", Params: []ParamSpec{{Name: "y"}, {Name: "z"}}},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"!a", "!b"}, reg.IDs())
	assert.Equal(t, []string{"x", "y", "z"}, reg.ParamNames())

	e, ok := reg.Lookup("!b")
	require.True(t, ok)
	assert.Equal(t, "!b", e.ID)
	_, ok = reg.Lookup("!c")
	assert.False(t, ok)
}

func TestNewRegistryErrors(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"missing bang", []Entry{{ID: "help"}}},
		{"bare bang", []Entry{{ID: "!"}}},
		{"whitespace", []Entry{{ID: "!a b"}}},
		{"duplicate", []Entry{{ID: "!a"}, {ID: "!a"}}},
		{"unnamed param", []Entry{{ID: "!a", Params: []ParamSpec{{}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.entries...)
			assert.Error(t, err)
		})
	}
	assert.Panics(t, func() { MustRegistry(Entry{ID: "nope"}) })
}

func TestRegistryIsImmutable(t *testing.T) {
	reg := Default()
	entries := reg.Entries()
	entries[0].ID = "!hacked"
	ids := reg.IDs()
	ids[0] = "!hacked"

	e, ok := reg.Lookup(Help)
	require.True(t, ok)
	assert.Equal(t, Help, e.ID)
	assert.Equal(t, Help, reg.IDs()[0])
}

func TestDefaultAllowList(t *testing.T) {
	assert.ElementsMatch(t, []string{"id", "no-background", "random"}, Default().ParamNames())
}

func TestClassify(t *testing.T) {
	c := NewClassifier(Default(), WithBotName("Gork"))

	tests := []struct {
		name       string
		body       string
		wantID     string
		wantParams domain.Params
		wantClean  string
	}{
		{
			name:       "sticker with flag",
			body:       "!sticker :no-background=t hello",
			wantID:     Sticker,
			wantParams: domain.Params{"no-background": "t"},
			wantClean:  "hello",
		},
		{
			name:       "free text",
			body:       "just chatting",
			wantID:     "",
			wantParams: domain.Params{},
			wantClean:  "just chatting",
		},
		{
			name:       "numeric param",
			body:       "!forget :id=12",
			wantID:     Forget,
			wantParams: domain.Params{"id": 12},
			wantClean:  "",
		},
		{
			name:       "last duplicate wins",
			body:       "!image :id=1 :id=abc a cat",
			wantID:     Image,
			wantParams: domain.Params{"id": "abc"},
			wantClean:  "a cat",
		},
		{
			name:       "unknown key kept in clean text",
			body:       "!search :lang=pt golang generics",
			wantID:     Search,
			wantParams: domain.Params{},
			wantClean:  ":lang=pt golang generics",
		},
		{
			name:       "bot mention removed",
			body:       "@Gork !remember in 5 minutes to stretch",
			wantID:     Remember,
			wantParams: domain.Params{},
			wantClean:  "in 5 minutes to stretch",
		},
		{
			name:       "numeric mentions stripped",
			body:       "!sticker @5511988887777",
			wantID:     Sticker,
			wantParams: domain.Params{},
			wantClean:  "",
		},
		{
			name:       "case sensitive",
			body:       "!HELP me",
			wantID:     "",
			wantParams: domain.Params{},
			wantClean:  "!HELP me",
		},
		{
			name:       "earliest token wins",
			body:       "!search something then !help",
			wantID:     Search,
			wantParams: domain.Params{},
			wantClean:  "something then",
		},
		{
			name:       "longer token at same position",
			body:       "!reminders please",
			wantID:     Reminders,
			wantParams: domain.Params{},
			wantClean:  "please",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.body)
			assert.Equal(t, tt.wantID, got.CommandID)
			assert.Equal(t, tt.wantParams, got.Params)
			assert.Equal(t, tt.wantClean, got.Clean)
			assert.Equal(t, tt.wantID != "", got.IsCommand())
		})
	}
}

func TestClassifyPrefixTokens(t *testing.T) {
	reg := MustRegistry(Entry{ID: "!remind"}, Entry{ID: "!reminders"})
	c := NewClassifier(reg)

	got := c.Classify("!reminders now")
	assert.Equal(t, "!reminders", got.CommandID)
	assert.Equal(t, "now", got.Clean)

	got = c.Classify("!remind me")
	assert.Equal(t, "!remind", got.CommandID)
	assert.Equal(t, "me", got.Clean)
}

func TestClassifyKeepMentions(t *testing.T) {
	c := NewClassifier(Default(), WithStripMentions(false))
	got := c.Classify("!sticker @5511988887777")
	assert.Equal(t, "@5511988887777", got.Clean)
}

func TestClassifyNoParams(t *testing.T) {
	c := NewClassifier(MustRegistry(Entry{ID: "!ping"}))
	got := c.Classify("!ping :id=3")
	assert.Equal(t, "!ping", got.CommandID)
	assert.Empty(t, got.Params)
	assert.Equal(t, ":id=3", got.Clean)
}

func TestMentionsBot(t *testing.T) {
	c := NewClassifier(Default(), WithBotName("Gork"))
	assert.True(t, c.MentionsBot("hey @Gork what's up"))
	assert.True(t, c.MentionsBot("@gork,"))
	assert.False(t, c.MentionsBot("@Gorky"))
	assert.False(t, c.MentionsBot("gork"))

	assert.False(t, NewClassifier(Default()).MentionsBot("@Gork"))
}

func TestRenderHelp(t *testing.T) {
	reg := MustRegistry(
		Entry{ID: "!help", Category: "general", Description: "Show help."},
		Entry{ID: "!secret", Category: "general", Description: "", Hidden: true},
		Entry{ID: "!sticker", Category: "media", Description: "Make a sticker.",
			Params: []ParamSpec{{Name: "no-background", Description: "Drop it.", Options: []string{"t", "f"}}}},
		Entry{ID: "!image", Category: "media", Description: "Make an image.",
			Params: []ParamSpec{{Name: "id"}}},
	)

	text := RenderHelp(reg, "Gork")
	assert.Contains(t, text, "*Gork commands*")
	assert.Contains(t, text, "*General*")
	assert.Contains(t, text, "*Media*")
	assert.Contains(t, text, "!help - Show help.")
	assert.Contains(t, text, ":no-background=t|f  Drop it.")
	assert.Contains(t, text, ":id=<value>")
	assert.Contains(t, text, "@Gork")
	assert.NotContains(t, text, "!secret")
	assert.True(t, strings.HasSuffix(text, helpFooter))
	assert.Less(t, strings.Index(text, "!sticker"), strings.Index(text, "!image"))
}

func TestRenderHelpListsEveryVisibleDefault(t *testing.T) {
	reg := Default()
	text := RenderHelp(reg, "")
	for _, e := range reg.Entries() {
		if !e.Hidden {
			assert.Contains(t, text, e.ID)
		}
	}
	assert.Contains(t, text, "*Commands*")
}
