package command

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gorkbot/gork/internal/domain"
)

// numericMentionPattern matches an inline @-mention of a phone-like id.
var numericMentionPattern = regexp.MustCompile(`@\d{6,15}`)

var digitsPattern = regexp.MustCompile(`^\d+$`)

// Classifier maps message bodies onto the registry.
type Classifier struct {
	reg           *Registry
	removal       []string
	paramPattern  *regexp.Regexp
	botMention    *regexp.Regexp
	stripMentions bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithBotName makes the classifier strip "@<name>" from clean text and
// recognise it in MentionsBot. Matching is case-insensitive.
func WithBotName(name string) Option {
	return func(c *Classifier) {
		if name == "" {
			c.botMention = nil
			return
		}
		c.botMention = regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(name) + `\b`)
	}
}

// WithStripMentions toggles removal of bare numeric @-mentions.
func WithStripMentions(strip bool) Option {
	return func(c *Classifier) { c.stripMentions = strip }
}

// NewClassifier builds a classifier over reg. Numeric mentions are stripped
// by default.
func NewClassifier(reg *Registry, opts ...Option) *Classifier {
	c := &Classifier{reg: reg, stripMentions: true}

	// Longer tokens first so a token that prefixes another cannot eat it.
	c.removal = reg.IDs()
	slices.SortStableFunc(c.removal, func(a, b string) int { return len(b) - len(a) })

	if names := reg.ParamNames(); len(names) > 0 {
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = regexp.QuoteMeta(n)
		}
		slices.SortStableFunc(quoted, func(a, b string) int { return len(b) - len(a) })
		c.paramPattern = regexp.MustCompile(`:(` + strings.Join(quoted, "|") + `)=(\S+)`)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify parses body. When several tokens occur, the earliest one wins;
// at the same position the longer token wins, then registry order.
func (c *Classifier) Classify(body string) domain.ParsedCommand {
	return domain.ParsedCommand{
		CommandID: c.detect(body),
		Params:    c.ParseParams(body),
		Clean:     c.CleanText(body),
	}
}

func (c *Classifier) detect(body string) string {
	best, bestPos := "", -1
	for _, id := range c.reg.IDs() {
		pos := strings.Index(body, id)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(id) > len(best)) {
			best, bestPos = id, pos
		}
	}
	return best
}

// ParseParams extracts recognised `:key=value` tokens. All-digit values
// become ints. A repeated key keeps its last value.
func (c *Classifier) ParseParams(body string) domain.Params {
	params := domain.Params{}
	if c.paramPattern == nil {
		return params
	}
	for _, m := range c.paramPattern.FindAllStringSubmatch(body, -1) {
		key, raw := m[1], m[2]
		if digitsPattern.MatchString(raw) {
			if n, err := strconv.Atoi(raw); err == nil {
				params[key] = n
				continue
			}
		}
		params[key] = raw
	}
	return params
}

// CleanText removes command tokens, the bot mention, numeric mentions (when
// enabled) and recognised parameter tokens, then trims.
func (c *Classifier) CleanText(body string) string {
	s := body
	for _, id := range c.removal {
		s = strings.ReplaceAll(s, id, "")
	}
	if c.botMention != nil {
		s = c.botMention.ReplaceAllString(s, "")
	}
	if c.stripMentions {
		s = numericMentionPattern.ReplaceAllString(s, "")
	}
	if c.paramPattern != nil {
		s = c.paramPattern.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// MentionsBot reports whether body addresses the bot by name.
func (c *Classifier) MentionsBot(body string) bool {
	return c.botMention != nil && c.botMention.MatchString(body)
}

// Registry returns the table the classifier was built over.
func (c *Classifier) Registry() *Registry { return c.reg }
