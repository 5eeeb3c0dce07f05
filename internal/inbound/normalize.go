package inbound

import (
	"regexp"
	"slices"

	"github.com/gorkbot/gork/internal/domain"
)

// mentionPattern extracts the numeric local part of a mentioned address.
var mentionPattern = regexp.MustCompile(`^(\d{6,15})(@|$)`)

// Normalizer builds MessageContext values from webhook events.
type Normalizer struct {
	resolver *Resolver
}

// NewNormalizer creates a Normalizer that strips addresses with resolver.
func NewNormalizer(resolver *Resolver) *Normalizer {
	return &Normalizer{resolver: resolver}
}

// Normalize builds the message context for ev using an already resolved identity.
func (n *Normalizer) Normalize(ev *domain.Event, res Resolution) domain.MessageContext {
	data := &ev.Data
	msg := data.Message

	mc := domain.MessageContext{
		MessageID:   data.Key.ID,
		RemoteID:    res.CanonicalID,
		IsGroup:     res.IsGroup(),
		PhoneNumber: res.Phone,
		PushName:    data.PushName,
		Body:        extractBody(msg),
		Timestamp:   data.MessageTimestamp.Time(),
		Media:       map[domain.MediaSlot]string{},
	}
	if res.IsGroup() && data.Key.Participant != "" {
		mc.SenderID = n.resolver.StripAddress(data.Key.Participant)
	}

	if msg != nil {
		if msg.ImageMessage != nil {
			mc.Media[domain.MediaImageMessage] = data.Key.ID
		}
		if msg.VideoMessage != nil {
			mc.Media[domain.MediaVideoMessage] = data.Key.ID
		}
		if msg.AudioMessage != nil {
			mc.Media[domain.MediaAudioMessage] = data.Key.ID
		}
	}

	ci := findContextInfo(data)
	if ci == nil {
		return mc
	}

	mc.Mentions = extractMentions(ci.MentionedJid)
	mc.QuotedMessageID = ci.StanzaID

	if q := ci.QuotedMessage; q != nil && ci.StanzaID != "" {
		ref := ci.StanzaID
		if q.ImageMessage != nil {
			mc.Media[domain.MediaImageQuote] = ref
		}
		if q.VideoMessage != nil {
			mc.Media[domain.MediaVideoQuote] = ref
		}
		if q.StickerMessage != nil {
			mc.Media[domain.MediaStickerQuote] = ref
		}
		if q.AudioMessage != nil {
			mc.Media[domain.MediaAudioQuote] = ref
		}
		mc.QuotedText = quotedText(q)
		if q.Text() != "" {
			mc.Media[domain.MediaTextQuote] = ref
		}
	}
	return mc
}

// extractBody picks the first non-empty text source: image caption, plain
// conversation, ephemeral extended text, then extended text and video caption.
func extractBody(msg *domain.Message) string {
	if msg == nil {
		return ""
	}
	if msg.ImageMessage != nil && msg.ImageMessage.Caption != "" {
		return msg.ImageMessage.Caption
	}
	if msg.Conversation != "" {
		return msg.Conversation
	}
	if eph := msg.EphemeralMessage; eph != nil && eph.Message != nil {
		if ext := eph.Message.ExtendedTextMessage; ext != nil && ext.Text != "" {
			return ext.Text
		}
	}
	if ext := msg.ExtendedTextMessage; ext != nil && ext.Text != "" {
		return ext.Text
	}
	if msg.VideoMessage != nil && msg.VideoMessage.Caption != "" {
		return msg.VideoMessage.Caption
	}
	return ""
}

func findContextInfo(data *domain.EventData) *domain.ContextInfo {
	if data.ContextInfo != nil {
		return data.ContextInfo
	}
	msg := data.Message
	if msg == nil {
		return nil
	}
	if eph := msg.EphemeralMessage; eph != nil && eph.Message != nil {
		msg = eph.Message
	}
	if msg.ExtendedTextMessage != nil && msg.ExtendedTextMessage.ContextInfo != nil {
		return msg.ExtendedTextMessage.ContextInfo
	}
	for _, m := range []*domain.MediaMessage{msg.ImageMessage, msg.VideoMessage, msg.AudioMessage, msg.StickerMessage} {
		if m != nil && m.ContextInfo != nil {
			return m.ContextInfo
		}
	}
	return nil
}

func extractMentions(jids []string) []string {
	var out []string
	for _, jid := range jids {
		m := mentionPattern.FindStringSubmatch(jid)
		if m == nil {
			continue
		}
		if !slices.Contains(out, m[1]) {
			out = append(out, m[1])
		}
	}
	slices.Sort(out)
	return out
}

func quotedText(q *domain.Message) string {
	if t := q.Text(); t != "" {
		return t
	}
	if q.ImageMessage != nil {
		return q.ImageMessage.Caption
	}
	if q.VideoMessage != nil {
		return q.VideoMessage.Caption
	}
	return ""
}
