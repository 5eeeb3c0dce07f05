// Package inbound turns raw webhook events into normalized message contexts.
package inbound

import (
	"errors"
	"strings"
)

// ErrUnresolvedIdentity is returned when neither address carries a known marker.
var ErrUnresolvedIdentity = errors.New("inbound: unresolved identity")

// Kind tags the conversation type of a resolved identity.
type Kind int

const (
	KindUnresolved Kind = iota
	KindPrivate
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindPrivate:
		return "private"
	case KindGroup:
		return "group"
	default:
		return "unresolved"
	}
}

// Resolution is the outcome of identity resolution. Phone is only set for
// private chats.
type Resolution struct {
	Kind        Kind
	CanonicalID string
	Phone       string
}

// IsGroup reports whether the conversation is a group.
func (r Resolution) IsGroup() bool { return r.Kind == KindGroup }

// Markers are the address suffixes the platform uses.
type Markers struct {
	Private   string
	Alternate string
	Group     string
}

// DefaultMarkers are WhatsApp's address suffixes.
var DefaultMarkers = Markers{
	Private:   "@s.whatsapp.net",
	Alternate: "@lid",
	Group:     "@g.us",
}

// Resolver maps the two addresses of an event to a canonical identity.
type Resolver struct {
	markers Markers
}

// NewResolver creates a Resolver. Zero-valued markers fall back to defaults.
func NewResolver(m Markers) *Resolver {
	if m.Private == "" {
		m.Private = DefaultMarkers.Private
	}
	if m.Alternate == "" {
		m.Alternate = DefaultMarkers.Alternate
	}
	if m.Group == "" {
		m.Group = DefaultMarkers.Group
	}
	return &Resolver{markers: m}
}

// Resolve classifies (remoteJid, remoteJidAlt). The private marker may sit on
// either address; the other one then carries the canonical alternate id.
func (r *Resolver) Resolve(remoteJid, remoteJidAlt string) (Resolution, error) {
	m := r.markers
	switch {
	case strings.HasSuffix(remoteJid, m.Private):
		return r.private(remoteJid, remoteJidAlt), nil
	case strings.HasSuffix(remoteJidAlt, m.Private):
		return r.private(remoteJidAlt, remoteJid), nil
	case strings.HasSuffix(remoteJid, m.Group):
		return Resolution{Kind: KindGroup, CanonicalID: remoteJid}, nil
	}
	return Resolution{}, ErrUnresolvedIdentity
}

func (r *Resolver) private(phoneJid, altJid string) Resolution {
	phone := strings.TrimSuffix(phoneJid, r.markers.Private)
	canonical := strings.TrimSuffix(altJid, r.markers.Alternate)
	if canonical == "" {
		canonical = phone
	}
	return Resolution{Kind: KindPrivate, CanonicalID: canonical, Phone: phone}
}

// StripAddress removes any known marker from an address, leaving the bare id.
func (r *Resolver) StripAddress(addr string) string {
	for _, suffix := range []string{r.markers.Private, r.markers.Alternate, r.markers.Group} {
		if strings.HasSuffix(addr, suffix) {
			return strings.TrimSuffix(addr, suffix)
		}
	}
	return addr
}
