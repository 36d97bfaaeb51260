package whatsapp

import "strings"

const (
	DomainUser      = "s.whatsapp.net"
	DomainGroup     = "g.us"
	DomainBroadcast = "broadcast"

	SuffixUser  = "@" + DomainUser
	SuffixGroup = "@" + DomainGroup
)

// NormalizeRemoteJID canonicalizes a chat identifier coming from the
// provider. Identifiers arrive in several shapes: full JIDs with mixed-case
// domains, bare phone numbers, and bare group ids in the legacy
// "12345-67890" format. Returns "" when the input cannot be interpreted.
//
// The function is idempotent: feeding its own output back yields the same
// value.
func NormalizeRemoteJID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if at := strings.IndexByte(trimmed, '@'); at >= 0 {
		local := trimmed[:at]
		domain := strings.ToLower(trimmed[at+1:])
		if local == "" {
			return ""
		}
		switch domain {
		case DomainUser, DomainGroup, DomainBroadcast:
		default:
			// Unknown or empty domains collapse to the person domain.
			domain = DomainUser
		}
		return local + "@" + domain
	}

	// Legacy group ids contain a hyphen (creator-timestamp); everything
	// else is treated as a bare user number.
	if strings.Contains(trimmed, "-") {
		return trimmed + SuffixGroup
	}
	return trimmed + SuffixUser
}

// IsGroupJID reports whether the (already normalized) JID addresses a group.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, SuffixGroup)
}

// LocalPart returns the portion of a JID before the "@", or the input
// unchanged when no domain is present.
func LocalPart(jid string) string {
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		return jid[:at]
	}
	return jid
}
