package mailbox

import "strings"

// ID identifies one of the known mailboxes on the list server. Values
// are upper-case IMAP mailbox names.
type ID string

// The mailboxes every mailing-list account has.
const (
	Inbox  ID = "INBOX"
	Spam   ID = "SPAMMING"
	Failed ID = "FAILED"
)

// Default is returned for anything the resolver does not recognise.
const Default = Inbox

// String returns the IMAP mailbox name.
func (id ID) String() string {
	return string(id)
}

var labels = map[ID]string{
	Inbox:  "Inbox",
	Spam:   "Spam",
	Failed: "Failed",
}

// Resolver maps free-form mailbox parameters onto the closed set of
// known mailboxes. The zero value is not usable; call NewResolver.
type Resolver struct {
	known []ID
	index map[string]ID
}

// NewResolver creates a resolver that knows the three default mailboxes
// plus the given per-list catch-all names. Names are upper-cased and
// duplicates are dropped; order is preserved.
func NewResolver(catchAll ...string) *Resolver {
	r := &Resolver{index: make(map[string]ID)}

	r.add(Inbox)
	r.add(Spam)
	r.add(Failed)
	for _, name := range catchAll {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		r.add(ID(strings.ToUpper(name)))
	}

	return r
}

func (r *Resolver) add(id ID) {
	key := strings.ToUpper(string(id))
	if _, ok := r.index[key]; ok {
		return
	}
	r.index[key] = id
	r.known = append(r.known, id)
}

// Resolve returns the known mailbox matching identifier, ignoring case
// and surrounding whitespace. Unknown or empty input resolves to Inbox.
func (r *Resolver) Resolve(identifier string) ID {
	if id, ok := r.index[strings.ToUpper(strings.TrimSpace(identifier))]; ok {
		return id
	}
	return Default
}

// IsKnown reports whether identifier names a known mailbox.
func (r *Resolver) IsKnown(identifier string) bool {
	_, ok := r.index[strings.ToUpper(strings.TrimSpace(identifier))]
	return ok
}

// Known returns all known mailboxes, defaults first.
func (r *Resolver) Known() []ID {
	out := make([]ID, len(r.known))
	copy(out, r.known)
	return out
}

// Label returns a human readable name for a mailbox.
func Label(id ID) string {
	if l, ok := labels[id]; ok {
		return l
	}
	s := strings.ToLower(string(id))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
