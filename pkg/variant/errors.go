package variant

import (
	"fmt"
	"strings"
)

type ErrorKind uint8

const (
	// IdentityInconsistency: a name occurs in more than one but not all slots.
	IdentityInconsistency ErrorKind = iota
	// StrongDuplicate: two strong definitions land in the same slot.
	StrongDuplicate
	// UnresolvedClash: placement differs across slots and trampolines are off.
	UnresolvedClash
	// MissingTarget: the equal-merge output section is unusable.
	MissingTarget
	InvalidConfig
)

func (k ErrorKind) String() string {
	switch k {
	case IdentityInconsistency:
		return "identity inconsistency"
	case StrongDuplicate:
		return "strong duplicate"
	case UnresolvedClash:
		return "unresolved clash"
	case MissingTarget:
		return "missing target"
	case InvalidConfig:
		return "invalid config"
	}
	return "unknown"
}

// LinkError is returned for every condition that aborts the link.
type LinkError struct {
	Kind   ErrorKind
	Group  string
	Name   string
	Slots  []int
	Detail string
}

func (e *LinkError) Error() string {
	var b strings.Builder
	b.WriteString("variant")
	if e.Group != "" {
		fmt.Fprintf(&b, " %s", e.Group)
	}
	b.WriteString(": ")
	b.WriteString(e.Detail)
	return b.String()
}

func (g *Group) errorf(kind ErrorKind, name string, slots []int, format string, args ...any) *LinkError {
	return &LinkError{
		Kind:   kind,
		Group:  g.Name,
		Name:   name,
		Slots:  slots,
		Detail: fmt.Sprintf(format, args...),
	}
}
