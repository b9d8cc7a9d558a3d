package containers

import (
	"strings"

	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
)

// Type is the container variant. The set is closed.
type Type byte

const (
	MapType  Type = 'M'
	TextType Type = 'T'
)

func (t Type) String() string {
	switch t {
	case MapType:
		return "Map"
	case TextType:
		return "Text"
	default:
		return "Unknown"
	}
}

func (t Type) Valid() bool {
	return t == MapType || t == TextType
}

func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "map", "m":
		return MapType, nil
	case "text", "t":
		return TextType, nil
	}
	return 0, errors.Wrapf(weave_errors.ErrUnknownContainer, "no container type %q", s)
}

// Ref addresses a container without saying what type it is.
// A root container has a Name chosen by the author; a nested one is
// named by the ID of the op that created it.
type Ref struct {
	Name   string
	Origin rdx.ID
}

func Root(name string) Ref {
	return Ref{Name: name}
}

func Nested(origin rdx.ID) Ref {
	return Ref{Origin: origin}
}

func (ref Ref) IsRoot() bool {
	return ref.Name != ""
}

func (ref Ref) Valid() bool {
	if ref.IsRoot() {
		return ref.Origin.IsZero()
	}
	return ref.Origin.Client != 0 && ref.Origin != rdx.BadId
}

func (ref Ref) WithType(t Type) ID {
	return ID{Ref: ref, Type: t}
}

func (ref Ref) String() string {
	if ref.IsRoot() {
		return "/" + ref.Name
	}
	return ref.Origin.String()
}

// ParseRef reads "/name" or "client-counter".
func ParseRef(s string) (Ref, error) {
	if strings.HasPrefix(s, "/") && len(s) > 1 {
		return Root(s[1:]), nil
	}
	id := rdx.IDFromString(s)
	ref := Nested(id)
	if !ref.Valid() {
		return Ref{}, errors.Wrapf(weave_errors.ErrUnknownContainer, "bad container ref %q", s)
	}
	return ref, nil
}

// ID is a typed container reference.
type ID struct {
	Ref
	Type Type
}

func (id ID) Valid() bool {
	return id.Type.Valid() && id.Ref.Valid()
}

func (id ID) String() string {
	return id.Ref.String() + ":" + id.Type.String()
}

// ParseID reads the "ref:Type" form, e.g. "/doc:Text" or "1e-1ab:Map".
func ParseID(s string) (ID, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return ID{}, errors.Wrapf(weave_errors.ErrUnknownContainer, "no type in %q", s)
	}
	ref, err := ParseRef(s[:i])
	if err != nil {
		return ID{}, err
	}
	t, err := ParseType(s[i+1:])
	if err != nil {
		return ID{}, err
	}
	return ref.WithType(t), nil
}
