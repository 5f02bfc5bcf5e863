package annotation

import (
	"strconv"

	"gitlab.com/tozd/go/errors"
)

// Kind is the tag of a Fact variant. Its string form is the tag used on the wire.
type Kind uint8

const (
	KindTreeBlock Kind = iota + 1
	KindTreePath
	KindTypePath
	KindVariable
	KindProcHeader
	KindProcBody
	KindLocalVarScope
	KindUnscopedCall
	KindUnscopedVar
	KindScopedCall
	KindScopedVar
	KindParentCall
	KindReturnVal
	KindInSequence
	KindMacroDefinition
	KindMacroUse
	KindInclude
	KindResource
	KindScopedMissingIdent
	KindIncompleteTypePath
	KindIncompleteTreePath
	KindProcArguments
	KindProcArgument
	KindReturnOperation
	KindReturnStatement
)

var kindNames = [...]string{
	KindTreeBlock:          "TreeBlock",
	KindTreePath:           "TreePath",
	KindTypePath:           "TypePath",
	KindVariable:           "Variable",
	KindProcHeader:         "ProcHeader",
	KindProcBody:           "ProcBody",
	KindLocalVarScope:      "LocalVarScope",
	KindUnscopedCall:       "UnscopedCall",
	KindUnscopedVar:        "UnscopedVar",
	KindScopedCall:         "ScopedCall",
	KindScopedVar:          "ScopedVar",
	KindParentCall:         "ParentCall",
	KindReturnVal:          "ReturnVal",
	KindInSequence:         "InSequence",
	KindMacroDefinition:    "MacroDefinition",
	KindMacroUse:           "MacroUse",
	KindInclude:            "Include",
	KindResource:           "Resource",
	KindScopedMissingIdent: "ScopedMissingIdent",
	KindIncompleteTypePath: "IncompleteTypePath",
	KindIncompleteTreePath: "IncompleteTreePath",
	KindProcArguments:      "ProcArguments",
	KindProcArgument:       "ProcArgument",
	KindReturnOperation:    "ReturnOperation",
	KindReturnStatement:    "ReturnStatement",
}

// ErrUnknownKind is returned when decoding a tag that names no Fact variant.
var ErrUnknownKind = errors.New("unknown annotation kind")

// Kinds lists every variant tag in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for k := KindTreeBlock; int(k) < len(kindNames); k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) Valid() bool {
	return k >= KindTreeBlock && int(k) < len(kindNames)
}

func (k Kind) String() string {
	if !k.Valid() {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return 0, errors.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, errors.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// KindOf returns the variant tag of f. A nil fact has the zero Kind, which is
// not Valid.
func KindOf(f Fact) Kind {
	if f == nil {
		return 0
	}
	return f.Kind()
}

// IsError reports whether the kind is an error-recovery marker.
func (k Kind) IsError() bool {
	switch k {
	case KindScopedMissingIdent, KindIncompleteTypePath, KindIncompleteTreePath:
		return true
	}
	return false
}
