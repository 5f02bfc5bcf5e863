package annotation

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
	"gitlab.com/tozd/go/errors"
)

// Facts travel as {"kind": "<Kind>", "value": {...}}. The same envelope is
// used for JSON and MessagePack, so a dump can be converted between the two
// without losing the variant tag or any payload field.

// Envelope wraps a Fact so it can be embedded in other serialized values.
type Envelope struct {
	Fact Fact
}

type jsonEnvelope struct {
	Kind  Kind            `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

type msgpackEnvelope struct {
	Kind  Kind               `msgpack:"kind"`
	Value msgpack.RawMessage `msgpack:"value"`
}

type decodeFunc func(into any) error

func decodeAs[F Fact](decode decodeFunc) (Fact, error) {
	var f F
	if err := decode(&f); err != nil {
		return nil, err
	}
	return f, nil
}

var factDecoders = map[Kind]func(decodeFunc) (Fact, error){
	KindTreeBlock:          decodeAs[TreeBlock],
	KindTreePath:           decodeAs[TreePath],
	KindTypePath:           decodeAs[TypePath],
	KindVariable:           decodeAs[Variable],
	KindProcHeader:         decodeAs[ProcHeader],
	KindProcBody:           decodeAs[ProcBody],
	KindLocalVarScope:      decodeAs[LocalVarScope],
	KindUnscopedCall:       decodeAs[UnscopedCall],
	KindUnscopedVar:        decodeAs[UnscopedVar],
	KindScopedCall:         decodeAs[ScopedCall],
	KindScopedVar:          decodeAs[ScopedVar],
	KindParentCall:         decodeAs[ParentCall],
	KindReturnVal:          decodeAs[ReturnVal],
	KindInSequence:         decodeAs[InSequence],
	KindMacroDefinition:    decodeAs[MacroDefinition],
	KindMacroUse:           decodeAs[MacroUse],
	KindInclude:            decodeAs[Include],
	KindResource:           decodeAs[Resource],
	KindScopedMissingIdent: decodeAs[ScopedMissingIdent],
	KindIncompleteTypePath: decodeAs[IncompleteTypePath],
	KindIncompleteTreePath: decodeAs[IncompleteTreePath],
	KindProcArguments:      decodeAs[ProcArguments],
	KindProcArgument:       decodeAs[ProcArgument],
	KindReturnOperation:    decodeAs[ReturnOperation],
	KindReturnStatement:    decodeAs[ReturnStatement],
}

func decodeFact(kind Kind, decode decodeFunc) (Fact, error) {
	fn, ok := factDecoders[kind]
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	f, err := fn(decode)
	if err != nil {
		return nil, errors.Errorf("decoding %s: %w", kind, err)
	}
	return f, nil
}

// MarshalFact encodes f as a JSON envelope.
func MarshalFact(f Fact) ([]byte, error) {
	return json.Marshal(Envelope{Fact: f})
}

// UnmarshalFact decodes a JSON envelope produced by MarshalFact.
func UnmarshalFact(data []byte) (Fact, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e.Fact, nil
}

// EncodeFactMsgpack encodes f as a MessagePack envelope.
func EncodeFactMsgpack(f Fact) ([]byte, error) {
	return msgpack.Marshal(Envelope{Fact: f})
}

// DecodeFactMsgpack decodes a MessagePack envelope produced by EncodeFactMsgpack.
func DecodeFactMsgpack(data []byte) (Fact, error) {
	var e Envelope
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e.Fact, nil
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Fact == nil {
		return nil, errors.New("marshaling nil fact")
	}
	value, err := json.Marshal(e.Fact)
	if err != nil {
		return nil, errors.Errorf("marshaling %s: %w", e.Fact.Kind(), err)
	}
	return json.Marshal(jsonEnvelope{Kind: e.Fact.Kind(), Value: value})
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.Errorf("unmarshaling fact envelope: %w", err)
	}
	f, err := decodeFact(env.Kind, func(into any) error {
		if len(env.Value) == 0 {
			return nil
		}
		return json.Unmarshal(env.Value, into)
	})
	if err != nil {
		return err
	}
	e.Fact = f
	return nil
}

func (e Envelope) EncodeMsgpack(enc *msgpack.Encoder) error {
	if e.Fact == nil {
		return errors.New("encoding nil fact")
	}
	value, err := msgpack.Marshal(e.Fact)
	if err != nil {
		return errors.Errorf("encoding %s: %w", e.Fact.Kind(), err)
	}
	return enc.Encode(msgpackEnvelope{Kind: e.Fact.Kind(), Value: value})
}

func (e *Envelope) DecodeMsgpack(dec *msgpack.Decoder) error {
	var env msgpackEnvelope
	if err := dec.Decode(&env); err != nil {
		return errors.Errorf("decoding fact envelope: %w", err)
	}
	f, err := decodeFact(env.Kind, func(into any) error {
		return msgpack.Unmarshal(env.Value, into)
	})
	if err != nil {
		return err
	}
	e.Fact = f
	return nil
}

type returnStatementWire struct {
	ReturnedValue []Envelope `json:"returned_value" msgpack:"returned_value"`
}

func (r ReturnStatement) toWire() returnStatementWire {
	w := returnStatementWire{ReturnedValue: make([]Envelope, len(r.ReturnedValue))}
	for i, f := range r.ReturnedValue {
		w.ReturnedValue[i] = Envelope{Fact: f}
	}
	return w
}

func (r *ReturnStatement) fromWire(w returnStatementWire) {
	r.ReturnedValue = make([]Fact, len(w.ReturnedValue))
	for i, e := range w.ReturnedValue {
		r.ReturnedValue[i] = e.Fact
	}
}

func (r ReturnStatement) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toWire())
}

func (r *ReturnStatement) UnmarshalJSON(data []byte) error {
	var w returnStatementWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.fromWire(w)
	return nil
}

func (r ReturnStatement) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(r.toWire())
}

func (r *ReturnStatement) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w returnStatementWire
	if err := dec.Decode(&w); err != nil {
		return err
	}
	r.fromWire(w)
	return nil
}
